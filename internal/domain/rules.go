package domain

import "strings"

type PhoneInput struct {
	Number    string `json:"number"`
	IsPrimary bool   `json:"is_primary"`
}

type CandidateProfileFields struct {
	Name              string
	Surname           string
	Photo             string
	CountryID         string
	City              string
	Address           string
	Resume            string
	YearsOfExperience *int
}

type RecruiterProfileFields struct {
	Name      string
	Surname   string
	Photo     string
	JobTitle  string
	CompanyID string
}

func CountPrimaryPhones(phones []PhoneInput) int {
	n := 0
	for _, p := range phones {
		if p.IsPrimary {
			n++
		}
	}
	return n
}

// ValidPrimaryPhoneCount reports whether at most one phone is flagged primary.
func ValidPrimaryPhoneCount(phones []PhoneInput) bool {
	return CountPrimaryPhones(phones) <= 1
}

// IsCandidateProfileComplete requires every text field to be non-blank and the
// years of experience to be explicitly set (zero counts as set).
func IsCandidateProfileComplete(f CandidateProfileFields) bool {
	return present(f.Name) &&
		present(f.Surname) &&
		present(f.Photo) &&
		present(f.CountryID) &&
		present(f.City) &&
		present(f.Address) &&
		present(f.Resume) &&
		f.YearsOfExperience != nil
}

func IsRecruiterProfileComplete(f RecruiterProfileFields) bool {
	return present(f.Name) &&
		present(f.Surname) &&
		present(f.Photo) &&
		present(f.JobTitle) &&
		present(f.CompanyID)
}

func present(v string) bool { return strings.TrimSpace(v) != "" }
