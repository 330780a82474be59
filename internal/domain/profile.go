package domain

import "time"

type Company struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CandidateProfile struct {
	UserID            string    `gorm:"type:varchar(36);primaryKey" json:"user_id"`
	Name              string    `gorm:"size:128;not null" json:"name"`
	Surname           string    `gorm:"size:128;not null" json:"surname"`
	Photo             string    `gorm:"size:512" json:"photo,omitempty"`
	CountryID         string    `gorm:"type:varchar(36);index" json:"country_id"`
	City              string    `gorm:"size:128" json:"city,omitempty"`
	Address           string    `gorm:"size:255" json:"address,omitempty"`
	Resume            string    `gorm:"type:text" json:"resume,omitempty"`
	YearsOfExperience *int      `json:"years_of_experience,omitempty"`
	ProfileCompleted  bool      `gorm:"not null" json:"profile_completed"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type RecruiterProfile struct {
	UserID    string    `gorm:"type:varchar(36);primaryKey" json:"user_id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Surname   string    `gorm:"size:128;not null" json:"surname"`
	JobTitle  string    `gorm:"size:128" json:"job_title,omitempty"`
	Photo     string    `gorm:"size:512" json:"photo,omitempty"`
	CompanyID string    `gorm:"type:varchar(36);index;not null" json:"company_id"`
	Verified  bool      `gorm:"not null" json:"verified"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CandidatePhone struct {
	ID          string `gorm:"type:varchar(36);primaryKey" json:"id"`
	CandidateID string `gorm:"type:varchar(36);index;not null" json:"candidate_id"`
	Number      string `gorm:"size:32;not null" json:"number"`
	IsPrimary   bool   `gorm:"not null" json:"is_primary"`
}

type RecruiterPhone struct {
	ID          string `gorm:"type:varchar(36);primaryKey" json:"id"`
	RecruiterID string `gorm:"type:varchar(36);index;not null" json:"recruiter_id"`
	Number      string `gorm:"size:32;not null" json:"number"`
	IsPrimary   bool   `gorm:"not null" json:"is_primary"`
}

// Models lists every persisted type, in dependency order, for AutoMigrate.
func Models() []any {
	return []any{
		&Company{},
		&User{},
		&CandidateProfile{},
		&RecruiterProfile{},
		&CandidatePhone{},
		&RecruiterPhone{},
		&Session{},
		&RevokedAccessToken{},
	}
}
