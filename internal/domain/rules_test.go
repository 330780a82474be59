package domain

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func intPtr(v int) *int { return &v }

func TestCountPrimaryPhones(t *testing.T) {
	cases := []struct {
		name   string
		phones []PhoneInput
		want   int
	}{
		{name: "nil", phones: nil, want: 0},
		{name: "none primary", phones: []PhoneInput{{Number: "1"}, {Number: "2"}}, want: 0},
		{name: "one primary", phones: []PhoneInput{{Number: "1", IsPrimary: true}, {Number: "2"}}, want: 1},
		{name: "two primary", phones: []PhoneInput{{Number: "1", IsPrimary: true}, {Number: "2", IsPrimary: true}}, want: 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CountPrimaryPhones(tc.phones); got != tc.want {
				t.Fatalf("CountPrimaryPhones()=%d want %d", got, tc.want)
			}
			if ValidPrimaryPhoneCount(tc.phones) != (tc.want <= 1) {
				t.Fatalf("ValidPrimaryPhoneCount mismatch for %d primaries", tc.want)
			}
		})
	}
}

func completeCandidate() CandidateProfileFields {
	return CandidateProfileFields{
		Name:              "Awa",
		Surname:           "Diallo",
		Photo:             "uploads/candidat/photo.png",
		CountryID:         "c0ffee00-0000-0000-0000-000000000001",
		City:              "Dakar",
		Address:           "12 rue des Almadies",
		Resume:            "Backend developer",
		YearsOfExperience: intPtr(0),
	}
}

func TestIsCandidateProfileComplete(t *testing.T) {
	if !IsCandidateProfileComplete(completeCandidate()) {
		t.Fatal("expected complete profile with zero years of experience set")
	}

	mutations := map[string]func(*CandidateProfileFields){
		"blank name":       func(f *CandidateProfileFields) { f.Name = "   " },
		"missing surname":  func(f *CandidateProfileFields) { f.Surname = "" },
		"missing photo":    func(f *CandidateProfileFields) { f.Photo = "" },
		"missing country":  func(f *CandidateProfileFields) { f.CountryID = "" },
		"blank city":       func(f *CandidateProfileFields) { f.City = "\t" },
		"missing address":  func(f *CandidateProfileFields) { f.Address = "" },
		"missing resume":   func(f *CandidateProfileFields) { f.Resume = "" },
		"unset experience": func(f *CandidateProfileFields) { f.YearsOfExperience = nil },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			f := completeCandidate()
			mutate(&f)
			if IsCandidateProfileComplete(f) {
				t.Fatalf("expected incomplete profile for %s", name)
			}
		})
	}
}

func TestIsRecruiterProfileComplete(t *testing.T) {
	full := RecruiterProfileFields{Name: "Jean", Surname: "Kouassi", Photo: "p.png", JobTitle: "Talent lead", CompanyID: "co-1"}
	if !IsRecruiterProfileComplete(full) {
		t.Fatal("expected complete recruiter profile")
	}
	partial := full
	partial.JobTitle = "  "
	if IsRecruiterProfileComplete(partial) {
		t.Fatal("expected blank job title to make profile incomplete")
	}
	partial = full
	partial.CompanyID = ""
	if IsRecruiterProfileComplete(partial) {
		t.Fatal("expected missing company to make profile incomplete")
	}
}

func TestSessionState(t *testing.T) {
	now := time.Now()
	s := &Session{ExpiresAt: now.Add(time.Hour)}
	if s.State(now) != SessionActive {
		t.Fatalf("expected active, got %s", s.State(now))
	}
	if s.State(now.Add(2*time.Hour)) != SessionExpired {
		t.Fatal("expected expired after expiry")
	}
	revokedAt := now
	s.RevokedAt = &revokedAt
	if s.State(now.Add(2*time.Hour)) != SessionRevoked {
		t.Fatal("expected revoked to take precedence over expired")
	}
	reason := RevokedOnExpiry
	s.RevokedReason = &reason
	if s.State(now.Add(2*time.Hour)) != SessionExpired {
		t.Fatal("a sweep-revoked session must still read as expired")
	}
}

func TestRevokedAccessTokenEffective(t *testing.T) {
	now := time.Now()
	tok := &RevokedAccessToken{JTI: "j1", ExpiresAt: now.Add(time.Minute)}
	if !tok.Effective(now) {
		t.Fatal("expected entry effective before expiry")
	}
	if tok.Effective(now.Add(2 * time.Minute)) {
		t.Fatal("expected entry ineffective after expiry")
	}
	var missing *RevokedAccessToken
	if missing.Effective(now) {
		t.Fatal("nil entry must not be effective")
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  A@X.Com "); got != "a@x.com" {
		t.Fatalf("NormalizeEmail()=%q", got)
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleCandidate, RoleRecruiter, RoleAdmin} {
		if !r.Valid() {
			t.Fatalf("expected %s valid", r)
		}
	}
	if Role("candidate").Valid() {
		t.Fatal("unexpected valid role")
	}
}

func FuzzNormalizeEmailIdempotent(f *testing.F) {
	f.Add("  A@X.com ")
	f.Add("")
	f.Add("user+tag@Example.ORG")

	f.Fuzz(func(t *testing.T, raw string) {
		if !utf8.ValidString(raw) {
			t.Skip()
		}
		got := NormalizeEmail(raw)
		if NormalizeEmail(got) != got {
			t.Fatalf("normalization must be idempotent: %q -> %q", raw, got)
		}
		if strings.TrimSpace(got) != got {
			t.Fatalf("normalized email keeps surrounding space: %q", got)
		}
	})
}
