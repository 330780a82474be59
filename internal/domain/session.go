package domain

import "time"

type SessionState string

const (
	SessionActive  SessionState = "active"
	SessionRevoked SessionState = "revoked"
	SessionExpired SessionState = "expired"
)

// RevokedOnExpiry is the revocation reason recorded by the expiry sweep. Such
// a session still reports SessionExpired.
const RevokedOnExpiry = "expired"

type Session struct {
	ID               string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID           string     `gorm:"type:varchar(36);index;not null" json:"user_id"`
	RefreshTokenHash string     `gorm:"size:128;uniqueIndex;not null" json:"-"`
	UserAgent        string     `gorm:"size:512" json:"user_agent"`
	IP               string     `gorm:"size:64" json:"ip"`
	ExpiresAt        time.Time  `gorm:"index;not null" json:"expires_at"`
	RevokedAt        *time.Time `gorm:"index" json:"revoked_at,omitempty"`
	RevokedReason    *string    `gorm:"size:64" json:"revoked_reason,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// State derives the lifecycle state at now. Revocation wins over expiry,
// except when the revocation only recorded the expiry.
func (s *Session) State(now time.Time) SessionState {
	if s.RevokedAt != nil {
		if s.RevokedReason != nil && *s.RevokedReason == RevokedOnExpiry {
			return SessionExpired
		}
		return SessionRevoked
	}
	if !s.ExpiresAt.After(now) {
		return SessionExpired
	}
	return SessionActive
}

// ClientMeta is diagnostic request metadata recorded on a session. It is
// never used for security decisions.
type ClientMeta struct {
	IP        string
	UserAgent string
}
