package domain

import "time"

// RevokedAccessToken is a denylist entry for an access token jti. Entries are
// only meaningful until ExpiresAt, the token's own expiry.
type RevokedAccessToken struct {
	JTI       string    `gorm:"column:jti;size:64;primaryKey" json:"jti"`
	UserID    string    `gorm:"type:varchar(36);index;not null" json:"user_id"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (t *RevokedAccessToken) Effective(now time.Time) bool {
	return t != nil && t.ExpiresAt.After(now)
}
