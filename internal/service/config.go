package service

import "time"

// AuthConfig carries everything the auth flows need from configuration. It is
// built once at wiring time; flows never read the environment.
type AuthConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	RefreshPepper string
	ResetCodeTTL  time.Duration
}

func (c AuthConfig) withDefaults() AuthConfig {
	if c.AccessTTL <= 0 {
		c.AccessTTL = 900 * time.Second
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = 30 * 24 * time.Hour
	}
	if c.ResetCodeTTL <= 0 {
		c.ResetCodeTTL = 15 * time.Minute
	}
	return c
}
