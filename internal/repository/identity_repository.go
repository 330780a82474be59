package repository

import "gorm.io/gorm"

// Identity bundles the persistence ports backing the auth core. All of them
// share one *gorm.DB so they observe the same store.
type Identity struct {
	Users         UserRepository
	Companies     CompanyRepository
	Sessions      SessionRepository
	RevokedTokens RevokedTokenRepository
}

func NewIdentityRepository(db *gorm.DB) *Identity {
	return &Identity{
		Users:         NewUserRepository(db),
		Companies:     NewCompanyRepository(db),
		Sessions:      NewSessionRepository(db),
		RevokedTokens: NewRevokedTokenRepository(db),
	}
}
