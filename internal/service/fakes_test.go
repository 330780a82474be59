package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jobsy/identity-service/internal/domain"
	"github.com/jobsy/identity-service/internal/repository"
	"github.com/jobsy/identity-service/internal/security"

	"github.com/google/uuid"
)

type inMemoryUserRepo struct {
	mu         sync.Mutex
	users      map[string]*domain.User
	candidates map[string]*domain.CandidateProfile
	recruiters map[string]*domain.RecruiterProfile
	phones     int
	companies  map[string]bool
	createErr  error
	sessions   *inMemorySessionRepo
}

func newInMemoryUserRepo() *inMemoryUserRepo {
	return &inMemoryUserRepo{
		users:      map[string]*domain.User{},
		candidates: map[string]*domain.CandidateProfile{},
		recruiters: map[string]*domain.RecruiterProfile{},
		companies:  map[string]bool{},
	}
}

func (r *inMemoryUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *inMemoryUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = domain.NormalizeEmail(email)
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *inMemoryUserRepo) insertLocked(user *domain.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	user.Email = domain.NormalizeEmail(user.Email)
	for _, u := range r.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *inMemoryUserRepo) CreateCandidate(_ context.Context, user *domain.User, profile *domain.CandidateProfile, phones []domain.CandidatePhone) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.insertLocked(user); err != nil {
		return err
	}
	profile.UserID = user.ID
	cp := *profile
	r.candidates[user.ID] = &cp
	r.phones += len(phones)
	return nil
}

func (r *inMemoryUserRepo) CreateRecruiter(_ context.Context, user *domain.User, profile *domain.RecruiterProfile, phones []domain.RecruiterPhone) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.companies[profile.CompanyID] {
		return repository.ErrCompanyNotFound
	}
	if err := r.insertLocked(user); err != nil {
		return err
	}
	profile.UserID = user.ID
	cp := *profile
	r.recruiters[user.ID] = &cp
	r.phones += len(phones)
	return nil
}

func (r *inMemoryUserRepo) UpdateResetCode(_ context.Context, userID, codeHash string, expiresAt time.Time) error {
	return r.mutate(userID, func(u *domain.User) {
		u.ResetCodeHash = &codeHash
		u.ResetCodeExpiresAt = &expiresAt
	})
}

func (r *inMemoryUserRepo) ResetPassword(ctx context.Context, userID, codeHash, passwordHash string, now time.Time) (bool, error) {
	r.mu.Lock()
	u, ok := r.users[userID]
	if !ok {
		r.mu.Unlock()
		return false, repository.ErrUserNotFound
	}
	if u.ResetCodeHash == nil || *u.ResetCodeHash != codeHash || u.ResetCodeExpiresAt == nil || !u.ResetCodeExpiresAt.After(now) {
		r.mu.Unlock()
		return false, nil
	}
	u.PasswordHash = passwordHash
	u.ResetCodeHash = nil
	u.ResetCodeExpiresAt = nil
	r.mu.Unlock()
	if r.sessions != nil {
		if _, err := r.sessions.RevokeByUserID(ctx, userID, repository.RevokeReasonPasswordReset); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (r *inMemoryUserRepo) SetActive(_ context.Context, userID string, active bool) error {
	return r.mutate(userID, func(u *domain.User) { u.IsActive = active })
}

func (r *inMemoryUserRepo) mutate(userID string, fn func(*domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	fn(u)
	return nil
}

func (r *inMemoryUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

type inMemoryCompanyRepo struct{ users *inMemoryUserRepo }

func (r inMemoryCompanyRepo) FindByID(_ context.Context, id string) (*domain.Company, error) {
	r.users.mu.Lock()
	defer r.users.mu.Unlock()
	if !r.users.companies[id] {
		return nil, repository.ErrCompanyNotFound
	}
	return &domain.Company{ID: id, Name: "company"}, nil
}

func (r inMemoryCompanyRepo) Create(_ context.Context, c *domain.Company) error {
	r.users.mu.Lock()
	defer r.users.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	r.users.companies[c.ID] = true
	return nil
}

type inMemorySessionRepo struct {
	mu        sync.Mutex
	byID      map[string]*domain.Session
	now       func() time.Time
	revokeErr error
}

func newInMemorySessionRepo(now func() time.Time) *inMemorySessionRepo {
	return &inMemorySessionRepo{byID: map[string]*domain.Session{}, now: now}
}

func (r *inMemorySessionRepo) Create(_ context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.byID[s.ID] = &cp
	return nil
}

func (r *inMemorySessionRepo) FindByID(_ context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *inMemorySessionRepo) ListActiveByUserID(_ context.Context, userID string) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Session
	for _, s := range r.byID {
		if s.UserID == userID && s.State(r.now()) == domain.SessionActive {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *inMemorySessionRepo) RotateRefreshHash(_ context.Context, sessionID, expectedHash, newHash string, meta domain.ClientMeta) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[sessionID]
	if !ok || s.RefreshTokenHash != expectedHash || s.State(r.now()) != domain.SessionActive {
		return false, nil
	}
	s.RefreshTokenHash = newHash
	s.IP = meta.IP
	s.UserAgent = meta.UserAgent
	return true, nil
}

func (r *inMemorySessionRepo) RevokeByIDForUser(_ context.Context, userID, sessionID, reason string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[sessionID]
	if !ok || s.UserID != userID {
		return false, repository.ErrSessionNotFound
	}
	if s.RevokedAt != nil {
		return false, nil
	}
	now := r.now()
	s.RevokedAt = &now
	s.RevokedReason = &reason
	return true, nil
}

func (r *inMemorySessionRepo) RevokeByUserID(_ context.Context, userID, reason string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.revokeErr != nil {
		return 0, r.revokeErr
	}
	var n int64
	now := r.now()
	for _, s := range r.byID {
		if s.UserID == userID && s.RevokedAt == nil {
			s.RevokedAt = &now
			s.RevokedReason = &reason
			n++
		}
	}
	return n, nil
}

func (r *inMemorySessionRepo) RevokeExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.byID {
		if s.RevokedAt == nil && !s.ExpiresAt.After(before) {
			now := r.now()
			reason := repository.RevokeReasonExpired
			s.RevokedAt = &now
			s.RevokedReason = &reason
			n++
		}
	}
	return n, nil
}

func (r *inMemorySessionRepo) get(id string) domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.byID[id]
}

func (r *inMemorySessionRepo) forUser(userID string) []domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Session
	for _, s := range r.byID {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out
}

type inMemoryRevokedRepo struct {
	mu       sync.Mutex
	entries  map[string]domain.RevokedAccessToken
	writeErr error
	lookups  int
}

func newInMemoryRevokedRepo() *inMemoryRevokedRepo {
	return &inMemoryRevokedRepo{entries: map[string]domain.RevokedAccessToken{}}
}

func (r *inMemoryRevokedRepo) Revoke(_ context.Context, t *domain.RevokedAccessToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return r.writeErr
	}
	if _, ok := r.entries[t.JTI]; !ok {
		r.entries[t.JTI] = *t
	}
	return nil
}

func (r *inMemoryRevokedRepo) FindByJTI(_ context.Context, jti string) (*domain.RevokedAccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	t, ok := r.entries[jti]
	if !ok {
		return nil, repository.ErrRevokedTokenNotFound
	}
	return &t, nil
}

func (r *inMemoryRevokedRepo) PurgeExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for jti, t := range r.entries {
		if !t.ExpiresAt.After(before) {
			delete(r.entries, jti)
			n++
		}
	}
	return n, nil
}

type recordingSender struct {
	mu    sync.Mutex
	codes map[string]string
}

func (s *recordingSender) SendResetCode(_ context.Context, email, code string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.codes == nil {
		s.codes = map[string]string{}
	}
	s.codes[email] = code
	return nil
}

func (s *recordingSender) last(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[email]
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

const (
	testAccessSecret  = "access-secret-access-secret-0123"
	testRefreshSecret = "refresh-secret-refresh-secret-01"
	testPepper        = "pepper-pepper-pepper"
)

type authFixture struct {
	clock    *testClock
	users    *inMemoryUserRepo
	sessions *inMemorySessionRepo
	revoked  *inMemoryRevokedRepo
	sender   *recordingSender
	tokens   *TokenService
	auth     *AuthService
	hasher   security.PasswordHasher
}

func newAuthFixture() *authFixture {
	clock := &testClock{t: time.Now().UTC().Truncate(time.Second)}
	users := newInMemoryUserRepo()
	sessions := newInMemorySessionRepo(clock.Now)
	users.sessions = sessions
	revoked := newInMemoryRevokedRepo()
	sender := &recordingSender{}
	hasher := security.NewArgon2Hasher(security.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1})
	cfg := AuthConfig{AccessTTL: 15 * time.Minute, RefreshTTL: 24 * time.Hour, RefreshPepper: testPepper, ResetCodeTTL: 10 * time.Minute}

	jwtMgr := security.NewJWTManager("jobsy-identity", "jobsy-api", testAccessSecret, testRefreshSecret).WithClock(clock.Now)
	cache := NewInMemoryRevokedTokenCache()
	cache.now = clock.Now
	tokens := NewTokenService(jwtMgr, sessions, revoked, cache, cfg)
	tokens.now = clock.Now
	guard := NewInMemoryAuthAbuseGuard(AuthAbusePolicy{FreeAttempts: 3, BaseDelay: time.Minute})
	guard.now = clock.Now
	auth := NewAuthService(users, inMemoryCompanyRepo{users: users}, tokens, hasher, guard, sender, cfg)
	auth.now = clock.Now
	return &authFixture{clock: clock, users: users, sessions: sessions, revoked: revoked, sender: sender, tokens: tokens, auth: auth, hasher: hasher}
}

func (f *authFixture) registerCandidate(email, password string) *domain.PublicUser {
	u, err := f.auth.RegisterCandidate(context.Background(), RegisterCandidateInput{
		Email:    email,
		Password: password,
		Profile:  domain.CandidateProfileFields{Name: "Ada", Surname: "Lovelace"},
	})
	if err != nil {
		panic(err)
	}
	return u
}

var errBoom = errors.New("boom")
