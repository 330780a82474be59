package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/jobsy/identity-service/internal/domain"
	"github.com/jobsy/identity-service/internal/observability"
	"github.com/jobsy/identity-service/internal/repository"
	"github.com/jobsy/identity-service/internal/security"
)

const MinPasswordLength = 8

type RegisterCandidateInput struct {
	Email    string
	Password string
	Profile  domain.CandidateProfileFields
	Phones   []domain.PhoneInput
}

type RegisterRecruiterInput struct {
	Email    string
	Password string
	Profile  domain.RecruiterProfileFields
	Phones   []domain.PhoneInput
}

type LoginResult struct {
	UserID string
	Role   domain.Role
	Tokens *TokenPair
}

type MeResult struct {
	UserID    string      `json:"user_id"`
	Role      domain.Role `json:"role"`
	SessionID string      `json:"session_id"`
}

// AuthService runs the registration, login, refresh and logout flows. It holds
// no state between calls beyond its collaborators.
type AuthService struct {
	users     repository.UserRepository
	companies repository.CompanyRepository
	tokens    *TokenService
	hasher    security.PasswordHasher
	abuse     AuthAbuseGuard
	sender    ResetCodeSender
	cfg       AuthConfig
	now       func() time.Time
	dummyHash string
}

func NewAuthService(users repository.UserRepository, companies repository.CompanyRepository, tokens *TokenService, hasher security.PasswordHasher, abuse AuthAbuseGuard, sender ResetCodeSender, cfg AuthConfig) *AuthService {
	if abuse == nil {
		abuse = NoopAuthAbuseGuard{}
	}
	if sender == nil {
		sender = NewLogResetCodeSender(nil)
	}
	s := &AuthService{
		users:     users,
		companies: companies,
		tokens:    tokens,
		hasher:    hasher,
		abuse:     abuse,
		sender:    sender,
		cfg:       cfg.withDefaults(),
		now:       time.Now,
	}
	// Unknown emails still pay for one verification so timing does not reveal
	// whether an account exists.
	if h, err := hasher.Hash("jobsy-identity-placeholder"); err == nil {
		s.dummyHash = h
	}
	return s
}

func (s *AuthService) RegisterCandidate(ctx context.Context, in RegisterCandidateInput) (*domain.PublicUser, error) {
	ctx, span := observability.StartSpan(ctx, "auth.register_candidate")
	defer span.End()
	user, err := s.registerCandidate(ctx, in)
	observability.RecordAuthRegister(string(domain.RoleCandidate), outcome(err))
	return user, err
}

func (s *AuthService) registerCandidate(ctx context.Context, in RegisterCandidateInput) (*domain.PublicUser, error) {
	if err := validateIdentityInput(in.Email, in.Password, in.Profile.Name, in.Profile.Surname); err != nil {
		return nil, err
	}
	if err := s.ensureEmailAvailable(ctx, in.Email); err != nil {
		return nil, err
	}
	if !domain.ValidPrimaryPhoneCount(in.Phones) {
		return nil, ErrMultiplePrimaryPhones
	}
	user, err := s.newUser(in.Email, in.Password, domain.RoleCandidate)
	if err != nil {
		return nil, err
	}
	profile := &domain.CandidateProfile{
		Name:              strings.TrimSpace(in.Profile.Name),
		Surname:           strings.TrimSpace(in.Profile.Surname),
		Photo:             in.Profile.Photo,
		CountryID:         in.Profile.CountryID,
		City:              in.Profile.City,
		Address:           in.Profile.Address,
		Resume:            in.Profile.Resume,
		YearsOfExperience: in.Profile.YearsOfExperience,
		ProfileCompleted:  domain.IsCandidateProfileComplete(in.Profile),
	}
	phones := make([]domain.CandidatePhone, 0, len(in.Phones))
	for _, p := range in.Phones {
		phones = append(phones, domain.CandidatePhone{Number: strings.TrimSpace(p.Number), IsPrimary: p.IsPrimary})
	}
	if err := s.users.CreateCandidate(ctx, user, profile, phones); err != nil {
		return nil, mapRegisterError(err)
	}
	pub := user.Public()
	return &pub, nil
}

func (s *AuthService) RegisterRecruiter(ctx context.Context, in RegisterRecruiterInput) (*domain.PublicUser, error) {
	ctx, span := observability.StartSpan(ctx, "auth.register_recruiter")
	defer span.End()
	user, err := s.registerRecruiter(ctx, in)
	observability.RecordAuthRegister(string(domain.RoleRecruiter), outcome(err))
	return user, err
}

func (s *AuthService) registerRecruiter(ctx context.Context, in RegisterRecruiterInput) (*domain.PublicUser, error) {
	if err := validateIdentityInput(in.Email, in.Password, in.Profile.Name, in.Profile.Surname); err != nil {
		return nil, err
	}
	companyID := strings.TrimSpace(in.Profile.CompanyID)
	if companyID == "" {
		return nil, invalidInput("company_id is required")
	}
	if err := s.ensureEmailAvailable(ctx, in.Email); err != nil {
		return nil, err
	}
	if _, err := s.companies.FindByID(ctx, companyID); err != nil {
		if errors.Is(err, repository.ErrCompanyNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, fmt.Errorf("lookup company: %w", err)
	}
	if !domain.ValidPrimaryPhoneCount(in.Phones) {
		return nil, ErrMultiplePrimaryPhones
	}
	user, err := s.newUser(in.Email, in.Password, domain.RoleRecruiter)
	if err != nil {
		return nil, err
	}
	profile := &domain.RecruiterProfile{
		Name:      strings.TrimSpace(in.Profile.Name),
		Surname:   strings.TrimSpace(in.Profile.Surname),
		JobTitle:  in.Profile.JobTitle,
		Photo:     in.Profile.Photo,
		CompanyID: companyID,
		Verified:  domain.IsRecruiterProfileComplete(in.Profile),
	}
	phones := make([]domain.RecruiterPhone, 0, len(in.Phones))
	for _, p := range in.Phones {
		phones = append(phones, domain.RecruiterPhone{Number: strings.TrimSpace(p.Number), IsPrimary: p.IsPrimary})
	}
	// The company is checked again inside the create transaction.
	if err := s.users.CreateRecruiter(ctx, user, profile, phones); err != nil {
		return nil, mapRegisterError(err)
	}
	pub := user.Public()
	return &pub, nil
}

func validateIdentityInput(email, password, name, surname string) error {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return invalidInput("a valid email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return invalidInput("a valid email is required")
	}
	if len(password) < MinPasswordLength {
		return invalidInput(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if strings.TrimSpace(name) == "" || strings.TrimSpace(surname) == "" {
		return invalidInput("name and surname are required")
	}
	return nil
}

// ensureEmailAvailable is a fast path; uniqueness is enforced again inside the
// create transaction and by the unique index.
func (s *AuthService) ensureEmailAvailable(ctx context.Context, email string) error {
	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrEmailTaken
	case errors.Is(err, repository.ErrUserNotFound):
		return nil
	default:
		return fmt.Errorf("lookup email: %w", err)
	}
}

func (s *AuthService) newUser(email, password string, role domain.Role) (*domain.User, error) {
	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return &domain.User{Email: domain.NormalizeEmail(email), PasswordHash: digest, Role: role, IsActive: true}, nil
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return ReasonOf(err)
}

func mapRegisterError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrDuplicateEmail):
		return ErrEmailTaken
	case errors.Is(err, repository.ErrCompanyNotFound):
		return ErrCompanyNotFound
	default:
		return fmt.Errorf("create user: %w", err)
	}
}

// Login never distinguishes unknown email, inactive user, wrong password or
// throttling to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string, meta domain.ClientMeta) (*LoginResult, error) {
	ctx, span := observability.StartSpan(ctx, "auth.login")
	defer span.End()
	email = domain.NormalizeEmail(email)
	if wait, err := s.abuse.Check(ctx, AuthAbuseScopeLogin, email, meta.IP); err != nil {
		slog.WarnContext(ctx, "auth abuse guard check failed", "error", err)
	} else if wait > 0 {
		observability.RecordAuthLogin(ErrLoginThrottled.Reason)
		return nil, ErrLoginThrottled
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		observability.RecordAuthLogin("error")
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil || !user.IsActive {
		if s.dummyHash != "" {
			s.hasher.Verify(s.dummyHash, password)
		}
		return nil, s.loginFailed(ctx, email, meta)
	}
	if !s.hasher.Verify(user.PasswordHash, password) {
		return nil, s.loginFailed(ctx, email, meta)
	}

	pair, err := s.tokens.Issue(ctx, user, meta)
	if err != nil {
		observability.RecordAuthLogin("error")
		return nil, err
	}
	if err := s.abuse.Reset(ctx, AuthAbuseScopeLogin, email, meta.IP); err != nil {
		slog.WarnContext(ctx, "auth abuse guard reset failed", "error", err)
	}
	observability.RecordAuthLogin("success")
	return &LoginResult{UserID: user.ID, Role: user.Role, Tokens: pair}, nil
}

func (s *AuthService) loginFailed(ctx context.Context, email string, meta domain.ClientMeta) error {
	if _, err := s.abuse.RegisterFailure(ctx, AuthAbuseScopeLogin, email, meta.IP); err != nil {
		slog.WarnContext(ctx, "auth abuse guard register failed", "error", err)
	}
	observability.RecordAuthLogin(ErrInvalidCredentials.Reason)
	return ErrInvalidCredentials
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string, meta domain.ClientMeta) (*LoginResult, error) {
	ctx, span := observability.StartSpan(ctx, "auth.refresh")
	defer span.End()
	pair, user, err := s.tokens.Rotate(ctx, refreshToken, s.users.FindByID, meta)
	if err != nil {
		observability.RecordAuthRefresh(ReasonOf(err))
		return nil, err
	}
	observability.RecordAuthRefresh("success")
	return &LoginResult{UserID: user.ID, Role: user.Role, Tokens: pair}, nil
}

// Logout denylists the presented access token and revokes its session. The
// denylist write is best effort; the session revocation is what counts.
func (s *AuthService) Logout(ctx context.Context, claims *security.Claims) error {
	if claims == nil {
		return ErrInvalidAccessToken
	}
	if err := s.tokens.RevokeAccessToken(ctx, claims); err != nil {
		slog.WarnContext(ctx, "access token denylist write failed", "error", err, "user_id", claims.UserID())
	}
	if _, err := s.tokens.RevokeSession(ctx, claims.UserID(), claims.SessionID, repository.RevokeReasonLogout); err != nil && !errors.Is(err, ErrSessionNotFound) {
		observability.RecordAuthLogout("error")
		return fmt.Errorf("revoke session: %w", err)
	}
	observability.RecordAuthLogout("success")
	return nil
}

func (s *AuthService) Me(claims *security.Claims) (*MeResult, error) {
	if claims == nil {
		return nil, ErrInvalidAccessToken
	}
	return &MeResult{UserID: claims.UserID(), Role: domain.Role(claims.Role), SessionID: claims.SessionID}, nil
}

// RequestPasswordReset issues a reset code for an active account. Unknown or
// inactive accounts succeed silently.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) || (err == nil && !user.IsActive) {
		observability.RecordPasswordReset("request", "ignored")
		return nil
	}
	if err != nil {
		observability.RecordPasswordReset("request", "error")
		return fmt.Errorf("lookup user: %w", err)
	}

	code, err := security.NewResetCode()
	if err != nil {
		return fmt.Errorf("generate reset code: %w", err)
	}
	digest, err := s.hasher.Hash(code)
	if err != nil {
		return fmt.Errorf("hash reset code: %w", err)
	}
	expiresAt := s.now().UTC().Add(s.cfg.ResetCodeTTL)
	if err := s.users.UpdateResetCode(ctx, user.ID, digest, expiresAt); err != nil {
		observability.RecordPasswordReset("request", "error")
		return fmt.Errorf("store reset code: %w", err)
	}
	if err := s.sender.SendResetCode(ctx, user.Email, code, expiresAt); err != nil {
		observability.RecordPasswordReset("request", "error")
		return fmt.Errorf("send reset code: %w", err)
	}
	observability.RecordPasswordReset("request", "success")
	return nil
}

// ConfirmPasswordReset replaces the password when code matches the stored,
// unexpired digest and revokes every session of the user. A code is consumed
// at most once, even under concurrent confirms.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, email, code, newPassword, ip string) error {
	email = domain.NormalizeEmail(email)
	if len(newPassword) < MinPasswordLength {
		return invalidInput(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if wait, err := s.abuse.Check(ctx, AuthAbuseScopeForgot, email, ip); err != nil {
		slog.WarnContext(ctx, "auth abuse guard check failed", "error", err)
	} else if wait > 0 {
		observability.RecordPasswordReset("confirm", ErrLoginThrottled.Reason)
		return ErrInvalidResetCode
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("lookup user: %w", err)
	}
	if user == nil || !user.IsActive || !s.resetCodeMatches(user, code) {
		if _, err := s.abuse.RegisterFailure(ctx, AuthAbuseScopeForgot, email, ip); err != nil {
			slog.WarnContext(ctx, "auth abuse guard register failed", "error", err)
		}
		observability.RecordPasswordReset("confirm", ErrInvalidResetCode.Reason)
		return ErrInvalidResetCode
	}

	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	consumed, err := s.users.ResetPassword(ctx, user.ID, *user.ResetCodeHash, digest, s.now())
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if !consumed {
		// A concurrent confirm with the same code got there first.
		observability.RecordPasswordReset("confirm", ErrInvalidResetCode.Reason)
		return ErrInvalidResetCode
	}
	if err := s.abuse.Reset(ctx, AuthAbuseScopeForgot, email, ip); err != nil {
		slog.WarnContext(ctx, "auth abuse guard reset failed", "error", err)
	}
	observability.RecordPasswordReset("confirm", "success")
	return nil
}

func (s *AuthService) resetCodeMatches(user *domain.User, code string) bool {
	if user.ResetCodeHash == nil || user.ResetCodeExpiresAt == nil {
		return false
	}
	if !user.ResetCodeExpiresAt.After(s.now()) {
		return false
	}
	if len(code) != security.ResetCodeLength {
		return false
	}
	return s.hasher.Verify(*user.ResetCodeHash, code)
}

// SetUserActive toggles the authentication gate. Deactivation also revokes
// every session so existing refresh tokens stop working immediately.
func (s *AuthService) SetUserActive(ctx context.Context, userID string, active bool) error {
	if err := s.users.SetActive(ctx, userID, active); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("set user active: %w", err)
	}
	if !active {
		if _, err := s.tokens.RevokeAll(ctx, userID, repository.RevokeReasonDeactivated); err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
	}
	observability.RecordUserActivationChange(active)
	return nil
}

func invalidInput(message string) error {
	return newError(KindValidation, "invalid_input", message)
}
