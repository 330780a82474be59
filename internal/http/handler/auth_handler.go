package handler

import (
	"net/http"
	"time"

	"github.com/jobsy/identity-service/internal/domain"
	"github.com/jobsy/identity-service/internal/http/middleware"
	"github.com/jobsy/identity-service/internal/http/response"
	"github.com/jobsy/identity-service/internal/observability"
	"github.com/jobsy/identity-service/internal/security"
	"github.com/jobsy/identity-service/internal/service"
)

type AuthHandler struct {
	auth    service.AuthServiceInterface
	cookies security.CookieOptions
}

func NewAuthHandler(auth service.AuthServiceInterface, cookies security.CookieOptions) *AuthHandler {
	return &AuthHandler{auth: auth, cookies: cookies}
}

type phoneRequest struct {
	Number    string `json:"number"`
	IsPrimary bool   `json:"is_primary"`
}

type registerCandidateRequest struct {
	Email             string         `json:"email"`
	Password          string         `json:"password"`
	Name              string         `json:"name"`
	Surname           string         `json:"surname"`
	Photo             string         `json:"photo"`
	CountryID         string         `json:"country_id"`
	City              string         `json:"city"`
	Address           string         `json:"address"`
	Resume            string         `json:"resume"`
	YearsOfExperience *int           `json:"years_of_experience"`
	Phones            []phoneRequest `json:"phones"`
}

type registerRecruiterRequest struct {
	Email     string         `json:"email"`
	Password  string         `json:"password"`
	Name      string         `json:"name"`
	Surname   string         `json:"surname"`
	Photo     string         `json:"photo"`
	JobTitle  string         `json:"job_title"`
	CompanyID string         `json:"company_id"`
	Phones    []phoneRequest `json:"phones"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

type tokenResponse struct {
	UserID           string      `json:"user_id"`
	Role             domain.Role `json:"role"`
	SessionID        string      `json:"session_id"`
	AccessToken      string      `json:"access_token"`
	RefreshToken     string      `json:"refresh_token"`
	AccessExpiresAt  time.Time   `json:"access_expires_at"`
	RefreshExpiresAt time.Time   `json:"refresh_expires_at"`
}

func toPhoneInputs(in []phoneRequest) []domain.PhoneInput {
	out := make([]domain.PhoneInput, 0, len(in))
	for _, p := range in {
		out = append(out, domain.PhoneInput{Number: p.Number, IsPrimary: p.IsPrimary})
	}
	return out
}

func clientMeta(r *http.Request) domain.ClientMeta {
	return domain.ClientMeta{IP: middleware.ClientIP(r), UserAgent: r.UserAgent()}
}

func (h *AuthHandler) RegisterCandidate(w http.ResponseWriter, r *http.Request) {
	var req registerCandidateRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err)
		return
	}
	user, err := h.auth.RegisterCandidate(r.Context(), service.RegisterCandidateInput{
		Email:    req.Email,
		Password: req.Password,
		Profile: domain.CandidateProfileFields{
			Name:              req.Name,
			Surname:           req.Surname,
			Photo:             req.Photo,
			CountryID:         req.CountryID,
			City:              req.City,
			Address:           req.Address,
			Resume:            req.Resume,
			YearsOfExperience: req.YearsOfExperience,
		},
		Phones: toPhoneInputs(req.Phones),
	})
	if err != nil {
		observability.Audit(r, "auth.register", "role", string(domain.RoleCandidate), "outcome", "failure", "reason", service.ReasonOf(err))
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.register", "role", string(domain.RoleCandidate), "outcome", "success", "user_id", user.ID)
	response.JSON(w, r, http.StatusCreated, user)
}

func (h *AuthHandler) RegisterRecruiter(w http.ResponseWriter, r *http.Request) {
	var req registerRecruiterRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err)
		return
	}
	user, err := h.auth.RegisterRecruiter(r.Context(), service.RegisterRecruiterInput{
		Email:    req.Email,
		Password: req.Password,
		Profile: domain.RecruiterProfileFields{
			Name:      req.Name,
			Surname:   req.Surname,
			Photo:     req.Photo,
			JobTitle:  req.JobTitle,
			CompanyID: req.CompanyID,
		},
		Phones: toPhoneInputs(req.Phones),
	})
	if err != nil {
		observability.Audit(r, "auth.register", "role", string(domain.RoleRecruiter), "outcome", "failure", "reason", service.ReasonOf(err))
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.register", "role", string(domain.RoleRecruiter), "outcome", "success", "user_id", user.ID)
	response.JSON(w, r, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err)
		return
	}
	result, err := h.auth.Login(r.Context(), req.Email, req.Password, clientMeta(r))
	if err != nil {
		observability.Audit(r, "auth.login", "outcome", "failure", "reason", service.ReasonOf(err))
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.login", "outcome", "success", "user_id", result.UserID, "session_id", result.Tokens.SessionID)
	h.writeTokens(w, r, result)
}

// Refresh accepts the refresh token from its cookie or, for non-browser
// clients, from the JSON body.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	raw := security.GetCookie(r, security.RefreshTokenCookie)
	if raw == "" && r.ContentLength != 0 {
		var req refreshRequest
		if err := decodeJSON(r, &req); err != nil {
			badRequest(w, r, err)
			return
		}
		raw = req.RefreshToken
	}
	if raw == "" {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "authentication failed", nil)
		return
	}
	result, err := h.auth.Refresh(r.Context(), raw, clientMeta(r))
	if err != nil {
		observability.Audit(r, "auth.refresh", "outcome", "failure", "reason", service.ReasonOf(err))
		if service.KindOf(err) == service.KindAuthentication {
			security.ClearTokenCookies(w, h.cookies.Secure)
		}
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.refresh", "outcome", "success", "user_id", result.UserID, "session_id", result.Tokens.SessionID)
	h.writeTokens(w, r, result)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "authentication failed", nil)
		return
	}
	if err := h.auth.Logout(r.Context(), claims); err != nil {
		observability.Audit(r, "auth.logout", "outcome", "failure", "reason", service.ReasonOf(err))
		writeServiceError(w, r, err)
		return
	}
	security.ClearTokenCookies(w, h.cookies.Secure)
	observability.Audit(r, "auth.logout", "outcome", "success", "user_id", claims.UserID(), "session_id", claims.SessionID)
	response.JSON(w, r, http.StatusOK, map[string]bool{"logged_out": true})
}

// ForgotPassword answers the same way whether or not the email is known.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err)
		return
	}
	if err := h.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		observability.Audit(r, "auth.password_reset.request", "outcome", "failure", "reason", service.ReasonOf(err))
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.password_reset.request", "outcome", "accepted")
	response.JSON(w, r, http.StatusAccepted, map[string]bool{"accepted": true})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err)
		return
	}
	if err := h.auth.ConfirmPasswordReset(r.Context(), req.Email, req.Code, req.NewPassword, middleware.ClientIP(r)); err != nil {
		observability.Audit(r, "auth.password_reset.confirm", "outcome", "failure", "reason", service.ReasonOf(err))
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.password_reset.confirm", "outcome", "success")
	response.JSON(w, r, http.StatusOK, map[string]bool{"password_reset": true})
}

func (h *AuthHandler) writeTokens(w http.ResponseWriter, r *http.Request, result *service.LoginResult) {
	pair := result.Tokens
	security.SetTokenCookies(w, pair.AccessToken, pair.RefreshToken, h.cookies)
	response.JSON(w, r, http.StatusOK, tokenResponse{
		UserID:           result.UserID,
		Role:             result.Role,
		SessionID:        pair.SessionID,
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	})
}
