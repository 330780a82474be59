package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jobsy/identity-service/internal/http/middleware"
	"github.com/jobsy/identity-service/internal/http/response"
	"github.com/jobsy/identity-service/internal/observability"
	"github.com/jobsy/identity-service/internal/service"
)

type UserHandler struct {
	auth     service.AuthServiceInterface
	sessions service.SessionServiceInterface
}

func NewUserHandler(auth service.AuthServiceInterface, sessions service.SessionServiceInterface) *UserHandler {
	return &UserHandler{auth: auth, sessions: sessions}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "authentication failed", nil)
		return
	}
	me, err := h.auth.Me(claims)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, me)
}

func (h *UserHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "authentication failed", nil)
		return
	}
	views, err := h.sessions.ListActiveSessions(r.Context(), claims.UserID(), claims.SessionID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"sessions": views})
}

func (h *UserHandler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "authentication failed", nil)
		return
	}
	sessionID := chi.URLParam(r, "session_id")
	status, err := h.sessions.RevokeSession(r.Context(), claims.UserID(), sessionID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "session.revoke", "outcome", status, "user_id", claims.UserID(), "session_id", sessionID)
	response.JSON(w, r, http.StatusOK, map[string]string{"session_id": sessionID, "status": status})
}
