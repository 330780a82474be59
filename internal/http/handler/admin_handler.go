package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jobsy/identity-service/internal/http/response"
	"github.com/jobsy/identity-service/internal/observability"
	"github.com/jobsy/identity-service/internal/service"
)

type AdminHandler struct {
	auth service.AuthServiceInterface
}

func NewAdminHandler(auth service.AuthServiceInterface) *AdminHandler {
	return &AdminHandler{auth: auth}
}

type setActiveRequest struct {
	Active *bool `json:"active"`
}

func (h *AdminHandler) SetUserActive(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	var req setActiveRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err)
		return
	}
	if req.Active == nil {
		badRequest(w, r, errors.New("active is required"))
		return
	}
	if err := h.auth.SetUserActive(r.Context(), userID, *req.Active); err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "admin.user.active", "outcome", "success", "user_id", userID, "active", *req.Active)
	response.JSON(w, r, http.StatusOK, map[string]any{"user_id": userID, "active": *req.Active})
}
