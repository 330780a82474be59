package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jobsy/identity-service/internal/http/response"
	"github.com/jobsy/identity-service/internal/service"
)

// writeServiceError maps the service error taxonomy onto the HTTP envelope.
// Authentication failures share one message so callers cannot tell reasons apart.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch service.KindOf(err) {
	case service.KindValidation:
		response.Error(w, r, http.StatusBadRequest, response.CodeValidation, err.Error(), nil)
	case service.KindConflict:
		response.Error(w, r, http.StatusConflict, response.CodeConflict, err.Error(), nil)
	case service.KindAuthentication:
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "authentication failed", nil)
	case service.KindNotFound:
		response.Error(w, r, http.StatusNotFound, response.CodeNotFound, err.Error(), nil)
	default:
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err.Error())
		response.Error(w, r, http.StatusInternalServerError, response.CodeInternal, "internal error", nil)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body too large")
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty")
		}
		return fmt.Errorf("invalid request body")
	}
	return nil
}

func badRequest(w http.ResponseWriter, r *http.Request, err error) {
	response.Error(w, r, http.StatusBadRequest, response.CodeBadRequest, err.Error(), nil)
}
