package response

import (
	"encoding/json"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Error codes carried in the envelope. Clients branch on these, never on message text.
const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeValidation   = "VALIDATION_ERROR"
	CodeConflict     = "CONFLICT"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeRateLimited  = "RATE_LIMITED"
	CodeNotReady     = "DEPENDENCY_UNREADY"
	CodeInternal     = "INTERNAL"
)

type envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
	Meta    meta      `json:"meta"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type meta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

var now = time.Now

func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	write(w, status, envelope{Success: true, Data: data, Meta: buildMeta(r)})
}

func Error(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	write(w, status, envelope{Error: &apiError{Code: code, Message: message, Details: details}, Meta: buildMeta(r)})
}

// write marshals before touching the header so an encoding failure can still
// become a clean 500. Bodies may carry tokens, hence no-store.
func write(w http.ResponseWriter, status int, body envelope) {
	payload, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		payload, _ = json.Marshal(envelope{
			Error: &apiError{Code: CodeInternal, Message: "internal error"},
			Meta:  body.Meta,
		})
	}
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(append(payload, '\n'))
}

func buildMeta(r *http.Request) meta {
	id := chimiddleware.GetReqID(r.Context())
	if id == "" {
		id = r.Header.Get("X-Request-Id")
	}
	if id == "" {
		id = "req-unknown"
	}
	return meta{RequestID: id, Timestamp: now().UTC()}
}
