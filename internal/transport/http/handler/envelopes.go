package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/saas-starter-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AuthEnvelope wraps login/refresh responses.
type AuthEnvelope struct {
	AccessToken  string          `json:"access_token,omitempty"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	Session      *domain.Session `json:"session,omitempty"`
	Account      *domain.Account `json:"account,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// SessionEnvelope wraps current-session responses.
type SessionEnvelope struct {
	Session *domain.Session `json:"session,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// PaginatedAccountsEnvelope wraps paginated account list responses.
type PaginatedAccountsEnvelope struct {
	Data       []domain.Account `json:"data"`
	NextCursor string           `json:"next_cursor,omitempty"`
	Error      string           `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// httpError maps domain errors to HTTP status codes. Unrecognized errors
// are reported as an opaque 500 so internals never leak to clients.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest), errors.Is(err, domain.ErrCodeInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrAlreadyVerified):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrDelivery):
		writeError(w, http.StatusBadGateway, domain.ErrDelivery.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
