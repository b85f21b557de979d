// Package httpx holds the JSON plumbing shared by the API handlers. Clients
// always receive a JSON body with a human-readable error field, never a stack
// trace.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fieldserve/dispatch/core/errs"
)

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error string `json:"error"`
}

// WriteJSON encodes v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps the error taxonomy to a status code and writes the JSON
// envelope.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, StatusFor(err), ErrorBody{Error: err.Error()})
}

// StatusFor maps taxonomy sentinels to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound), errors.Is(err, errs.ErrIntegrity):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Decode reads the request body into v, rejecting malformed JSON as a
// validation failure.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errs.Validationf("invalid request body: %v", err)
	}
	return nil
}

// PostOnly rejects any method other than POST.
func PostOnly(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		WriteJSON(w, http.StatusMethodNotAllowed, ErrorBody{Error: "method not allowed"})
		return false
	}
	return true
}
