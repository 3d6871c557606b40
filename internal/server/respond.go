package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"wikigit/internal/wiki"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Detail string   `json:"detail"`
	Errors []string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps the error taxonomy onto HTTP status codes and renders the
// standard error body.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorBody{Detail: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, wiki.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, wiki.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, wiki.ErrAlreadyExists),
		errors.Is(err, wiki.ErrNotEmpty),
		errors.Is(err, wiki.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, wiki.ErrReadOnly),
		errors.Is(err, wiki.ErrDisabled),
		errors.Is(err, wiki.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", wiki.ErrValidation, err)
	}
	return nil
}
