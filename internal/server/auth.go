package server

import (
	"context"
	"net/http"
)

// emailHeader is set by the fronting auth proxy for every authenticated
// request.
const emailHeader = "X-Forwarded-Email"

type contextKey string

const userEmailKey contextKey = "user-email"

// userEmail returns the authenticated email from the request context.
func userEmail(r *http.Request) string {
	email, _ := r.Context().Value(userEmailKey).(string)
	return email
}

// authenticate resolves the caller identity from the proxy header, falling
// back to the configured development identity. Requests with neither are
// rejected.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email := r.Header.Get(emailHeader)
		if email == "" {
			email = s.config().Server.AuthFallbackEmail
		}
		if email == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Detail: "authentication required"})
			return
		}
		ctx := context.WithValue(r.Context(), userEmailKey, email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin guards the management endpoints behind the admin list.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.isAdmin(userEmail(r)) {
			writeJSON(w, http.StatusForbidden, errorBody{Detail: "admin access required"})
			return
		}
		next(w, r)
	}
}

func (s *Server) isAdmin(email string) bool {
	for _, admin := range s.config().App.AdminEmails {
		if admin == email {
			return true
		}
	}
	return false
}
