package auth

import (
	"context"
	"net/http"
	"strings"

	"lookout/internal/models"
	"lookout/internal/store"
)

// contextKey is the type for context keys in the auth package
type contextKey string

// SessionKey is the context key for session data
const SessionKey contextKey = "session"

// Middleware checks for a valid session before calling next.
func Middleware(cfg models.Config, s store.Store, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !cfg.AuthEnabled {
			next(w, r)
			return
		}

		session := SessionFromRequest(r, s)
		if session == nil {
			http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), SessionKey, session)
		next(w, r.WithContext(ctx))
	}
}

// SessionFromRequest extracts a session from the request cookie or
// Authorization header.
func SessionFromRequest(r *http.Request, s store.Store) *models.Session {
	var token string

	if cookie, err := r.Cookie("session"); err == nil {
		token = cookie.Value
	} else if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		token = strings.TrimPrefix(authHeader, "Bearer ")
	}

	session, err := s.SessionByToken(token)
	if err != nil {
		return nil
	}
	return session
}

// SessionFromContext extracts the session stored in the request context.
func SessionFromContext(r *http.Request) *models.Session {
	if session, ok := r.Context().Value(SessionKey).(*models.Session); ok {
		return session
	}
	return nil
}
