package auth

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"lookout/internal/models"
	"lookout/internal/store"
)

// isSecureRequest checks if the request came over HTTPS (directly or
// via reverse proxy).
func isSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// Status returns authentication status for the UI.
func Status(cfg models.Config, s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := SessionFromRequest(r, s)

		var username string
		if session != nil {
			username = session.Username
		}

		jsonResponse(w, map[string]any{
			"auth_enabled":  cfg.AuthEnabled,
			"authenticated": session != nil,
			"username":      username,
		})
	}
}

// Login authenticates a user and sets the session cookie.
func Login(cfg models.Config, s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !cfg.AuthEnabled {
			jsonResponse(w, map[string]any{
				"success": true,
				"message": "Authentication disabled",
			})
			return
		}

		var creds struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			jsonError(w, "Invalid request", http.StatusBadRequest)
			return
		}

		user, err := s.UserByUsername(creds.Username)
		if err != nil || user == nil || !CheckPassword(user.PasswordHash, creds.Password) {
			jsonError(w, "Invalid username or password", http.StatusUnauthorized)
			return
		}

		token, expiresAt, err := CreateSession(s, user.ID)
		if err != nil {
			jsonError(w, "Failed to create session", http.StatusInternalServerError)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     "session",
			Value:    token,
			Path:     "/",
			Expires:  expiresAt,
			HttpOnly: true,
			Secure:   isSecureRequest(r),
			SameSite: http.SameSiteLaxMode,
		})

		log.Printf("🔓 Login: %s", user.Username)
		jsonResponse(w, map[string]any{
			"success":  true,
			"token":    token,
			"username": user.Username,
		})
	}
}

// Logout clears the session.
func Logout(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := SessionFromRequest(r, s)
		if session != nil {
			s.DeleteSession(session.Token)
		}

		http.SetCookie(w, &http.Cookie{
			Name:     "session",
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		})

		jsonResponse(w, map[string]any{"success": true})
	}
}

func jsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
