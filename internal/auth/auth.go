// Package auth provides dashboard sessions: bcrypt password hashing,
// random session tokens, and the middleware guarding management routes.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"lookout/internal/models"
	"lookout/internal/store"
)

const sessionTTL = 7 * 24 * time.Hour

// HashPassword hashes a password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateToken creates a secure random token.
func GenerateToken() string {
	bytes := make([]byte, 32)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// CreateSession mints a session token for a user.
func CreateSession(s store.Store, userID int64) (string, time.Time, error) {
	token := GenerateToken()
	expiresAt := time.Now().Add(sessionTTL)
	if err := s.CreateSession(token, userID, expiresAt); err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// CreateDefaultAdmin creates the initial admin account if no users
// exist yet. A random password is generated (and logged once) unless
// ADMIN_PASS is set.
func CreateDefaultAdmin(s store.Store, cfg models.Config) {
	count, err := s.CountUsers()
	if err != nil || count > 0 {
		return
	}

	password := cfg.AdminPass
	if password == "" {
		password = GenerateToken()[:12]
		log.Printf("🔑 Generated admin password: %s", password)
		log.Printf("   Set ADMIN_PASS environment variable to use a custom password")
	}

	hash, err := HashPassword(password)
	if err != nil {
		log.Printf("⚠️  Could not hash admin password: %v", err)
		return
	}

	if _, err := s.CreateUser(&models.User{
		Username:     cfg.AdminUser,
		PasswordHash: hash,
		Role:         "admin",
	}); err != nil {
		log.Printf("⚠️  Could not create admin user: %v", err)
		return
	}
	log.Printf("✓ Created admin user: %s", cfg.AdminUser)
}
