package store

import (
	"database/sql"
	"fmt"
	"time"

	"lookout/internal/models"
)

const userColumns = "id, username, password_hash, role, created_at"

// User retrieves a user by id, or nil if it does not exist.
func (s *SQLiteStore) User(id int64) (*models.User, error) {
	row := s.q.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// UserByUsername retrieves a user by username, or nil if unknown.
func (s *SQLiteStore) UserByUsername(username string) (*models.User, error) {
	row := s.q.QueryRow("SELECT "+userColumns+" FROM users WHERE username = ?", username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// CreateUser inserts a new user. PasswordHash must already be hashed.
func (s *SQLiteStore) CreateUser(u *models.User) (*models.User, error) {
	if u.Role == "" {
		u.Role = "viewer"
	}
	res, err := s.q.Exec(
		"INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)",
		u.Username, u.PasswordHash, u.Role,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.User(id)
}

// CountUsers returns the number of user accounts.
func (s *SQLiteStore) CountUsers() (int, error) {
	var n int
	err := s.q.QueryRow("SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}

// CreateSession stores a session token for a user.
func (s *SQLiteStore) CreateSession(token string, userID int64, expiresAt time.Time) error {
	_, err := s.q.Exec(
		"INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, userID, formatTime(expiresAt),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// SessionByToken retrieves an unexpired session, or nil.
func (s *SQLiteStore) SessionByToken(token string) (*models.Session, error) {
	if token == "" {
		return nil, nil
	}

	var session models.Session
	var expiresAt string
	err := s.q.QueryRow(`
		SELECT s.token, s.user_id, u.username, s.expires_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = ? AND s.expires_at > ?
	`, token, formatTime(s.now())).Scan(&session.Token, &session.UserID, &session.Username, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}

	session.ExpiresAt = parseTime(expiresAt)
	return &session, nil
}

// DeleteSession removes a session token.
func (s *SQLiteStore) DeleteSession(token string) error {
	_, err := s.q.Exec("DELETE FROM sessions WHERE token = ?", token)
	return err
}

// CleanupExpiredSessions removes sessions past their expiry.
func (s *SQLiteStore) CleanupExpiredSessions() error {
	_, err := s.q.Exec("DELETE FROM sessions WHERE expires_at < ?", formatTime(s.now()))
	return err
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var createdAt string
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &createdAt); err != nil {
		return nil, err
	}
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}
