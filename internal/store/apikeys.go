package store

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/google/uuid"

	"lookout/internal/models"
)

const apiKeyColumns = "id, key, name, device_id, created_at, expires_at, last_used, is_active"

// APIKeys returns all API keys ordered by creation.
func (s *SQLiteStore) APIKeys() ([]models.APIKey, error) {
	rows, err := s.q.Query("SELECT " + apiKeyColumns + " FROM api_keys ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var out []models.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *k)
	}
	return out, rows.Err()
}

// APIKey retrieves a key by id, or nil if it does not exist.
func (s *SQLiteStore) APIKey(id int64) (*models.APIKey, error) {
	row := s.q.QueryRow("SELECT "+apiKeyColumns+" FROM api_keys WHERE id = ?", id)
	k, err := scanAPIKey(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return k, err
}

// APIKeyByValue retrieves a key by its secret value.
func (s *SQLiteStore) APIKeyByValue(key string) (*models.APIKey, error) {
	row := s.q.QueryRow("SELECT "+apiKeyColumns+" FROM api_keys WHERE key = ?", key)
	k, err := scanAPIKey(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return k, err
}

// CreateAPIKey inserts a new key. If k.Key is empty a fresh secret is
// generated.
func (s *SQLiteStore) CreateAPIKey(k *models.APIKey) (*models.APIKey, error) {
	if k.Key == "" {
		k.Key = uuid.NewString()
	}

	var deviceID any
	if k.DeviceID != nil {
		deviceID = *k.DeviceID
	}
	var expiresAt any
	if k.ExpiresAt != nil {
		expiresAt = formatTime(*k.ExpiresAt)
	}

	res, err := s.q.Exec(
		"INSERT INTO api_keys (key, name, device_id, expires_at, is_active) VALUES (?, ?, ?, ?, ?)",
		k.Key, k.Name, deviceID, expiresAt, boolInt(k.IsActive),
	)
	if err != nil {
		return nil, fmt.Errorf("insert api key: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.APIKey(id)
}

// SetAPIKeyActive toggles a key's active flag and returns the updated
// key, or nil if the id is unknown.
func (s *SQLiteStore) SetAPIKeyActive(id int64, active bool) (*models.APIKey, error) {
	if _, err := s.q.Exec("UPDATE api_keys SET is_active = ? WHERE id = ?", boolInt(active), id); err != nil {
		return nil, fmt.Errorf("update api key: %w", err)
	}
	return s.APIKey(id)
}

// DeleteAPIKey removes a key, reporting whether it existed.
func (s *SQLiteStore) DeleteAPIKey(id int64) (bool, error) {
	res, err := s.q.Exec("DELETE FROM api_keys WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete api key: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ValidateAPIKey reports whether key authorizes a submission and stamps
// last_used on success. Unknown, inactive, and expired keys all return
// false; the reason is logged but never exposed to the caller.
func (s *SQLiteStore) ValidateAPIKey(key string) (bool, error) {
	k, err := s.APIKeyByValue(key)
	if err != nil {
		return false, err
	}

	now := s.now()
	switch {
	case k == nil:
		log.Printf("🔑 Rejected unknown API key")
		return false, nil
	case !k.IsActive:
		log.Printf("🔑 Rejected inactive API key %q", k.Name)
		return false, nil
	case k.ExpiresAt != nil && k.ExpiresAt.Before(now):
		log.Printf("🔑 Rejected expired API key %q", k.Name)
		return false, nil
	}

	if _, err := s.q.Exec("UPDATE api_keys SET last_used = ? WHERE id = ?", formatTime(now), k.ID); err != nil {
		return false, fmt.Errorf("stamp api key last_used: %w", err)
	}
	return true, nil
}

func scanAPIKey(row rowScanner) (*models.APIKey, error) {
	var k models.APIKey
	var deviceID sql.NullInt64
	var createdAt string
	var expiresAt, lastUsed sql.NullString
	var isActive int

	err := row.Scan(&k.ID, &k.Key, &k.Name, &deviceID, &createdAt, &expiresAt, &lastUsed, &isActive)
	if err != nil {
		return nil, err
	}

	if deviceID.Valid {
		k.DeviceID = &deviceID.Int64
	}
	k.CreatedAt = parseTime(createdAt)
	k.ExpiresAt = parseNullTime(expiresAt)
	k.LastUsed = parseNullTime(lastUsed)
	k.IsActive = isActive == 1
	return &k, nil
}
