package store

import (
	"database/sql"
	"fmt"

	"lookout/internal/models"
)

const alertColumns = "id, device_id, title, message, severity, time, is_read"

// Alerts returns all alerts, most recent first.
func (s *SQLiteStore) Alerts() ([]models.Alert, error) {
	rows, err := s.q.Query("SELECT " + alertColumns + " FROM alerts ORDER BY time DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()
	return collectAlerts(rows)
}

// RecentAlerts returns the limit most recent alerts.
func (s *SQLiteStore) RecentAlerts(limit int) ([]models.Alert, error) {
	rows, err := s.q.Query(
		"SELECT "+alertColumns+" FROM alerts ORDER BY time DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list recent alerts: %w", err)
	}
	defer rows.Close()
	return collectAlerts(rows)
}

// CreateAlert inserts a new unread alert and returns it with its id.
func (s *SQLiteStore) CreateAlert(a *models.Alert) (*models.Alert, error) {
	var deviceID any
	if a.DeviceID != nil {
		deviceID = *a.DeviceID
	}

	res, err := s.q.Exec(
		"INSERT INTO alerts (device_id, title, message, severity, time) VALUES (?, ?, ?, ?, ?)",
		deviceID, a.Title, a.Message, a.Severity, formatTime(a.Time),
	)
	if err != nil {
		return nil, fmt.Errorf("insert alert: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.alert(id)
}

// MarkAlertRead sets is_read on an alert and returns the updated row.
// Marking an already-read alert is a no-op that returns the same state;
// an unknown id returns nil.
func (s *SQLiteStore) MarkAlertRead(id int64) (*models.Alert, error) {
	if _, err := s.q.Exec("UPDATE alerts SET is_read = 1 WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("mark alert read: %w", err)
	}
	return s.alert(id)
}

func (s *SQLiteStore) alert(id int64) (*models.Alert, error) {
	row := s.q.QueryRow("SELECT "+alertColumns+" FROM alerts WHERE id = ?", id)
	a, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func collectAlerts(rows *sql.Rows) ([]models.Alert, error) {
	var out []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanAlert(row rowScanner) (*models.Alert, error) {
	var a models.Alert
	var deviceID sql.NullInt64
	var alertTime string
	var isRead int

	if err := row.Scan(&a.ID, &deviceID, &a.Title, &a.Message, &a.Severity, &alertTime, &isRead); err != nil {
		return nil, err
	}

	if deviceID.Valid {
		a.DeviceID = &deviceID.Int64
	}
	a.Time = parseTime(alertTime)
	a.IsRead = isRead == 1
	return &a, nil
}
