package store

import (
	"database/sql"
	"fmt"

	"lookout/internal/models"
)

const deviceColumns = "id, hostname, ip, device_type, created_at"

// Devices returns all devices ordered by hostname.
func (s *SQLiteStore) Devices() ([]models.Device, error) {
	rows, err := s.q.Query("SELECT " + deviceColumns + " FROM devices ORDER BY hostname")
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var out []models.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// Device retrieves a device by id, or nil if it does not exist.
func (s *SQLiteStore) Device(id int64) (*models.Device, error) {
	row := s.q.QueryRow("SELECT "+deviceColumns+" FROM devices WHERE id = ?", id)
	d, err := scanDevice(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return d, err
}

// DeviceByHostname retrieves a device by its hostname. Matching is
// exact and case-sensitive; hostnames are trimmed once at validation
// time, so lookup and de-duplication always see the canonical form.
func (s *SQLiteStore) DeviceByHostname(hostname string) (*models.Device, error) {
	row := s.q.QueryRow("SELECT "+deviceColumns+" FROM devices WHERE hostname = ?", hostname)
	d, err := scanDevice(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return d, err
}

// CreateDevice inserts a new device and returns it with its assigned id.
func (s *SQLiteStore) CreateDevice(d *models.Device) (*models.Device, error) {
	if d.DeviceType == "" {
		d.DeviceType = "unknown"
	}
	res, err := s.q.Exec(
		"INSERT INTO devices (hostname, ip, device_type) VALUES (?, ?, ?)",
		d.Hostname, d.IP, d.DeviceType,
	)
	if err != nil {
		return nil, fmt.Errorf("insert device: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.Device(id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*models.Device, error) {
	var d models.Device
	var createdAt string
	if err := row.Scan(&d.ID, &d.Hostname, &d.IP, &d.DeviceType, &createdAt); err != nil {
		return nil, err
	}
	d.CreatedAt = parseTime(createdAt)
	return &d, nil
}
