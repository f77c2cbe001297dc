package store

import (
	"database/sql"
	"fmt"

	"lookout/internal/models"
)

const serviceColumns = `id, name, service_type, config_json, enabled,
	notify_on_error, notify_on_warning, notify_on_info, cooldown_secs,
	created_at, updated_at`

// NotificationServices returns all configured notification services.
func (s *SQLiteStore) NotificationServices() ([]models.NotificationService, error) {
	return s.listServices("SELECT " + serviceColumns + " FROM notification_services ORDER BY name")
}

// EnabledNotificationServices returns only enabled services.
func (s *SQLiteStore) EnabledNotificationServices() ([]models.NotificationService, error) {
	return s.listServices("SELECT " + serviceColumns + " FROM notification_services WHERE enabled = 1 ORDER BY name")
}

func (s *SQLiteStore) listServices(query string) ([]models.NotificationService, error) {
	rows, err := s.q.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list notification services: %w", err)
	}
	defer rows.Close()

	var out []models.NotificationService
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *svc)
	}
	return out, rows.Err()
}

// NotificationService retrieves one service by id, or nil.
func (s *SQLiteStore) NotificationService(id int64) (*models.NotificationService, error) {
	row := s.q.QueryRow("SELECT "+serviceColumns+" FROM notification_services WHERE id = ?", id)
	svc, err := scanService(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return svc, err
}

// CreateNotificationService inserts a new Shoutrrr destination.
func (s *SQLiteStore) CreateNotificationService(svc *models.NotificationService) (*models.NotificationService, error) {
	if svc.ConfigJSON == "" {
		svc.ConfigJSON = "{}"
	}
	res, err := s.q.Exec(`
		INSERT INTO notification_services
			(name, service_type, config_json, enabled,
			 notify_on_error, notify_on_warning, notify_on_info, cooldown_secs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		svc.Name, svc.ServiceType, svc.ConfigJSON, boolInt(svc.Enabled),
		boolInt(svc.NotifyOnError), boolInt(svc.NotifyOnWarning),
		boolInt(svc.NotifyOnInfo), svc.CooldownSecs,
	)
	if err != nil {
		return nil, fmt.Errorf("create notification service: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.NotificationService(id)
}

// UpdateNotificationService updates a service's configuration.
func (s *SQLiteStore) UpdateNotificationService(svc *models.NotificationService) error {
	res, err := s.q.Exec(`
		UPDATE notification_services SET
			name = ?, service_type = ?, config_json = ?, enabled = ?,
			notify_on_error = ?, notify_on_warning = ?, notify_on_info = ?,
			cooldown_secs = ?, updated_at = ?
		WHERE id = ?`,
		svc.Name, svc.ServiceType, svc.ConfigJSON, boolInt(svc.Enabled),
		boolInt(svc.NotifyOnError), boolInt(svc.NotifyOnWarning),
		boolInt(svc.NotifyOnInfo), svc.CooldownSecs,
		formatTime(s.now()), svc.ID,
	)
	if err != nil {
		return fmt.Errorf("update notification service: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("notification service %d not found", svc.ID)
	}
	return nil
}

// DeleteNotificationService removes a service and reports whether it existed.
func (s *SQLiteStore) DeleteNotificationService(id int64) (bool, error) {
	res, err := s.q.Exec("DELETE FROM notification_services WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete notification service: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// RecordNotification appends a dispatch attempt to the history table.
func (s *SQLiteStore) RecordNotification(rec *models.NotificationRecord) error {
	_, err := s.q.Exec(`
		INSERT INTO notification_history
			(service_id, event_type, hostname, message, status, error_message)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ServiceID, rec.EventType, rec.Hostname, rec.Message, rec.Status, rec.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("record notification: %w", err)
	}
	return nil
}

func scanService(row rowScanner) (*models.NotificationService, error) {
	var svc models.NotificationService
	var enabled, onError, onWarning, onInfo int
	var createdAt, updatedAt string

	err := row.Scan(&svc.ID, &svc.Name, &svc.ServiceType, &svc.ConfigJSON,
		&enabled, &onError, &onWarning, &onInfo, &svc.CooldownSecs,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	svc.Enabled = enabled == 1
	svc.NotifyOnError = onError == 1
	svc.NotifyOnWarning = onWarning == 1
	svc.NotifyOnInfo = onInfo == 1
	svc.CreatedAt = parseTime(createdAt)
	svc.UpdatedAt = parseTime(updatedAt)
	return &svc, nil
}
