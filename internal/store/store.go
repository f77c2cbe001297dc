// Package store holds the persistence layer: devices, backup reports,
// alerts, API keys, users, sessions, and notification services. The
// Store interface keeps callers independent of the backing database;
// the SQLite implementation lives in this package.
package store

import (
	"time"

	"lookout/internal/models"
)

// Date-range filter buckets, measured against the report's event time
// at query execution.
const (
	Range24h = "24h"
	Range3d  = "3d"
	Range7d  = "7d"
	Range30d = "30d"
)

// RangeCutoff translates a date-range bucket into a cutoff instant
// relative to now. ok is false for unknown buckets.
func RangeCutoff(dateRange string, now time.Time) (time.Time, bool) {
	switch dateRange {
	case Range24h:
		return now.Add(-24 * time.Hour), true
	case Range3d:
		return now.AddDate(0, 0, -3), true
	case Range7d:
		return now.AddDate(0, 0, -7), true
	case Range30d:
		return now.AddDate(0, 0, -30), true
	default:
		return time.Time{}, false
	}
}

// ReportFilters narrows a backup report listing. Filters combine with
// AND semantics; a zero value means no restriction on that dimension.
type ReportFilters struct {
	Status     string
	DateRange  string
	DeviceType string
}

// Store is the persistence contract. Get-style methods return a nil
// record (and nil error) when the id or key does not exist.
type Store interface {
	// Transact runs fn against a store view bound to a single
	// transaction. Returning an error rolls everything back.
	Transact(fn func(Store) error) error

	// Devices
	Devices() ([]models.Device, error)
	Device(id int64) (*models.Device, error)
	DeviceByHostname(hostname string) (*models.Device, error)
	CreateDevice(d *models.Device) (*models.Device, error)

	// Backup reports
	BackupReports(f ReportFilters) ([]models.BackupReport, error)
	BackupReportsByDevice(deviceID int64) ([]models.BackupReport, error)
	LatestReportPerDevice() ([]models.BackupReport, error)
	CreateBackupReport(r *models.BackupReport) (*models.BackupReport, error)

	// Alerts
	Alerts() ([]models.Alert, error)
	RecentAlerts(limit int) ([]models.Alert, error)
	CreateAlert(a *models.Alert) (*models.Alert, error)
	MarkAlertRead(id int64) (*models.Alert, error)

	// API keys
	APIKeys() ([]models.APIKey, error)
	APIKey(id int64) (*models.APIKey, error)
	APIKeyByValue(key string) (*models.APIKey, error)
	CreateAPIKey(k *models.APIKey) (*models.APIKey, error)
	SetAPIKeyActive(id int64, active bool) (*models.APIKey, error)
	DeleteAPIKey(id int64) (bool, error)
	ValidateAPIKey(key string) (bool, error)

	// Users and sessions
	User(id int64) (*models.User, error)
	UserByUsername(username string) (*models.User, error)
	CreateUser(u *models.User) (*models.User, error)
	CountUsers() (int, error)
	CreateSession(token string, userID int64, expiresAt time.Time) error
	SessionByToken(token string) (*models.Session, error)
	DeleteSession(token string) error
	CleanupExpiredSessions() error

	// Notification services
	NotificationServices() ([]models.NotificationService, error)
	EnabledNotificationServices() ([]models.NotificationService, error)
	NotificationService(id int64) (*models.NotificationService, error)
	CreateNotificationService(svc *models.NotificationService) (*models.NotificationService, error)
	UpdateNotificationService(svc *models.NotificationService) error
	DeleteNotificationService(id int64) (bool, error)
	RecordNotification(rec *models.NotificationRecord) error

	// Aggregation
	DashboardStats() (*models.DashboardStats, error)
}
