package models

import "time"

// Backup report status values. These are part of the agent wire format
// and must not be renamed.
const (
	StatusSuccess = "success"
	StatusWarning = "warning"
	StatusFailed  = "failed"
)

// ValidStatus reports whether s is a known backup status.
func ValidStatus(s string) bool {
	return s == StatusSuccess || s == StatusWarning || s == StatusFailed
}

// Alert severity values.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Device is a host that backup reports originate from.
// Identity is the hostname: one device per distinct hostname.
type Device struct {
	ID         int64     `json:"id"`
	Hostname   string    `json:"hostname"`
	IP         string    `json:"ip"`
	DeviceType string    `json:"deviceType"` // server, workstation, unknown
	CreatedAt  time.Time `json:"createdAt"`
}

// BackupReport is a single backup-job completion notification.
// Reports are immutable once stored; history accumulates.
type BackupReport struct {
	ID           int64     `json:"id"`
	DeviceID     int64     `json:"deviceId"`
	Status       string    `json:"status"`
	Time         time.Time `json:"time"` // event time reported by the agent
	Size         string    `json:"size"` // display string, e.g. "56.2 GB"
	SizeBytes    int64     `json:"sizeBytes"`
	Duration     int64     `json:"duration"` // seconds
	JobName      string    `json:"jobName"`
	ErrorMessage string    `json:"errorMessage"`
	FileCount    int64     `json:"fileCount"`

	SourcePath       string `json:"sourcePath"`
	DestinationPath  string `json:"destinationPath"`
	CompressionRatio int64  `json:"compressionRatio"`
	ChangedFiles     int64  `json:"changedFiles"`
	DeletedFiles     int64  `json:"deletedFiles"`
	AddedFiles       int64  `json:"addedFiles"`
	ModifiedFiles    int64  `json:"modifiedFiles"`
	ExaminingFiles   int64  `json:"examiningFiles"`

	WasVerified        bool       `json:"wasVerified"`
	VerificationResult string     `json:"verificationResult"`
	VerificationErrors string     `json:"verificationErrors"`
	LastVerification   *time.Time `json:"lastVerification,omitempty"`

	Metadata map[string]any `json:"metadata"`
}

// Alert is a notification derived from a non-success report.
// The only mutation after creation is marking it read.
type Alert struct {
	ID       int64     `json:"id"`
	DeviceID *int64    `json:"deviceId"` // nil for device-less alerts
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Severity string    `json:"severity"` // error, warning, info
	Time     time.Time `json:"time"`     // ingestion time, not the report's event time
	IsRead   bool      `json:"isRead"`
}

// APIKey authorizes report submissions from agents.
type APIKey struct {
	ID        int64      `json:"id"`
	Key       string     `json:"key"`
	Name      string     `json:"name"`
	DeviceID  *int64     `json:"deviceId"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt"`
	LastUsed  *time.Time `json:"lastUsed"`
	IsActive  bool       `json:"isActive"`
}

// User is a dashboard account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Session is an active authenticated browser session.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DashboardStats summarizes fleet health. The three backup counters are
// computed over the latest report per device, so a device with no
// reports counts toward TotalDevices only.
type DashboardStats struct {
	TotalDevices   int `json:"totalDevices"`
	HealthyBackups int `json:"healthyBackups"`
	WarningBackups int `json:"warningBackups"`
	FailedBackups  int `json:"failedBackups"`
}

// NotificationService is a configured Shoutrrr destination for alert
// notifications.
type NotificationService struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	ServiceType     string    `json:"service_type"`
	ConfigJSON      string    `json:"config_json"`
	Enabled         bool      `json:"enabled"`
	NotifyOnError   bool      `json:"notify_on_error"`
	NotifyOnWarning bool      `json:"notify_on_warning"`
	NotifyOnInfo    bool      `json:"notify_on_info"`
	CooldownSecs    int       `json:"cooldown_secs"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NotificationRecord is one dispatched (or failed) notification.
type NotificationRecord struct {
	ID           int64     `json:"id"`
	ServiceID    int64     `json:"service_id"`
	EventType    string    `json:"event_type"`
	Hostname     string    `json:"hostname"`
	Message      string    `json:"message"`
	Status       string    `json:"status"` // sent, failed
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Config holds server configuration.
type Config struct {
	Port          string
	DBPath        string
	AdminUser     string
	AdminPass     string
	AuthEnabled   bool
	RequireAPIKey bool
}
