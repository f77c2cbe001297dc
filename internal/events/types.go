package events

import "time"

// EventType identifies the kind of event being published.
type EventType string

const (
	BackupSucceeded  EventType = "backup_succeeded"
	BackupWarning    EventType = "backup_warning"
	BackupFailed     EventType = "backup_failed"
	DeviceRegistered EventType = "device_registered"
)

// Severity indicates the urgency of an event.
type Severity int

const (
	SeverityInfo     Severity = 0
	SeverityWarning  Severity = 1
	SeverityCritical Severity = 2
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Event is the payload published through the bus.
type Event struct {
	Type      EventType         `json:"type"`
	Severity  Severity          `json:"severity"`
	Hostname  string            `json:"hostname,omitempty"`
	JobName   string            `json:"job_name,omitempty"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
