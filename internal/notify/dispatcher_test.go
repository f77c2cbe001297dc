package notify

import (
	"errors"
	"sync"
	"testing"

	"lookout/internal/events"
	"lookout/internal/models"
	"lookout/internal/store"
)

type mockSender struct {
	mu       sync.Mutex
	sent     []string
	urls     []string
	failWith error
}

func (m *mockSender) Send(url, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.urls = append(m.urls, url)
	m.sent = append(m.sent, message)
	return nil
}

func (m *mockSender) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func newTestDispatcher(t *testing.T, sender Sender) (*Dispatcher, *store.SQLiteStore) {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	d := NewDispatcher(s, events.NewBus(), sender)
	return d, s
}

func mustCreateService(t *testing.T, s store.Store, svc models.NotificationService) *models.NotificationService {
	t.Helper()
	if svc.ConfigJSON == "" {
		svc.ConfigJSON = `{"shoutrrr_url":"ntfy://ntfy.sh/backups"}`
	}
	created, err := s.CreateNotificationService(&svc)
	if err != nil {
		t.Fatalf("CreateNotificationService: %v", err)
	}
	return created
}

func TestDispatcherSendsOnMatchingSeverity(t *testing.T) {
	sender := &mockSender{}
	d, s := newTestDispatcher(t, sender)

	mustCreateService(t, s, models.NotificationService{
		Name:          "ops",
		ServiceType:   "ntfy",
		Enabled:       true,
		NotifyOnError: true,
	})

	d.handle(events.Event{
		Type:     events.BackupFailed,
		Severity: events.SeverityCritical,
		Hostname: "web-01",
		Message:  "disk full",
		JobName:  "nightly",
	})

	if sender.count() != 1 {
		t.Fatalf("sent %d messages, want 1", sender.count())
	}
	if sender.urls[0] != "ntfy://ntfy.sh/backups" {
		t.Errorf("url = %q", sender.urls[0])
	}
	if sender.sent[0] != "❌ [web-01] disk full (job: nightly)" {
		t.Errorf("message = %q", sender.sent[0])
	}
}

func TestDispatcherSkipsDisabledSeverity(t *testing.T) {
	sender := &mockSender{}
	d, s := newTestDispatcher(t, sender)

	// Errors only; warnings must not go out.
	mustCreateService(t, s, models.NotificationService{
		Name:          "errors-only",
		ServiceType:   "ntfy",
		Enabled:       true,
		NotifyOnError: true,
	})

	d.handle(events.Event{
		Type:     events.BackupWarning,
		Severity: events.SeverityWarning,
		Hostname: "web-01",
		Message:  "partial backup",
	})

	if sender.count() != 0 {
		t.Fatalf("sent %d messages for disabled severity", sender.count())
	}
}

func TestDispatcherSkipsDisabledService(t *testing.T) {
	sender := &mockSender{}
	d, s := newTestDispatcher(t, sender)

	mustCreateService(t, s, models.NotificationService{
		Name:          "paused",
		ServiceType:   "ntfy",
		Enabled:       false,
		NotifyOnError: true,
	})

	d.handle(events.Event{
		Type:     events.BackupFailed,
		Severity: events.SeverityCritical,
		Hostname: "web-01",
	})

	if sender.count() != 0 {
		t.Fatalf("sent %d messages via disabled service", sender.count())
	}
}

func TestDispatcherCooldown(t *testing.T) {
	sender := &mockSender{}
	d, s := newTestDispatcher(t, sender)

	mustCreateService(t, s, models.NotificationService{
		Name:          "throttled",
		ServiceType:   "ntfy",
		Enabled:       true,
		NotifyOnError: true,
		CooldownSecs:  300,
	})

	e := events.Event{
		Type:     events.BackupFailed,
		Severity: events.SeverityCritical,
		Hostname: "web-01",
		Message:  "disk full",
	}
	d.handle(e)
	d.handle(e)

	if sender.count() != 1 {
		t.Fatalf("sent %d messages within cooldown, want 1", sender.count())
	}

	// A different event type has its own cooldown slot.
	d.handle(events.Event{
		Type:     events.BackupWarning,
		Severity: events.SeverityCritical,
		Hostname: "web-01",
	})
	if sender.count() != 2 {
		t.Fatalf("sent %d messages, want 2 across event types", sender.count())
	}
}

func TestDispatcherRecordsFailure(t *testing.T) {
	sender := &mockSender{failWith: errors.New("connection refused")}
	d, s := newTestDispatcher(t, sender)

	svc := mustCreateService(t, s, models.NotificationService{
		Name:          "flaky",
		ServiceType:   "ntfy",
		Enabled:       true,
		NotifyOnError: true,
	})

	d.handle(events.Event{
		Type:     events.BackupFailed,
		Severity: events.SeverityCritical,
		Hostname: "web-01",
		Message:  "disk full",
	})

	// The failed attempt still lands in history with its error.
	var status, errMsg string
	row := s.DB().QueryRow(
		"SELECT status, error_message FROM notification_history WHERE service_id = ?", svc.ID)
	if err := row.Scan(&status, &errMsg); err != nil {
		t.Fatalf("scan history: %v", err)
	}
	if status != "failed" {
		t.Errorf("status = %q, want failed", status)
	}
	if errMsg != "connection refused" {
		t.Errorf("error_message = %q", errMsg)
	}
}

func TestDispatcherIgnoresServiceWithoutURL(t *testing.T) {
	sender := &mockSender{}
	d, s := newTestDispatcher(t, sender)

	mustCreateService(t, s, models.NotificationService{
		Name:          "broken",
		ServiceType:   "ntfy",
		Enabled:       true,
		NotifyOnError: true,
		ConfigJSON:    `{}`,
	})

	d.handle(events.Event{
		Type:     events.BackupFailed,
		Severity: events.SeverityCritical,
		Hostname: "web-01",
	})

	if sender.count() != 0 {
		t.Fatalf("sent %d messages without a shoutrrr url", sender.count())
	}
}
