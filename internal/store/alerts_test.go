package store

import (
	"testing"
	"time"

	"lookout/internal/models"
)

func TestMarkAlertRead(t *testing.T) {
	s := newTestStore(t)
	d := mustCreateDevice(t, s, "h1", "server")

	a, err := s.CreateAlert(&models.Alert{
		DeviceID: &d.ID,
		Title:    "Backup failed for h1",
		Message:  "disk full",
		Severity: models.SeverityError,
		Time:     time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateAlert: %v", err)
	}
	if a.IsRead {
		t.Error("new alerts must start unread")
	}

	read, err := s.MarkAlertRead(a.ID)
	if err != nil {
		t.Fatalf("MarkAlertRead: %v", err)
	}
	if read == nil || !read.IsRead {
		t.Fatalf("expected read alert, got %+v", read)
	}

	// Marking again is idempotent.
	again, err := s.MarkAlertRead(a.ID)
	if err != nil {
		t.Fatalf("second MarkAlertRead: %v", err)
	}
	if again == nil || !again.IsRead {
		t.Fatalf("second mark should return the same state, got %+v", again)
	}
}

func TestMarkAlertReadUnknownID(t *testing.T) {
	s := newTestStore(t)
	a, err := s.MarkAlertRead(12345)
	if err != nil {
		t.Fatalf("MarkAlertRead: %v", err)
	}
	if a != nil {
		t.Errorf("unknown id should return nil, got %+v", a)
	}
}

func TestRecentAlertsLimit(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_, err := s.CreateAlert(&models.Alert{
			Title:    "alert",
			Message:  "m",
			Severity: models.SeverityWarning,
			Time:     base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("CreateAlert: %v", err)
		}
	}

	alerts, err := s.RecentAlerts(3)
	if err != nil {
		t.Fatalf("RecentAlerts: %v", err)
	}
	if len(alerts) != 3 {
		t.Fatalf("expected 3 alerts, got %d", len(alerts))
	}
	for i := 1; i < len(alerts); i++ {
		if alerts[i].Time.After(alerts[i-1].Time) {
			t.Errorf("alerts not ordered most recent first: %v then %v", alerts[i-1].Time, alerts[i].Time)
		}
	}
}

func TestDeviceLessAlert(t *testing.T) {
	s := newTestStore(t)
	a, err := s.CreateAlert(&models.Alert{
		Title:    "system",
		Message:  "maintenance window",
		Severity: models.SeverityInfo,
		Time:     time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateAlert: %v", err)
	}
	if a.DeviceID != nil {
		t.Errorf("expected nil device id, got %v", *a.DeviceID)
	}
}
