// Package ingest turns validated backup reports into persisted state:
// the owning device, the report row, and any derived alert.
package ingest

import (
	"fmt"
	"log"
	"time"

	"lookout/internal/events"
	"lookout/internal/models"
	"lookout/internal/schema"
	"lookout/internal/store"
)

// Broadcaster pushes ingest results to live dashboard clients.
type Broadcaster interface {
	Broadcast(frameType string, payload any)
}

// Result is what one ingested report produced. Alert is nil unless the
// report's status triggered one.
type Result struct {
	Report models.BackupReport `json:"report"`
	Device models.Device       `json:"device"`
	Alert  *models.Alert       `json:"alert,omitempty"`
}

// Processor runs the ingestion pipeline.
type Processor struct {
	store store.Store
	bus   *events.Bus
	live  Broadcaster

	// now is swappable in tests.
	now func() time.Time
}

// NewProcessor creates a processor. bus and live may be nil.
func NewProcessor(s store.Store, bus *events.Bus, live Broadcaster) *Processor {
	return &Processor{store: s, bus: bus, live: live, now: time.Now}
}

// ProcessReport persists one validated report as a single atomic unit:
// find or create the device by hostname, insert the report, and raise
// an alert when the status is warning or failed. Concurrent readers
// never observe a partially applied report.
func (p *Processor) ProcessReport(payload *schema.ReportPayload) (*Result, error) {
	var res Result
	var registered bool

	err := p.store.Transact(func(tx store.Store) error {
		device, err := tx.DeviceByHostname(payload.Hostname)
		if err != nil {
			return err
		}

		if device == nil {
			deviceType := payload.DeviceType
			if deviceType == "" {
				deviceType = "unknown"
			}
			device, err = tx.CreateDevice(&models.Device{
				Hostname:   payload.Hostname,
				IP:         payload.IP,
				DeviceType: deviceType,
			})
			if err != nil {
				return fmt.Errorf("create device %s: %w", payload.Hostname, err)
			}
			registered = true
			log.Printf("🖥️  Registered device: %s (%s)", device.Hostname, device.DeviceType)
		}
		res.Device = *device

		report, err := tx.CreateBackupReport(&models.BackupReport{
			DeviceID:           device.ID,
			Status:             payload.Status,
			Time:               payload.Time,
			Size:               payload.Size,
			SizeBytes:          payload.SizeBytes,
			Duration:           payload.Duration,
			JobName:            payload.JobName,
			ErrorMessage:       payload.ErrorMessage,
			FileCount:          payload.FileCount,
			SourcePath:         payload.SourcePath,
			DestinationPath:    payload.DestinationPath,
			CompressionRatio:   payload.CompressionRatio,
			ChangedFiles:       payload.ChangedFiles,
			DeletedFiles:       payload.DeletedFiles,
			AddedFiles:         payload.AddedFiles,
			ModifiedFiles:      payload.ModifiedFiles,
			ExaminingFiles:     payload.ExaminingFiles,
			WasVerified:        payload.WasVerified,
			VerificationResult: payload.VerificationResult,
			VerificationErrors: payload.VerificationErrors,
			LastVerification:   payload.LastVerification,
			Metadata:           payload.Metadata,
		})
		if err != nil {
			return fmt.Errorf("persist report for %s: %w", payload.Hostname, err)
		}
		res.Report = *report

		if payload.Status == models.StatusWarning || payload.Status == models.StatusFailed {
			alert, err := tx.CreateAlert(&models.Alert{
				DeviceID: &device.ID,
				Title:    fmt.Sprintf("Backup %s for %s", payload.Status, device.Hostname),
				Message:  alertMessage(payload),
				Severity: alertSeverity(payload.Status),
				Time:     p.now(),
			})
			if err != nil {
				return fmt.Errorf("raise alert for %s: %w", payload.Hostname, err)
			}
			res.Alert = alert
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("💾 Report: %s %s (job %q)", res.Device.Hostname, res.Report.Status, res.Report.JobName)
	p.publish(&res, registered)
	return &res, nil
}

// publish fans the result out to the event bus and live clients, after
// the transaction has committed.
func (p *Processor) publish(res *Result, registered bool) {
	if p.bus != nil {
		if registered {
			p.bus.Publish(events.Event{
				Type:     events.DeviceRegistered,
				Severity: events.SeverityInfo,
				Hostname: res.Device.Hostname,
				Message:  fmt.Sprintf("New device registered: %s", res.Device.Hostname),
			})
		}
		p.bus.Publish(busEvent(res))
	}

	if p.live != nil {
		p.live.Broadcast("report", res.Report)
		if res.Alert != nil {
			p.live.Broadcast("alert", res.Alert)
		}
	}
}

func busEvent(res *Result) events.Event {
	e := events.Event{
		Hostname: res.Device.Hostname,
		JobName:  res.Report.JobName,
	}

	switch res.Report.Status {
	case models.StatusFailed:
		e.Type = events.BackupFailed
		e.Severity = events.SeverityCritical
	case models.StatusWarning:
		e.Type = events.BackupWarning
		e.Severity = events.SeverityWarning
	default:
		e.Type = events.BackupSucceeded
		e.Severity = events.SeverityInfo
	}

	if res.Alert != nil {
		e.Message = res.Alert.Message
	} else {
		e.Message = fmt.Sprintf("Backup completed for %s", res.Device.Hostname)
	}
	return e
}

func alertMessage(payload *schema.ReportPayload) string {
	if payload.ErrorMessage != "" {
		return payload.ErrorMessage
	}
	return fmt.Sprintf("Backup completed with %s status.", payload.Status)
}

func alertSeverity(status string) string {
	if status == models.StatusFailed {
		return models.SeverityError
	}
	return models.SeverityWarning
}
