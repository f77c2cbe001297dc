// Package notify forwards alert events to configured Shoutrrr
// destinations (email, Discord, ntfy, etc.).
package notify

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nicholas-fedor/shoutrrr"

	"lookout/internal/events"
	"lookout/internal/models"
	"lookout/internal/store"
)

// Sender abstracts message dispatch so the dispatcher can be tested
// without hitting real services.
type Sender interface {
	Send(shoutrrrURL, message string) error
}

// ShoutrrrSender dispatches via the Shoutrrr library.
type ShoutrrrSender struct{}

func (ShoutrrrSender) Send(url, message string) error {
	return shoutrrr.Send(url, message)
}

// serviceConfig is the Shoutrrr URL extracted from a service's config_json.
type serviceConfig struct {
	ShoutrrrURL string `json:"shoutrrr_url"`
}

// Dispatcher subscribes to the event bus, filters by per-service
// severity flags, enforces cooldowns, and dispatches via Shoutrrr.
type Dispatcher struct {
	store  store.Store
	bus    *events.Bus
	sender Sender

	// cooldowns tracks the last dispatch time per (service_id, event_type).
	mu        sync.Mutex
	cooldowns map[string]time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher wired to the given bus and store.
func NewDispatcher(s store.Store, bus *events.Bus, sender Sender) *Dispatcher {
	if sender == nil {
		sender = ShoutrrrSender{}
	}
	return &Dispatcher{
		store:     s,
		bus:       bus,
		sender:    sender,
		cooldowns: make(map[string]time.Time),
		stopCh:    make(chan struct{}),
	}
}

// Start subscribes to all events and begins dispatching.
func (d *Dispatcher) Start() {
	ch := make(chan events.Event, 256)

	d.bus.Subscribe(func(e events.Event) {
		select {
		case ch <- e:
		default:
			log.Printf("notify: event queue full, dropping %s event", e.Type)
		}
	})

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case e := <-ch:
				d.handle(e)
			case <-d.stopCh:
				// Drain remaining events
				for {
					select {
					case e := <-ch:
						d.handle(e)
					default:
						return
					}
				}
			}
		}
	}()
}

// Stop signals the dispatcher goroutine to finish and waits for it.
func (d *Dispatcher) Stop() {
	close(d.stopCh)
	d.wg.Wait()
}

// handle processes a single event against all enabled services.
func (d *Dispatcher) handle(e events.Event) {
	services, err := d.store.EnabledNotificationServices()
	if err != nil {
		log.Printf("notify: list services: %v", err)
		return
	}

	for _, svc := range services {
		if !severityAllowed(svc, e.Severity) {
			continue
		}
		if d.inCooldown(svc, e) {
			continue
		}
		d.dispatch(svc, e)
	}
}

func severityAllowed(svc models.NotificationService, sev events.Severity) bool {
	switch sev {
	case events.SeverityCritical:
		return svc.NotifyOnError
	case events.SeverityWarning:
		return svc.NotifyOnWarning
	case events.SeverityInfo:
		return svc.NotifyOnInfo
	default:
		return false
	}
}

// inCooldown reports whether this (service, event type) pair fired too
// recently, and claims the slot when it has not.
func (d *Dispatcher) inCooldown(svc models.NotificationService, e events.Event) bool {
	if svc.CooldownSecs <= 0 {
		return false
	}

	key := fmt.Sprintf("%d:%s", svc.ID, e.Type)
	cooldown := time.Duration(svc.CooldownSecs) * time.Second

	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.cooldowns[key]; ok && time.Since(last) < cooldown {
		return true
	}
	d.cooldowns[key] = time.Now()
	return false
}

func (d *Dispatcher) dispatch(svc models.NotificationService, e events.Event) {
	var cfg serviceConfig
	if err := json.Unmarshal([]byte(svc.ConfigJSON), &cfg); err != nil || cfg.ShoutrrrURL == "" {
		log.Printf("notify: service %q has no usable shoutrrr_url", svc.Name)
		return
	}

	message := formatMessage(e)
	rec := &models.NotificationRecord{
		ServiceID: svc.ID,
		EventType: string(e.Type),
		Hostname:  e.Hostname,
		Message:   message,
		Status:    "sent",
	}

	if err := d.sender.Send(cfg.ShoutrrrURL, message); err != nil {
		log.Printf("notify: send via %q failed: %v", svc.Name, err)
		rec.Status = "failed"
		rec.ErrorMessage = err.Error()
	}

	if err := d.store.RecordNotification(rec); err != nil {
		log.Printf("notify: record history: %v", err)
	}
}

func formatMessage(e events.Event) string {
	prefix := "ℹ️"
	switch e.Severity {
	case events.SeverityWarning:
		prefix = "⚠️"
	case events.SeverityCritical:
		prefix = "❌"
	}

	msg := fmt.Sprintf("%s [%s] %s", prefix, e.Hostname, e.Message)
	if e.JobName != "" {
		msg += fmt.Sprintf(" (job: %s)", e.JobName)
	}
	return msg
}
