// The lookout agent submits backup job results to a Lookout server,
// either from command-line flags or from a JSON result file written by
// the backup tool, once or on an interval.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const version = "1.0.0"

type reportPayload struct {
	Hostname     string         `json:"hostname"`
	Status       string         `json:"status"`
	Time         time.Time      `json:"time"`
	Size         string         `json:"size,omitempty"`
	SizeBytes    int64          `json:"sizeBytes,omitempty"`
	Duration     int64          `json:"duration,omitempty"`
	JobName      string         `json:"jobName,omitempty"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	FileCount    int64          `json:"fileCount,omitempty"`
	DeviceType   string         `json:"deviceType,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	APIKey       string         `json:"apiKey,omitempty"`
}

func main() {
	serverURL := flag.String("server", "http://localhost:9090", "Lookout server URL")
	apiKey := flag.String("key", "", "API key for report submission")
	hostnameOverride := flag.String("hostname", "", "Override hostname")
	deviceType := flag.String("device-type", "", "Device type (server, workstation)")
	status := flag.String("status", "", "Backup status (success, warning, failed)")
	jobName := flag.String("job", "", "Backup job name")
	sizeBytes := flag.Int64("size-bytes", 0, "Backed up size in bytes")
	duration := flag.Int64("duration", 0, "Backup duration in seconds")
	fileCount := flag.Int64("files", 0, "Number of files backed up")
	errorMessage := flag.String("error", "", "Error message for failed or warning backups")
	resultFile := flag.String("file", "", "JSON result file to submit instead of flags")
	interval := flag.Int("interval", 0, "Resubmit the result file every N seconds (0 for single run)")
	showVersion := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("lookout-agent v%s\n", version)
		os.Exit(0)
	}

	log.SetFlags(log.Ltime | log.Ldate)
	log.Printf("🚀 Lookout Agent v%s starting...", version)

	hostname := *hostnameOverride
	if hostname == "" {
		var err error
		hostname, err = os.Hostname()
		if err != nil {
			log.Fatalf("❌ Failed to get hostname: %v", err)
		}
	}
	log.Printf("✓ Hostname: %s", hostname)
	log.Printf("✓ Server: %s", *serverURL)

	build := func() (*reportPayload, error) {
		if *resultFile != "" {
			return loadResultFile(*resultFile)
		}
		if *status == "" {
			return nil, fmt.Errorf("either -status or -file is required")
		}
		return &reportPayload{
			Status:       *status,
			JobName:      *jobName,
			SizeBytes:    *sizeBytes,
			Duration:     *duration,
			FileCount:    *fileCount,
			ErrorMessage: *errorMessage,
		}, nil
	}

	submit := func(ctx context.Context) {
		payload, err := build()
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		payload.Hostname = hostname
		if payload.Time.IsZero() {
			payload.Time = time.Now().UTC()
		}
		if payload.DeviceType == "" {
			payload.DeviceType = *deviceType
		}
		payload.APIKey = *apiKey

		if err := sendReport(ctx, *serverURL, payload); err != nil {
			log.Printf("⚠️  Report failed: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("\n⏹️  Shutting down...")
		cancel()
	}()

	submit(ctx)

	if *interval <= 0 {
		log.Println("✅ Single run complete")
		return
	}

	log.Printf("📊 Reporting every %d seconds", *interval)
	ticker := time.NewTicker(time.Duration(*interval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("👋 Agent stopped")
			return
		case <-ticker.C:
			submit(ctx)
		}
	}
}

func loadResultFile(path string) (*reportPayload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read result file: %w", err)
	}
	var payload reportPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse result file: %w", err)
	}
	return &payload, nil
}

func sendReport(ctx context.Context, serverURL string, payload *reportPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, serverURL+"/api/backup/report", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, respBody)
	}

	log.Printf("💾 Report sent: %s (%s)", payload.Hostname, payload.Status)
	return nil
}
