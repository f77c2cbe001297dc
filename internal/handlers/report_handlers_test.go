package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"lookout/internal/ingest"
	"lookout/internal/models"
	"lookout/internal/store"
)

func passthrough(next http.HandlerFunc) http.HandlerFunc { return next }

// newTestServer wires a full API mux against an in-memory store with
// auth and rate limiting disabled.
func newTestServer(t *testing.T, cfg models.Config) (*httptest.Server, *store.SQLiteStore) {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	processor := ingest.NewProcessor(s, nil, nil)

	mux := http.NewServeMux()
	NewReportHandler(s, processor, cfg).RegisterReportRoutes(mux, passthrough, passthrough)
	NewDeviceHandler(s).RegisterDeviceRoutes(mux, passthrough)
	NewAlertHandler(s).RegisterAlertRoutes(mux, passthrough)
	NewStatsHandler(s).RegisterStatsRoutes(mux, passthrough)
	NewKeyHandler(s).RegisterKeyRoutes(mux, passthrough)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, s
}

func postReport(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/backup/report", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST report: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestIngestValidReport(t *testing.T) {
	srv, s := newTestServer(t, models.Config{})

	resp := postReport(t, srv, `{
		"hostname": "web-01",
		"status": "success",
		"time": "2025-06-01T03:00:00Z",
		"jobName": "nightly",
		"sizeBytes": 1048576
	}`)

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var body struct {
		Message string              `json:"message"`
		Report  models.BackupReport `json:"report"`
		Device  models.Device       `json:"device"`
		Alert   *models.Alert       `json:"alert"`
	}
	decodeJSON(t, resp, &body)

	if body.Device.Hostname != "web-01" {
		t.Errorf("device hostname = %q", body.Device.Hostname)
	}
	if body.Report.JobName != "nightly" {
		t.Errorf("report job = %q", body.Report.JobName)
	}
	if body.Alert != nil {
		t.Errorf("success report returned alert: %+v", body.Alert)
	}

	devices, err := s.Devices()
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	if len(devices) != 1 {
		t.Errorf("expected 1 device, got %d", len(devices))
	}
}

func TestIngestInvalidReportRejectedAtomically(t *testing.T) {
	srv, s := newTestServer(t, models.Config{})

	// Multiple invalid fields, all reported at once, nothing persisted.
	resp := postReport(t, srv, `{
		"hostname": "   ",
		"status": "exploded",
		"sizeBytes": "lots"
	}`)

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	var body struct {
		Error  string `json:"error"`
		Errors []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	decodeJSON(t, resp, &body)

	if body.Error != "Invalid backup report data" {
		t.Errorf("error = %q", body.Error)
	}
	fields := make(map[string]bool)
	for _, fe := range body.Errors {
		fields[fe.Field] = true
	}
	for _, want := range []string{"hostname", "status", "time", "sizeBytes"} {
		if !fields[want] {
			t.Errorf("missing field error for %q (got %v)", want, body.Errors)
		}
	}

	devices, err := s.Devices()
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	if len(devices) != 0 {
		t.Errorf("invalid report persisted %d devices", len(devices))
	}
	reports, err := s.BackupReports(store.ReportFilters{})
	if err != nil {
		t.Fatalf("BackupReports: %v", err)
	}
	if len(reports) != 0 {
		t.Errorf("invalid report persisted %d reports", len(reports))
	}
}

func TestIngestRequiresAPIKeyWhenEnforced(t *testing.T) {
	srv, s := newTestServer(t, models.Config{RequireAPIKey: true})

	body := `{"hostname":"web-01","status":"success","time":"2025-06-01T03:00:00Z"}`

	resp := postReport(t, srv, body)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("keyless status = %d, want 401", resp.StatusCode)
	}

	key, err := s.CreateAPIKey(&models.APIKey{Name: "agent", IsActive: true})
	if err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}

	req, _ := http.NewRequest("POST", srv.URL+"/api/backup/report", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", key.Key)
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST with key: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusCreated {
		t.Fatalf("keyed status = %d, want 201", resp2.StatusCode)
	}
}

func TestIngestRejectsBadKeyEvenWhenOptional(t *testing.T) {
	srv, _ := newTestServer(t, models.Config{RequireAPIKey: false})

	resp := postReport(t, srv, `{
		"hostname": "web-01",
		"status": "success",
		"time": "2025-06-01T03:00:00Z",
		"apiKey": "bogus"
	}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for bogus key", resp.StatusCode)
	}
}

func TestListReportsFilterValidation(t *testing.T) {
	srv, _ := newTestServer(t, models.Config{})

	for _, url := range []string{
		"/api/backup-reports?status=exploded",
		"/api/backup-reports?dateRange=90d",
	} {
		resp, err := http.Get(srv.URL + url)
		if err != nil {
			t.Fatalf("GET %s: %v", url, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("GET %s status = %d, want 400", url, resp.StatusCode)
		}
	}

	resp, err := http.Get(srv.URL + "/api/backup-reports?status=failed&dateRange=7d")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("valid filters status = %d", resp.StatusCode)
	}

	var reports []models.BackupReport
	decodeJSON(t, resp, &reports)
	if reports == nil {
		t.Error("empty listing should encode as [], not null")
	}
}

func TestLatestBackupsEnrichedWithDevice(t *testing.T) {
	srv, _ := newTestServer(t, models.Config{})

	postReport(t, srv, `{"hostname":"web-01","status":"success","time":"2025-06-01T01:00:00Z"}`)
	postReport(t, srv, `{"hostname":"web-01","status":"failed","time":"2025-06-01T02:00:00Z"}`)
	postReport(t, srv, `{"hostname":"db-01","status":"success","time":"2025-06-01T01:30:00Z"}`)

	resp, err := http.Get(srv.URL + "/api/latest-backups")
	if err != nil {
		t.Fatalf("GET latest-backups: %v", err)
	}
	defer resp.Body.Close()

	var latest []struct {
		Status string         `json:"status"`
		Device *models.Device `json:"device"`
	}
	decodeJSON(t, resp, &latest)

	if len(latest) != 2 {
		t.Fatalf("expected 2 latest entries, got %d", len(latest))
	}
	byHost := make(map[string]string)
	for _, e := range latest {
		if e.Device == nil {
			t.Fatal("entry missing device")
		}
		byHost[e.Device.Hostname] = e.Status
	}
	if byHost["web-01"] != models.StatusFailed {
		t.Errorf("web-01 latest = %q, want failed", byHost["web-01"])
	}
	if byHost["db-01"] != models.StatusSuccess {
		t.Errorf("db-01 latest = %q, want success", byHost["db-01"])
	}
}

func TestStatsReflectLatestReports(t *testing.T) {
	srv, _ := newTestServer(t, models.Config{})

	postReport(t, srv, `{"hostname":"web-01","status":"failed","time":"2025-06-01T01:00:00Z"}`)
	postReport(t, srv, `{"hostname":"web-01","status":"success","time":"2025-06-01T02:00:00Z"}`)
	postReport(t, srv, `{"hostname":"db-01","status":"warning","time":"2025-06-01T01:00:00Z"}`)

	resp, err := http.Get(srv.URL + "/api/stats")
	if err != nil {
		t.Fatalf("GET stats: %v", err)
	}
	defer resp.Body.Close()

	var stats models.DashboardStats
	decodeJSON(t, resp, &stats)

	want := models.DashboardStats{TotalDevices: 2, HealthyBackups: 1, WarningBackups: 1, FailedBackups: 0}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

func TestMarkAlertReadEndpoint(t *testing.T) {
	srv, s := newTestServer(t, models.Config{})

	postReport(t, srv, `{"hostname":"web-01","status":"failed","time":"2025-06-01T01:00:00Z","errorMessage":"disk full"}`)

	alerts, err := s.Alerts()
	if err != nil {
		t.Fatalf("Alerts: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}

	req, _ := http.NewRequest("PATCH", srv.URL+"/api/alerts/"+itoa(alerts[0].ID)+"/read", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PATCH: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var marked models.Alert
	decodeJSON(t, resp, &marked)
	if !marked.IsRead {
		t.Error("alert not marked read")
	}

	// Unknown ids 404.
	req, _ = http.NewRequest("PATCH", srv.URL+"/api/alerts/99999/read", nil)
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PATCH unknown: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("unknown alert status = %d, want 404", resp2.StatusCode)
	}
}

func TestDeviceNotFoundEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, models.Config{})

	resp, err := http.Get(srv.URL + "/api/devices/42")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/devices/notanumber")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAPIKeyLifecycleEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, models.Config{})

	resp, err := http.Post(srv.URL+"/api/keys", "application/json", strings.NewReader(`{"name":"agent-1"}`))
	if err != nil {
		t.Fatalf("POST key: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}

	var key models.APIKey
	decodeJSON(t, resp, &key)
	if key.Key == "" {
		t.Error("created key has no secret")
	}
	if !key.IsActive {
		t.Error("created key not active")
	}

	req, _ := http.NewRequest("PUT", srv.URL+"/api/keys/"+itoa(key.ID)+"/active", strings.NewReader(`{"active":false}`))
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT active: %v", err)
	}
	defer resp2.Body.Close()
	var updated models.APIKey
	decodeJSON(t, resp2, &updated)
	if updated.IsActive {
		t.Error("key still active after deactivation")
	}

	req, _ = http.NewRequest("DELETE", srv.URL+"/api/keys/"+itoa(key.ID), nil)
	resp3, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	resp3.Body.Close()
	if resp3.StatusCode != http.StatusOK {
		t.Errorf("delete status = %d", resp3.StatusCode)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
