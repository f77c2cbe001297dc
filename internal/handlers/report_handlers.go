package handlers

import (
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"lookout/internal/ingest"
	"lookout/internal/models"
	"lookout/internal/schema"
	"lookout/internal/store"
)

// maxReportBody caps how much an agent may POST in one report.
const maxReportBody = 1 << 20

// ReportHandler handles report ingestion and report queries.
type ReportHandler struct {
	Store     store.Store
	Processor *ingest.Processor
	Cfg       models.Config
}

// NewReportHandler creates a report handler.
func NewReportHandler(s store.Store, p *ingest.Processor, cfg models.Config) *ReportHandler {
	return &ReportHandler{Store: s, Processor: p, Cfg: cfg}
}

// Ingest handles POST /api/backup/report: validate, authorize, process.
func (h *ReportHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxReportBody))
	if err != nil {
		JSONError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	payload, verrs := schema.ParseReport(body)
	if verrs != nil {
		JSONResponseStatus(w, http.StatusBadRequest, map[string]any{
			"error":  "Invalid backup report data",
			"errors": verrs,
		})
		return
	}

	if !h.authorized(r, payload) {
		JSONError(w, "Invalid API key", http.StatusUnauthorized)
		return
	}

	result, err := h.Processor.ProcessReport(payload)
	if err != nil {
		log.Printf("❌ Failed to process report from %s: %v", payload.Hostname, err)
		JSONError(w, "Failed to process backup report", http.StatusInternalServerError)
		return
	}

	JSONCreated(w, map[string]any{
		"message": "Backup report received successfully",
		"report":  result.Report,
		"device":  result.Device,
		"alert":   result.Alert,
	})
}

// authorized checks the API key from the payload or the X-API-Key
// header. When key enforcement is off, a missing key is accepted but a
// provided key must still be valid.
func (h *ReportHandler) authorized(r *http.Request, payload *schema.ReportPayload) bool {
	key := payload.APIKey
	if key == "" {
		key = r.Header.Get("X-API-Key")
	}

	if key == "" {
		return !h.Cfg.RequireAPIKey
	}

	ok, err := h.Store.ValidateAPIKey(key)
	if err != nil {
		log.Printf("❌ API key validation error: %v", err)
		return false
	}
	return ok
}

// List handles GET /api/backup-reports with optional status, dateRange,
// and deviceType query filters.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := store.ReportFilters{
		Status:     r.URL.Query().Get("status"),
		DateRange:  r.URL.Query().Get("dateRange"),
		DeviceType: r.URL.Query().Get("deviceType"),
	}

	if filters.Status != "" && !models.ValidStatus(filters.Status) {
		JSONError(w, "Invalid status filter", http.StatusBadRequest)
		return
	}
	if filters.DateRange != "" {
		if _, ok := store.RangeCutoff(filters.DateRange, time.Now()); !ok {
			JSONError(w, "Invalid dateRange filter", http.StatusBadRequest)
			return
		}
	}

	reports, err := h.Store.BackupReports(filters)
	if err != nil {
		log.Printf("❌ Failed to list backup reports: %v", err)
		JSONError(w, "Failed to fetch backup reports", http.StatusInternalServerError)
		return
	}
	if reports == nil {
		reports = []models.BackupReport{}
	}
	JSONResponse(w, reports)
}

// LatestPerDevice handles GET /api/latest-backups: each device's most
// recent report, enriched with the device record.
func (h *ReportHandler) LatestPerDevice(w http.ResponseWriter, r *http.Request) {
	reports, err := h.Store.LatestReportPerDevice()
	if err != nil {
		log.Printf("❌ Failed to fetch latest backups: %v", err)
		JSONError(w, "Failed to fetch latest backups", http.StatusInternalServerError)
		return
	}

	type enriched struct {
		models.BackupReport
		Device *models.Device `json:"device"`
	}

	out := make([]enriched, 0, len(reports))
	for _, report := range reports {
		device, err := h.Store.Device(report.DeviceID)
		if err != nil {
			log.Printf("❌ Failed to enrich report %d: %v", report.ID, err)
			JSONError(w, "Failed to fetch latest backups", http.StatusInternalServerError)
			return
		}
		out = append(out, enriched{BackupReport: report, Device: device})
	}
	JSONResponse(w, out)
}

// ByDevice handles GET /api/devices/{id}/backup-reports.
func (h *ReportHandler) ByDevice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		JSONError(w, "Invalid device ID", http.StatusBadRequest)
		return
	}

	device, err := h.Store.Device(id)
	if err != nil {
		JSONError(w, "Failed to fetch device", http.StatusInternalServerError)
		return
	}
	if device == nil {
		JSONError(w, "Device not found", http.StatusNotFound)
		return
	}

	reports, err := h.Store.BackupReportsByDevice(id)
	if err != nil {
		log.Printf("❌ Failed to list reports for device %d: %v", id, err)
		JSONError(w, "Failed to fetch device backup reports", http.StatusInternalServerError)
		return
	}
	if reports == nil {
		reports = []models.BackupReport{}
	}
	JSONResponse(w, reports)
}

// RegisterReportRoutes wires report endpoints. The ingest endpoint is
// wrapped by limit (rate limiting); query endpoints by protect (auth).
func (h *ReportHandler) RegisterReportRoutes(mux *http.ServeMux, protect, limit func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("POST /api/backup/report", limit(h.Ingest))
	mux.HandleFunc("GET /api/backup-reports", protect(h.List))
	mux.HandleFunc("GET /api/latest-backups", protect(h.LatestPerDevice))
	mux.HandleFunc("GET /api/devices/{id}/backup-reports", protect(h.ByDevice))
}
