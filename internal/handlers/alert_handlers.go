package handlers

import (
	"log"
	"net/http"
	"strconv"

	"lookout/internal/models"
	"lookout/internal/store"
)

// AlertHandler handles alert queries and the read flag.
type AlertHandler struct {
	Store store.Store
}

// NewAlertHandler creates an alert handler.
func NewAlertHandler(s store.Store) *AlertHandler {
	return &AlertHandler{Store: s}
}

// List handles GET /api/alerts.
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.Store.Alerts()
	if err != nil {
		log.Printf("❌ Failed to list alerts: %v", err)
		JSONError(w, "Failed to fetch alerts", http.StatusInternalServerError)
		return
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	JSONResponse(w, alerts)
}

// Recent handles GET /api/recent-alerts?limit=N, each alert enriched
// with its device (null for device-less alerts).
func (h *AlertHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := 5
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 200 {
			limit = l
		}
	}

	alerts, err := h.Store.RecentAlerts(limit)
	if err != nil {
		log.Printf("❌ Failed to list recent alerts: %v", err)
		JSONError(w, "Failed to fetch recent alerts", http.StatusInternalServerError)
		return
	}

	type enriched struct {
		models.Alert
		Device *models.Device `json:"device"`
	}

	out := make([]enriched, 0, len(alerts))
	for _, alert := range alerts {
		var device *models.Device
		if alert.DeviceID != nil {
			device, err = h.Store.Device(*alert.DeviceID)
			if err != nil {
				log.Printf("❌ Failed to enrich alert %d: %v", alert.ID, err)
				JSONError(w, "Failed to fetch recent alerts", http.StatusInternalServerError)
				return
			}
		}
		out = append(out, enriched{Alert: alert, Device: device})
	}
	JSONResponse(w, out)
}

// MarkRead handles PATCH /api/alerts/{id}/read. Marking an already-read
// alert succeeds and returns the same state.
func (h *AlertHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		JSONError(w, "Invalid alert ID", http.StatusBadRequest)
		return
	}

	alert, err := h.Store.MarkAlertRead(id)
	if err != nil {
		log.Printf("❌ Failed to mark alert %d read: %v", id, err)
		JSONError(w, "Failed to mark alert as read", http.StatusInternalServerError)
		return
	}
	if alert == nil {
		JSONError(w, "Alert not found", http.StatusNotFound)
		return
	}
	JSONResponse(w, alert)
}

// RegisterAlertRoutes wires alert endpoints.
func (h *AlertHandler) RegisterAlertRoutes(mux *http.ServeMux, protect func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /api/alerts", protect(h.List))
	mux.HandleFunc("GET /api/recent-alerts", protect(h.Recent))
	mux.HandleFunc("PATCH /api/alerts/{id}/read", protect(h.MarkRead))
}
