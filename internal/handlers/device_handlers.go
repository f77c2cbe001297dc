package handlers

import (
	"log"
	"net/http"
	"strconv"

	"lookout/internal/models"
	"lookout/internal/store"
)

// DeviceHandler handles device queries.
type DeviceHandler struct {
	Store store.Store
}

// NewDeviceHandler creates a device handler.
func NewDeviceHandler(s store.Store) *DeviceHandler {
	return &DeviceHandler{Store: s}
}

// List handles GET /api/devices.
func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	devices, err := h.Store.Devices()
	if err != nil {
		log.Printf("❌ Failed to list devices: %v", err)
		JSONError(w, "Failed to fetch devices", http.StatusInternalServerError)
		return
	}
	if devices == nil {
		devices = []models.Device{}
	}
	JSONResponse(w, devices)
}

// Get handles GET /api/devices/{id}.
func (h *DeviceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		JSONError(w, "Invalid device ID", http.StatusBadRequest)
		return
	}

	device, err := h.Store.Device(id)
	if err != nil {
		log.Printf("❌ Failed to fetch device %d: %v", id, err)
		JSONError(w, "Failed to fetch device", http.StatusInternalServerError)
		return
	}
	if device == nil {
		JSONError(w, "Device not found", http.StatusNotFound)
		return
	}
	JSONResponse(w, device)
}

// RegisterDeviceRoutes wires device endpoints.
func (h *DeviceHandler) RegisterDeviceRoutes(mux *http.ServeMux, protect func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /api/devices", protect(h.List))
	mux.HandleFunc("GET /api/devices/{id}", protect(h.Get))
}
