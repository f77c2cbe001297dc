package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"lookout/internal/models"
	"lookout/internal/store"
)

// NotificationHandler manages Shoutrrr notification services.
type NotificationHandler struct {
	Store store.Store
}

// NewNotificationHandler creates a notification service handler.
func NewNotificationHandler(s store.Store) *NotificationHandler {
	return &NotificationHandler{Store: s}
}

// List handles GET /api/notifications/services.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	services, err := h.Store.NotificationServices()
	if err != nil {
		log.Printf("❌ Failed to list notification services: %v", err)
		JSONError(w, "Failed to fetch notification services", http.StatusInternalServerError)
		return
	}
	if services == nil {
		services = []models.NotificationService{}
	}
	JSONResponse(w, services)
}

// Create handles POST /api/notifications/services.
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var svc models.NotificationService
	if err := json.NewDecoder(r.Body).Decode(&svc); err != nil {
		JSONError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if svc.Name == "" || svc.ServiceType == "" {
		JSONError(w, "Name and service_type are required", http.StatusBadRequest)
		return
	}

	created, err := h.Store.CreateNotificationService(&svc)
	if err != nil {
		log.Printf("❌ Failed to create notification service: %v", err)
		JSONError(w, "Failed to create notification service", http.StatusInternalServerError)
		return
	}
	JSONCreated(w, created)
}

// Update handles PUT /api/notifications/services/{id}.
func (h *NotificationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		JSONError(w, "Invalid service ID", http.StatusBadRequest)
		return
	}

	var svc models.NotificationService
	if err := json.NewDecoder(r.Body).Decode(&svc); err != nil {
		JSONError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	svc.ID = id

	existing, err := h.Store.NotificationService(id)
	if err != nil {
		JSONError(w, "Failed to update notification service", http.StatusInternalServerError)
		return
	}
	if existing == nil {
		JSONError(w, "Notification service not found", http.StatusNotFound)
		return
	}

	if err := h.Store.UpdateNotificationService(&svc); err != nil {
		log.Printf("❌ Failed to update notification service %d: %v", id, err)
		JSONError(w, "Failed to update notification service", http.StatusInternalServerError)
		return
	}

	updated, _ := h.Store.NotificationService(id)
	JSONResponse(w, updated)
}

// Delete handles DELETE /api/notifications/services/{id}.
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		JSONError(w, "Invalid service ID", http.StatusBadRequest)
		return
	}

	deleted, err := h.Store.DeleteNotificationService(id)
	if err != nil {
		log.Printf("❌ Failed to delete notification service %d: %v", id, err)
		JSONError(w, "Failed to delete notification service", http.StatusInternalServerError)
		return
	}
	if !deleted {
		JSONError(w, "Notification service not found", http.StatusNotFound)
		return
	}
	JSONResponse(w, map[string]string{"status": "deleted"})
}

// RegisterNotificationRoutes wires notification service endpoints.
func (h *NotificationHandler) RegisterNotificationRoutes(mux *http.ServeMux, protect func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /api/notifications/services", protect(h.List))
	mux.HandleFunc("POST /api/notifications/services", protect(h.Create))
	mux.HandleFunc("PUT /api/notifications/services/{id}", protect(h.Update))
	mux.HandleFunc("DELETE /api/notifications/services/{id}", protect(h.Delete))
}
