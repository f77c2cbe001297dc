package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"lookout/internal/models"
	"lookout/internal/store"
)

// KeyHandler manages agent API keys.
type KeyHandler struct {
	Store store.Store
}

// NewKeyHandler creates an API key handler.
func NewKeyHandler(s store.Store) *KeyHandler {
	return &KeyHandler{Store: s}
}

// List handles GET /api/keys.
func (h *KeyHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.Store.APIKeys()
	if err != nil {
		log.Printf("❌ Failed to list API keys: %v", err)
		JSONError(w, "Failed to fetch API keys", http.StatusInternalServerError)
		return
	}
	if keys == nil {
		keys = []models.APIKey{}
	}
	JSONResponse(w, keys)
}

// Create handles POST /api/keys. The secret is generated server-side;
// an optional expires_at and device binding may be supplied.
func (h *KeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string     `json:"name"`
		DeviceID  *int64     `json:"deviceId"`
		ExpiresAt *time.Time `json:"expiresAt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		JSONError(w, "Name is required", http.StatusBadRequest)
		return
	}

	key, err := h.Store.CreateAPIKey(&models.APIKey{
		Name:      req.Name,
		DeviceID:  req.DeviceID,
		ExpiresAt: req.ExpiresAt,
		IsActive:  true,
	})
	if err != nil {
		log.Printf("❌ Failed to create API key: %v", err)
		JSONError(w, "Failed to create API key", http.StatusInternalServerError)
		return
	}

	log.Printf("🔑 Created API key %q", key.Name)
	JSONCreated(w, key)
}

// SetActive handles PUT /api/keys/{id}/active with body {"active": bool}.
func (h *KeyHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		JSONError(w, "Invalid key ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	key, err := h.Store.SetAPIKeyActive(id, req.Active)
	if err != nil {
		log.Printf("❌ Failed to update API key %d: %v", id, err)
		JSONError(w, "Failed to update API key", http.StatusInternalServerError)
		return
	}
	if key == nil {
		JSONError(w, "API key not found", http.StatusNotFound)
		return
	}
	JSONResponse(w, key)
}

// Delete handles DELETE /api/keys/{id}.
func (h *KeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		JSONError(w, "Invalid key ID", http.StatusBadRequest)
		return
	}

	deleted, err := h.Store.DeleteAPIKey(id)
	if err != nil {
		log.Printf("❌ Failed to delete API key %d: %v", id, err)
		JSONError(w, "Failed to delete API key", http.StatusInternalServerError)
		return
	}
	if !deleted {
		JSONError(w, "API key not found", http.StatusNotFound)
		return
	}
	JSONResponse(w, map[string]string{"status": "deleted"})
}

// RegisterKeyRoutes wires API key management endpoints.
func (h *KeyHandler) RegisterKeyRoutes(mux *http.ServeMux, protect func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /api/keys", protect(h.List))
	mux.HandleFunc("POST /api/keys", protect(h.Create))
	mux.HandleFunc("PUT /api/keys/{id}/active", protect(h.SetActive))
	mux.HandleFunc("DELETE /api/keys/{id}", protect(h.Delete))
}
