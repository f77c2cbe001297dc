package handlers

import (
	"log"
	"net/http"

	"lookout/internal/store"
)

// StatsHandler serves dashboard statistics.
type StatsHandler struct {
	Store store.Store
}

// NewStatsHandler creates a stats handler.
func NewStatsHandler(s store.Store) *StatsHandler {
	return &StatsHandler{Store: s}
}

// Get handles GET /api/stats.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.DashboardStats()
	if err != nil {
		log.Printf("❌ Failed to compute dashboard stats: %v", err)
		JSONError(w, "Failed to fetch dashboard statistics", http.StatusInternalServerError)
		return
	}
	JSONResponse(w, stats)
}

// RegisterStatsRoutes wires the stats endpoint.
func (h *StatsHandler) RegisterStatsRoutes(mux *http.ServeMux, protect func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /api/stats", protect(h.Get))
}
