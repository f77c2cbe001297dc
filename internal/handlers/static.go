package handlers

import (
	"net/http"
	"strings"

	"lookout/internal/auth"
	"lookout/internal/models"
	"lookout/internal/store"
)

// Version is set at build time
var Version = "dev"

// Health returns server health status
func Health(w http.ResponseWriter, r *http.Request) {
	JSONResponse(w, map[string]string{
		"status":  "healthy",
		"version": Version,
	})
}

// GetVersion returns server version
func GetVersion(w http.ResponseWriter, r *http.Request) {
	JSONResponse(w, map[string]string{"version": Version})
}

// StaticFiles serves the dashboard UI with an auth check
func StaticFiles(cfg models.Config, s store.Store) http.HandlerFunc {
	fs := http.FileServer(http.Dir("./web"))

	// Extensions that don't require auth
	publicExtensions := []string{".css", ".js", ".ico", ".png", ".svg"}

	return func(w http.ResponseWriter, r *http.Request) {
		// Always allow login page and static assets
		if r.URL.Path == "/login.html" || hasPublicExtension(r.URL.Path, publicExtensions) {
			fs.ServeHTTP(w, r)
			return
		}

		// Check auth for protected pages
		if cfg.AuthEnabled && auth.SessionFromRequest(r, s) == nil {
			http.Redirect(w, r, "/login.html", http.StatusFound)
			return
		}

		fs.ServeHTTP(w, r)
	}
}

func hasPublicExtension(path string, extensions []string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
