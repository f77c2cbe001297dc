package config

import (
	"os"

	"lookout/internal/models"
)

// Load returns the server configuration from environment variables
func Load() models.Config {
	return models.Config{
		Port:          getEnv("PORT", "9090"),
		DBPath:        getEnv("DB_PATH", "lookout.db"),
		AdminUser:     getEnv("ADMIN_USER", "admin"),
		AdminPass:     getEnv("ADMIN_PASS", ""),
		AuthEnabled:   getEnv("AUTH_ENABLED", "true") == "true",
		RequireAPIKey: getEnv("REQUIRE_API_KEY", "false") == "true",
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
