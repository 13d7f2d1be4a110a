package config

import (
	"os"
	"strconv"
)

// Config holds process-level settings, all sourced from the environment.
type Config struct {
	Port         string
	DBPath       string
	JWTSecret    string
	RegenWorkers int
}

// Load reads the configuration, falling back to development defaults.
func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = ":8080"
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./data/timeline/timeline.db"
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "your-secret-key-change-in-production"
	}

	workers := 2
	if v := os.Getenv("REGEN_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			workers = n
		}
	}

	return &Config{
		Port:         port,
		DBPath:       dbPath,
		JWTSecret:    jwtSecret,
		RegenWorkers: workers,
	}
}
