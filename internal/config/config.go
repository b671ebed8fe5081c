package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Datamonkey API Configuration
	DatamonkeyBaseURL  string
	DatamonkeyBasePath string
	DefaultAPITimeout  time.Duration

	// Storage Configuration
	StorageBackend string // "jsonfile" or "mongo"
	DataDir        string

	// MongoDB Configuration (only used when StorageBackend is "mongo")
	MongoURI      string
	MongoDatabase string
	MongoTimeout  time.Duration

	// HTTP Server Configuration
	HTTPPort         string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration

	// Logging Configuration
	LogLevel  string
	LogFormat string

	// CORS Configuration
	CORSAllowedOrigins   string
	CORSAllowedMethods   string
	CORSAllowedHeaders   string
	CORSAllowCredentials bool
	CORSMaxAge           int

	// Refresher Configuration
	RefresherEnabled      bool
	RefresherSchedule     string
	RefresherTickInterval time.Duration
	RefresherMinJobAge    time.Duration
	RefresherConcurrency  int
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	return &Config{
		// Datamonkey API
		DatamonkeyBaseURL:  getEnv("DATAMONKEY_BASE_URL", "http://localhost:9300"),
		DatamonkeyBasePath: getEnv("DATAMONKEY_BASE_PATH", "/api/v1"),
		DefaultAPITimeout:  getDurationEnv("DEFAULT_API_TIMEOUT_SEC", 3600) * time.Second,

		// Storage
		StorageBackend: getEnv("STORAGE_BACKEND", "jsonfile"),
		DataDir:        getEnv("DATA_DIR", "./data"),

		// MongoDB
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017/tamarin?authSource=admin"),
		MongoDatabase: getEnv("MONGO_DATABASE", "tamarin"),
		MongoTimeout:  getDurationEnv("MONGO_TIMEOUT_SEC", 10) * time.Second,

		// HTTP Server
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		HTTPReadTimeout:  getDurationEnv("HTTP_READ_TIMEOUT_SEC", 30) * time.Second,
		HTTPWriteTimeout: getDurationEnv("HTTP_WRITE_TIMEOUT_SEC", 30) * time.Second,

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// CORS
		CORSAllowedOrigins:   getEnv("CORS_ALLOWED_ORIGINS", "*"),
		CORSAllowedMethods:   getEnv("CORS_ALLOWED_METHODS", "GET, POST, PUT, DELETE, OPTIONS, PATCH"),
		CORSAllowedHeaders:   getEnv("CORS_ALLOWED_HEADERS", "*"),
		CORSAllowCredentials: getBoolEnv("CORS_ALLOW_CREDENTIALS", true),
		CORSMaxAge:           getIntEnv("CORS_MAX_AGE", 3600),

		// Refresher
		RefresherEnabled:      getBoolEnv("REFRESHER_ENABLED", false),
		RefresherSchedule:     getEnv("REFRESHER_SCHEDULE", "*/5 * * * *"),
		RefresherTickInterval: getDurationEnv("REFRESHER_TICK_INTERVAL_SEC", 30) * time.Second,
		RefresherMinJobAge:    getDurationEnv("REFRESHER_MIN_JOB_AGE_SEC", 60) * time.Second,
		RefresherConcurrency:  getIntEnv("REFRESHER_CONCURRENCY", 4),
	}
}

// DatasetsFile returns the path of the dataset registry document
func (c *Config) DatasetsFile() string {
	return filepath.Join(c.DataDir, "datasets.json")
}

// JobsFile returns the path of the job registry document
func (c *Config) JobsFile() string {
	return filepath.Join(c.DataDir, "global-jobs.json")
}

// VisualizationsFile returns the path of the visualization registry document
func (c *Config) VisualizationsFile() string {
	return filepath.Join(c.DataDir, "visualizations.json")
}

// UploadsDir returns the directory where uploaded dataset files are stored
func (c *Config) UploadsDir() string {
	return filepath.Join(c.DataDir, "uploads")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return time.Duration(intVal)
		}
		log.Printf("Warning: Invalid duration value for %s, using default %d", key, defaultValue)
	}
	return time.Duration(defaultValue)
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
		log.Printf("Warning: Invalid boolean value for %s, using default %t", key, defaultValue)
	}
	return defaultValue
}
