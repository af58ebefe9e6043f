package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	Port           string
	Environment    string
	LogLevel       string
	APIKey         string
	AdminUsername  string
	AdminPassword  string
	AllowedOrigins []string
	MaxUploadMB    int64

	// Google Sheets reference data. Credentials are read from the environment only and never logged.
	SpreadsheetID         string
	FallbackSheet         string
	TasksSheet            string
	ExposedSheets         []string
	GoogleCredentialsJSON string
	GoogleCredentialsFile string
	GoogleAPIKey          string
	ReferenceTimeout      time.Duration
	ReferenceMaxRetries   int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		APIKey:         getEnv("API_KEY", ""),
		AdminUsername:  getEnv("ADMIN_USERNAME", ""),
		AdminPassword:  getEnv("ADMIN_PASSWORD", ""),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", nil),
		MaxUploadMB:    int64(getEnvInt("MAX_UPLOAD_MB", 10)),

		SpreadsheetID:         getEnv("SPREADSHEET_ID", ""),
		FallbackSheet:         getEnv("FALLBACK_SHEET", "Fallback"),
		TasksSheet:            getEnv("TASKS_SHEET", "Tasks"),
		ExposedSheets:         getEnvList("EXPOSED_SHEETS", []string{"Fallback", "Tasks", "Runsheet"}),
		GoogleCredentialsJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		GoogleAPIKey:          getEnv("GOOGLE_API_KEY", ""),
		ReferenceTimeout:      getEnvDuration("REFERENCE_TIMEOUT", 20*time.Second),
		ReferenceMaxRetries:   getEnvInt("REFERENCE_MAX_RETRIES", 3),
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return n
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, "")); err == nil && d > 0 {
		return d
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
