package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds everything the process needs, built once at startup and
// passed by reference into services and adapters. No package-level clients.
type Config struct {
	Addr        string // http listen address
	DatabaseURL string // postgres connection string
	JWTSecret   string // HS256 signing secret for bearer tokens

	// media storage
	GCSBucket       string
	CDNDomain       string // optional, overrides the default public URL host
	CredentialsFile string // optional service account json, ADC otherwise

	// adapters
	GeminiAPIKey   string
	GeminiModel    string
	SpeechLanguage string

	LogMode string // "dev" or "prod"
}

// Load reads configuration from the environment. A .env file is loaded
// first if present - Docker sets these directly so a missing file is fine.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:            getenv("SERVER_ADDR", ":8080"),
		DatabaseURL:     os.Getenv("DB_URL"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		GCSBucket:       os.Getenv("GCS_BUCKET_NAME"),
		CDNDomain:       os.Getenv("CDN_DOMAIN"),
		CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     getenv("GEMINI_MODEL", "gemini-2.0-flash"),
		SpeechLanguage:  getenv("SPEECH_LANGUAGE", "en-US"),
		LogMode:         getenv("LOG_MODE", "dev"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("missing env var DB_URL")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing env var JWT_SECRET")
	}
	if cfg.GCSBucket == "" {
		return nil, fmt.Errorf("missing env var GCS_BUCKET_NAME")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("missing env var GEMINI_API_KEY")
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
