package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"race-league-go/logging"
	"race-league-go/models"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server"`

	// Database configuration
	Database DatabaseConfig `json:"database"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`

	// Authentication configuration
	Auth AuthConfig `json:"auth"`

	// Scoring defaults for new rounds
	Scoring ScoringConfig `json:"scoring"`

	// Application configuration
	App AppConfig `json:"app"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string `json:"port"`
	Host        string `json:"host"`
	UseTLS      bool   `json:"use_tls"`
	BehindProxy bool   `json:"behind_proxy"`
	CertFile    string `json:"cert_file"`
	KeyFile     string `json:"key_file"`
	Environment string `json:"environment"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string        `json:"host"`
	Port     string        `json:"port"`
	Username string        `json:"username"`
	Password string        `json:"password"`
	Database string        `json:"database"`
	Timeout  time.Duration `json:"timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level       string `json:"level"`
	Prefix      string `json:"prefix"`
	EnableColor bool   `json:"enable_color"`
	Format      string `json:"format"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret   string        `json:"jwt_secret"`
	TokenExpiry time.Duration `json:"token_expiry"`
}

// ScoringConfig holds the default point weights applied to new rounds
type ScoringConfig struct {
	ExactPositionPoints   float64 `json:"exact_position_points"`
	Top3AnyPositionPoints float64 `json:"top3_any_position_points"`
	ExactLastPlacePoints  float64 `json:"exact_last_place_points"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	IsDevelopment  bool   `json:"is_development"`
	MetricsEnabled bool   `json:"metrics_enabled"`
	SeedDemoData   bool   `json:"seed_demo_data"`
	AdminEmail     string `json:"admin_email"`
	AdminPassword  string `json:"admin_password"`
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Don't treat missing .env as an error
		logging.Warnf("Could not load .env file: %v", err)
	}

	environment := getEnv("ENVIRONMENT", "development")
	isDevelopment := strings.ToLower(environment) == "development"

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			UseTLS:      getBoolEnv("USE_TLS", false),
			BehindProxy: getBoolEnv("BEHIND_PROXY", false),
			CertFile:    getEnv("TLS_CERT_FILE", "server.crt"),
			KeyFile:     getEnv("TLS_KEY_FILE", "server.key"),
			Environment: environment,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "27017"),
			Username: getEnv("DB_USERNAME", ""),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "race_league"),
			Timeout:  getDurationEnv("DB_TIMEOUT", 10*time.Second),
		},
		Logging: LoggingConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Prefix:      getEnv("LOG_PREFIX", "race-league"),
			EnableColor: getBoolEnv("LOG_COLOR", true),
			Format:      getEnv("LOG_FORMAT", logging.FormatText),
		},
		Auth: AuthConfig{
			JWTSecret:   getEnv("JWT_SECRET", defaultJWTSecret),
			TokenExpiry: getDurationEnv("JWT_TOKEN_EXPIRY", 30*24*time.Hour),
		},
		Scoring: ScoringConfig{
			ExactPositionPoints:   getFloatEnv("SCORING_EXACT_POSITION_POINTS", models.DefaultExactPositionPoints),
			Top3AnyPositionPoints: getFloatEnv("SCORING_TOP3_ANY_POSITION_POINTS", models.DefaultTop3AnyPositionPoints),
			ExactLastPlacePoints:  getFloatEnv("SCORING_EXACT_LAST_PLACE_POINTS", models.DefaultExactLastPlacePoints),
		},
		App: AppConfig{
			IsDevelopment:  isDevelopment,
			MetricsEnabled: getBoolEnv("METRICS_ENABLED", true),
			SeedDemoData:   getBoolEnv("SEED_DEMO_DATA", isDevelopment),
			AdminEmail:     getEnv("ADMIN_EMAIL", "admin@example.com"),
			AdminPassword:  getEnv("ADMIN_PASSWORD", "password123"),
		},
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration for required fields and sensible values
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Server.UseTLS && !c.Server.BehindProxy {
		if c.Server.CertFile == "" || c.Server.KeyFile == "" {
			return fmt.Errorf("TLS certificate and key files are required when USE_TLS=true")
		}
		if _, err := os.Stat(c.Server.CertFile); os.IsNotExist(err) {
			return fmt.Errorf("TLS certificate file not found: %s", c.Server.CertFile)
		}
		if _, err := os.Stat(c.Server.KeyFile); os.IsNotExist(err) {
			return fmt.Errorf("TLS key file not found: %s", c.Server.KeyFile)
		}
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port == "" {
		return fmt.Errorf("database port is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if c.Auth.JWTSecret == defaultJWTSecret && !c.App.IsDevelopment {
		return fmt.Errorf("JWT secret must be changed in production")
	}

	weights := map[string]float64{
		"SCORING_EXACT_POSITION_POINTS":    c.Scoring.ExactPositionPoints,
		"SCORING_TOP3_ANY_POSITION_POINTS": c.Scoring.Top3AnyPositionPoints,
		"SCORING_EXACT_LAST_PLACE_POINTS":  c.Scoring.ExactLastPlacePoints,
	}
	for name, value := range weights {
		if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
			return fmt.Errorf("%s must be a non-negative number, got: %v", name, value)
		}
	}

	return nil
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

// LogConfiguration logs the current configuration (without sensitive data)
func (c *Config) LogConfiguration() {
	logging.Info("=== Application Configuration ===")
	logging.Infof("Server: %s (TLS: %t, Behind Proxy: %t, Environment: %s)",
		c.GetServerAddress(), c.Server.UseTLS, c.Server.BehindProxy, c.Server.Environment)
	logging.Infof("Database: %s:%s/%s (Username: %s, Auth: %t)",
		c.Database.Host, c.Database.Port, c.Database.Database,
		c.Database.Username, c.Database.Password != "")
	logging.Infof("Logging: Level=%s, Prefix=%s, Color=%t, Format=%s",
		c.Logging.Level, c.Logging.Prefix, c.Logging.EnableColor, c.Logging.Format)
	logging.Infof("Scoring defaults: exact=%.2f top3=%.2f last=%.2f",
		c.Scoring.ExactPositionPoints, c.Scoring.Top3AnyPositionPoints, c.Scoring.ExactLastPlacePoints)
	logging.Infof("App: Development=%t, Metrics=%t, SeedDemoData=%t",
		c.App.IsDevelopment, c.App.MetricsEnabled, c.App.SeedDemoData)
	logging.Info("================================")
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
