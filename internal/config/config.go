package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Vendor   VendorConfig
	Site     SiteConfig
	Secrets  SecretsConfig
	Logger   LoggerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        int
	Host        string
	MetricsPort int
	// PublicBaseURL is the externally visible base URL of this service,
	// used to build the vendor notification callback.
	PublicBaseURL string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// VendorConfig holds Mercado Pago API configuration
type VendorConfig struct {
	BaseURL      string // Base URL for the vendor API (e.g. https://api.mercadopago.com)
	ClientID     string
	ClientSecret string
	// SecretPath overrides ClientID/ClientSecret when a secrets backend
	// is configured; the stored value is "client_id:client_secret".
	SecretPath string
	Timeout    int // Request timeout in seconds (default: 15)
}

// SiteConfig describes the storefront this gateway serves
type SiteConfig struct {
	SiteID             string // MLA, MLB or MLM
	Currency           string // storefront currency code
	SponsorID          string // vendor sponsor id, empty for test users
	CheckoutBannerURL  string
	StorePrefix        string // prepended to external references (e.g. "WC-")
	IsTestUser         bool
	CurrencyConversion bool
	Debug              bool
}

// SecretsConfig selects the credential backend
type SecretsConfig struct {
	Backend      string // local, aws or vault
	LocalDir     string
	AWSRegion    string
	VaultAddress string
	VaultToken   string
	VaultMount   string
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:          getEnvAsInt("SERVER_PORT", 8080),
			Host:          getEnv("SERVER_HOST", "0.0.0.0"),
			MetricsPort:   getEnvAsInt("METRICS_PORT", 9090),
			PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "subscription_gateway"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns: int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		},
		Vendor: VendorConfig{
			BaseURL:      getEnv("MP_BASE_URL", "https://api.mercadopago.com"),
			ClientID:     getEnv("MP_CLIENT_ID", ""),
			ClientSecret: getEnv("MP_CLIENT_SECRET", ""),
			SecretPath:   getEnv("MP_SECRET_PATH", ""),
			Timeout:      getEnvAsInt("MP_TIMEOUT", 15),
		},
		Site: SiteConfig{
			SiteID:             getEnv("SITE_ID", "MLA"),
			Currency:           getEnv("SITE_CURRENCY", "ARS"),
			SponsorID:          getEnv("SPONSOR_ID", ""),
			CheckoutBannerURL:  getEnv("CHECKOUT_BANNER_URL", ""),
			StorePrefix:        getEnv("STORE_PREFIX", ""),
			IsTestUser:         getEnvAsBool("MP_TEST_USER", false),
			CurrencyConversion: getEnvAsBool("CURRENCY_CONVERSION", false),
			Debug:              getEnvAsBool("GATEWAY_DEBUG", false),
		},
		Secrets: SecretsConfig{
			Backend:      getEnv("SECRETS_BACKEND", "local"),
			LocalDir:     getEnv("SECRETS_LOCAL_DIR", "./secrets"),
			AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
			VaultAddress: getEnv("VAULT_ADDR", ""),
			VaultToken:   getEnv("VAULT_TOKEN", ""),
			VaultMount:   getEnv("VAULT_MOUNT", "secret"),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
	}

	// Validate required fields
	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	if cfg.Vendor.SecretPath == "" {
		if cfg.Vendor.ClientID == "" {
			return nil, fmt.Errorf("MP_CLIENT_ID is required when MP_SECRET_PATH is unset")
		}
		if cfg.Vendor.ClientSecret == "" {
			return nil, fmt.Errorf("MP_CLIENT_SECRET is required when MP_SECRET_PATH is unset")
		}
	}

	return cfg, nil
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
