package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"golang.org/x/text/language"
)

// Catalog sources selectable with CATALOG_SOURCE.
const (
	SourceMemory   = "memory"
	SourceJSON     = "json"
	SourceSQLite   = "sqlite"
	SourcePostgres = "postgres"
	SourceSheets   = "sheets"
)

// Sources lists every valid CATALOG_SOURCE value.
var Sources = []string{SourceMemory, SourceJSON, SourceSQLite, SourcePostgres, SourceSheets}

type Config struct {
	// HTTP Server
	Port      string `koanf:"PORT"`
	LogLevel  string `koanf:"LOG_LEVEL"`
	LogFormat string `koanf:"LOG_FORMAT"`

	// Catalog
	CatalogSource string `koanf:"CATALOG_SOURCE"`
	CatalogPath   string `koanf:"CATALOG_PATH"`

	// State store. Empty disables persistence.
	SQLiteDBPath string `koanf:"SQLITE_DB_PATH"`

	// PostgreSQL
	PostgresHost     string `koanf:"POSTGRES_HOST"`
	PostgresPort     int    `koanf:"POSTGRES_PORT"`
	PostgresUser     string `koanf:"POSTGRES_USER"`
	PostgresPassword string `koanf:"POSTGRES_PASSWORD"`
	PostgresDB       string `koanf:"POSTGRES_DB"`
	PostgresSSLMode  string `koanf:"POSTGRES_SSLMODE"`

	// Google Sheets
	GoogleSpreadsheetID   string `koanf:"GOOGLE_SPREADSHEET_ID"`
	GoogleSheetName       string `koanf:"GOOGLE_SHEET_NAME"`
	GoogleCredentialsFile string `koanf:"GOOGLE_CREDENTIALS_FILE"`
	GoogleCredentialsJSON string `koanf:"GOOGLE_CREDENTIALS_JSON"`
	GoogleOAuthClientFile string `koanf:"GOOGLE_OAUTH_CLIENT_FILE"`
	GoogleOAuthClientJSON string `koanf:"GOOGLE_OAUTH_CLIENT_JSON"`
	GoogleOAuthTokenFile  string `koanf:"GOOGLE_OAUTH_TOKEN_FILE"`

	// AMQP. Empty URL disables publishing.
	AMQPURL        string `koanf:"AMQP_URL"`
	AMQPExchange   string `koanf:"AMQP_EXCHANGE"`
	AMQPRoutingKey string `koanf:"AMQP_ROUTING_KEY"`

	// View cache
	CacheSize int           `koanf:"CACHE_SIZE"`
	CacheTTL  time.Duration `koanf:"CACHE_TTL"`

	CollateLanguage string `koanf:"COLLATE_LANGUAGE"`

	// Metadata overrides applied on top of the catalog's own.
	ReportYear     int    `koanf:"REPORT_YEAR"`
	HomeLocation   string `koanf:"HOME_LOCATION"`
	CurrencyFormat string `koanf:"CURRENCY_FORMAT"`
}

// Default returns the configuration used for every unset key.
func Default() *Config {
	return &Config{
		Port:            "8081",
		LogLevel:        "info",
		LogFormat:       "json",
		CatalogSource:   SourceMemory,
		CatalogPath:     "data",
		SQLiteDBPath:    "./data/tally.db",
		PostgresPort:    5432,
		PostgresSSLMode: "disable",
		GoogleSheetName: "Transactions",
		AMQPExchange:    "tally",
		AMQPRoutingKey:  "view.updated",
		CacheSize:       128,
		CacheTTL:        10 * time.Minute,
		CollateLanguage: "en",
	}
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadEnv()
}

// LoadEnv reads the process environment on top of the defaults.
func LoadEnv() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", nil), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.CatalogSource = strings.ToLower(strings.TrimSpace(cfg.CatalogSource))
	return cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'json' or 'text'", c.LogFormat))
	}

	switch c.CatalogSource {
	case SourceMemory:
	case SourceJSON:
		if c.CatalogPath == "" {
			errors = append(errors, "CATALOG_PATH is required when using the json catalog source")
		}
	case SourceSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using the sqlite catalog source")
		}
	case SourcePostgres:
		if c.PostgresHost == "" {
			errors = append(errors, "POSTGRES_HOST is required when using the postgres catalog source")
		}
		if c.PostgresDB == "" {
			errors = append(errors, "POSTGRES_DB is required when using the postgres catalog source")
		}
		if c.PostgresPort < 1 || c.PostgresPort > 65535 {
			errors = append(errors, fmt.Sprintf("invalid postgres port %d: must be between 1 and 65535", c.PostgresPort))
		}
	case SourceSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using the sheets catalog source")
		}
		serviceAccount := c.GoogleCredentialsFile != "" || c.GoogleCredentialsJSON != ""
		oauth := c.GoogleOAuthTokenFile != "" && (c.GoogleOAuthClientFile != "" || c.GoogleOAuthClientJSON != "")
		if !serviceAccount && !oauth {
			errors = append(errors, "GOOGLE_CREDENTIALS_FILE or GOOGLE_CREDENTIALS_JSON, or an OAuth client with GOOGLE_OAUTH_TOKEN_FILE, must be provided for the sheets catalog source")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid catalog source '%s': must be one of %v", c.CatalogSource, Sources))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}

	if _, err := language.Parse(c.CollateLanguage); err != nil {
		errors = append(errors, fmt.Sprintf("invalid collate language '%s': %v", c.CollateLanguage, err))
	}

	if c.ReportYear != 0 && (c.ReportYear < 1900 || c.ReportYear > 9999) {
		errors = append(errors, fmt.Sprintf("invalid report year %d", c.ReportYear))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Language returns the collation language, falling back to English.
func (c *Config) Language() language.Tag {
	tag, err := language.Parse(c.CollateLanguage)
	if err != nil {
		return language.English
	}
	return tag
}
