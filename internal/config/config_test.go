package config

import (
	"strings"
	"testing"
	"time"

	"golang.org/x/text/language"
)

func TestConfig_Validate(t *testing.T) {
	valid := func(mut func(*Config)) Config {
		c := *Default()
		if mut != nil {
			mut(&c)
		}
		return c
	}

	tests := []struct {
		name        string
		config      Config
		wantErr     bool
		errorString string
	}{
		{
			name:   "defaults are valid",
			config: valid(nil),
		},
		{
			name: "valid postgres source",
			config: valid(func(c *Config) {
				c.CatalogSource = SourcePostgres
				c.PostgresHost = "db"
				c.PostgresDB = "tally"
			}),
		},
		{
			name: "valid sheets source with inline credentials",
			config: valid(func(c *Config) {
				c.CatalogSource = SourceSheets
				c.GoogleSpreadsheetID = "abc"
				c.GoogleCredentialsJSON = "{}"
			}),
		},
		{
			name: "valid sheets source with oauth token",
			config: valid(func(c *Config) {
				c.CatalogSource = SourceSheets
				c.GoogleSpreadsheetID = "abc"
				c.GoogleOAuthClientFile = "client.json"
				c.GoogleOAuthTokenFile = "token.json"
			}),
		},
		{
			name: "sheets oauth token without client",
			config: valid(func(c *Config) {
				c.CatalogSource = SourceSheets
				c.GoogleSpreadsheetID = "abc"
				c.GoogleOAuthTokenFile = "token.json"
			}),
			wantErr:     true,
			errorString: "GOOGLE_OAUTH_TOKEN_FILE",
		},
		{
			name:        "invalid port - non-numeric",
			config:      valid(func(c *Config) { c.Port = "abc" }),
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range high",
			config:      valid(func(c *Config) { c.Port = "70000" }),
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "invalid catalog source",
			config:      valid(func(c *Config) { c.CatalogSource = "excel" }),
			wantErr:     true,
			errorString: "invalid catalog source 'excel'",
		},
		{
			name:        "postgres missing host",
			config:      valid(func(c *Config) { c.CatalogSource = SourcePostgres; c.PostgresDB = "tally" }),
			wantErr:     true,
			errorString: "POSTGRES_HOST is required",
		},
		{
			name:        "sheets missing credentials",
			config:      valid(func(c *Config) { c.CatalogSource = SourceSheets; c.GoogleSpreadsheetID = "abc" }),
			wantErr:     true,
			errorString: "GOOGLE_CREDENTIALS_FILE or GOOGLE_CREDENTIALS_JSON",
		},
		{
			name:        "sqlite source needs a path",
			config:      valid(func(c *Config) { c.CatalogSource = SourceSQLite; c.SQLiteDBPath = "" }),
			wantErr:     true,
			errorString: "SQLite database path cannot be empty",
		},
		{
			name:        "invalid AMQP scheme",
			config:      valid(func(c *Config) { c.AMQPURL = "http://localhost:5672" }),
			wantErr:     true,
			errorString: "invalid AMQP URL scheme 'http'",
		},
		{
			name:        "cache size",
			config:      valid(func(c *Config) { c.CacheSize = 0 }),
			wantErr:     true,
			errorString: "invalid cache size 0",
		},
		{
			name:        "log format",
			config:      valid(func(c *Config) { c.LogFormat = "xml" }),
			wantErr:     true,
			errorString: "invalid log format 'xml'",
		},
		{
			name:        "collate language",
			config:      valid(func(c *Config) { c.CollateLanguage = "not a tag!" }),
			wantErr:     true,
			errorString: "invalid collate language",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error containing %q", tt.errorString)
				}
				if !strings.Contains(err.Error(), tt.errorString) {
					t.Errorf("error %q does not contain %q", err.Error(), tt.errorString)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateAggregatesErrors(t *testing.T) {
	c := Default()
	c.Port = "0"
	c.CacheSize = -1
	err := c.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "configuration validation failed:\n- ") || strings.Count(msg, "\n- ") != 2 {
		t.Errorf("unexpected aggregate: %q", msg)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CATALOG_SOURCE", " Postgres ")
	t.Setenv("POSTGRES_PORT", "6543")
	t.Setenv("CACHE_SIZE", "32")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("REPORT_YEAR", "2025")

	cfg, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if cfg.Port != "9090" || cfg.CatalogSource != SourcePostgres || cfg.PostgresPort != 6543 {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.CacheSize != 32 || cfg.CacheTTL != 90*time.Second || cfg.ReportYear != 2025 {
		t.Errorf("typed values not decoded: %+v", cfg)
	}
	if cfg.LogFormat != "json" || cfg.AMQPExchange != "tally" {
		t.Errorf("unset keys must keep defaults: %+v", cfg)
	}
}

func TestLanguage(t *testing.T) {
	c := Default()
	c.CollateLanguage = "sv"
	if c.Language() != language.Swedish {
		t.Errorf("Language() = %v", c.Language())
	}
	c.CollateLanguage = "!!"
	if c.Language() != language.English {
		t.Errorf("fallback = %v", c.Language())
	}
}
