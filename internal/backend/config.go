package backend

import (
	"fmt"

	"tally/internal/catalog/google"
	"tally/internal/catalog/postgres"
	"tally/internal/config"
	"tally/internal/core"
)

// Config holds configuration for backend creation
type Config struct {
	Source SourceType

	// Directory for the memory source, file for the json source.
	CatalogPath string

	// SQLite state store, and catalog for the sqlite source. Empty disables
	// persistence.
	SQLiteDBPath string

	Postgres postgres.Config
	Sheets   google.Config

	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	// Metadata overrides the catalog's own non-zero fields.
	Metadata core.Metadata
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	sourceType := SourceType(appConfig.CatalogSource)
	if !sourceType.IsValid() {
		return Config{}, fmt.Errorf("invalid catalog source in config: %s", appConfig.CatalogSource)
	}

	return Config{
		Source:       sourceType,
		CatalogPath:  appConfig.CatalogPath,
		SQLiteDBPath: appConfig.SQLiteDBPath,

		Postgres: postgres.Config{
			Host:     appConfig.PostgresHost,
			Port:     appConfig.PostgresPort,
			Database: appConfig.PostgresDB,
			User:     appConfig.PostgresUser,
			Password: appConfig.PostgresPassword,
			SSLMode:  appConfig.PostgresSSLMode,
		},

		Sheets: google.Config{
			SpreadsheetID:   appConfig.GoogleSpreadsheetID,
			SheetName:       appConfig.GoogleSheetName,
			CredentialsFile: appConfig.GoogleCredentialsFile,
			CredentialsJSON: appConfig.GoogleCredentialsJSON,
			OAuthClientFile: appConfig.GoogleOAuthClientFile,
			OAuthClientJSON: appConfig.GoogleOAuthClientJSON,
			OAuthTokenFile:  appConfig.GoogleOAuthTokenFile,
		},

		AMQPURL:        appConfig.AMQPURL,
		AMQPExchange:   appConfig.AMQPExchange,
		AMQPRoutingKey: appConfig.AMQPRoutingKey,

		Metadata: core.Metadata{
			Year:           appConfig.ReportYear,
			HomeLocation:   appConfig.HomeLocation,
			CurrencyFormat: appConfig.CurrencyFormat,
		},
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Source.IsValid() {
		return fmt.Errorf("invalid catalog source: %s", c.Source)
	}

	switch c.Source {
	case JSONSource:
		if c.CatalogPath == "" {
			return fmt.Errorf("catalog path is required for json source")
		}
	case SQLiteSource:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite source")
		}
	case PostgresSource:
		if c.Postgres.Host == "" || c.Postgres.Database == "" {
			return fmt.Errorf("postgres host and database are required for postgres source")
		}
	case SheetsSource:
		if c.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets source")
		}
		if c.Sheets.CredentialsFile == "" && c.Sheets.CredentialsJSON == "" && c.Sheets.OAuthTokenFile == "" {
			return fmt.Errorf("service account credentials or an OAuth token file must be provided for sheets source")
		}
	case MemorySource:
		// CatalogPath defaults to "data"
	}

	return nil
}
