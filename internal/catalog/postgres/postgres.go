// Package postgres reads the classified transaction catalog from a
// PostgreSQL database populated by the classifier. It never writes.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"tally/internal/catalog"
	"tally/internal/core"
	"tally/internal/log"
)

//go:embed schema.sql
var schemaSQL string

const undefinedTable = "42P01"

const recordsQuery = `
SELECT id, txn_date, amount_cents, description, COALESCE(location, ''), tags,
       COALESCE(source, ''), merchant_id, merchant_name, category, subcategory,
       category_path, merchant_tags, sections, COALESCE(excluded_reason, '')
FROM classified_transactions
ORDER BY txn_date, id`

const sectionsQuery = `SELECT name FROM report_sections ORDER BY position, name`

// Config holds the PostgreSQL connection settings.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	MaxPoolSize int
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.MaxPoolSize == 0 {
		c.MaxPoolSize = 4
	}
	return c
}

// ConnString renders the keyword/value connection string.
func (c Config) ConnString() string {
	c = c.withDefaults()
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type Source struct {
	pool   *pgxpool.Pool
	logger *log.Logger
	name   string
}

var _ catalog.Source = (*Source)(nil)

// New opens a connection pool and verifies it with a ping.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Source, error) {
	if logger == nil {
		logger = log.Discard()
	}
	cfg = cfg.withDefaults()

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxPoolSize)
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger = logger.WithComponent(log.ComponentCatalog)
	logger.Info("connected to PostgreSQL", "host", cfg.Host, "port", cfg.Port, "database", cfg.Database)

	return &Source{
		pool:   pool,
		logger: logger,
		name:   fmt.Sprintf("postgres:%s/%s", cfg.Host, cfg.Database),
	}, nil
}

// Load reads every classified transaction and the declared sections.
func (s *Source) Load(ctx context.Context) (*catalog.Catalog, error) {
	records, err := s.records(ctx)
	if err != nil {
		return nil, err
	}
	sections, err := s.sections(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "catalog loaded from postgres", log.FieldRecords, len(records))
	return &catalog.Catalog{
		Metadata: core.Metadata{DataSources: []string{s.name}},
		Sections: sections,
		Records:  records,
	}, nil
}

func (s *Source) records(ctx context.Context) ([]core.Record, error) {
	rows, err := s.pool.Query(ctx, recordsQuery)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, fmt.Errorf("%w: table classified_transactions", catalog.ErrNotFound)
		}
		return nil, fmt.Errorf("querying transactions: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Record, error) {
		var (
			r    core.Record
			date time.Time
		)
		err := row.Scan(&r.ID, &date, &r.Amount.Cents, &r.Description, &r.Location, &r.Tags,
			&r.Source, &r.MerchantID, &r.MerchantName, &r.Category, &r.Subcategory,
			&r.CategoryPath, &r.MerchantTags, &r.Sections, &r.ExcludedReason)
		r.Date = date.Format("2006-01-02")
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning transactions: %w", err)
	}
	return records, nil
}

// sections is optional: a database without report_sections declares none.
func (s *Source) sections(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, sectionsQuery)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying sections: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		if isUndefinedTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning sections: %w", err)
	}
	return names, nil
}

// EnsureSchema creates the catalog tables when missing. The service itself
// only reads; this exists for provisioning and integration tests.
func (s *Source) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *Source) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Source) Close() {
	s.pool.Close()
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTable
}
