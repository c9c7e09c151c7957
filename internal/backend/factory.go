package backend

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"tally/internal/amqp"
	"tally/internal/catalog"
	"tally/internal/catalog/google"
	"tally/internal/catalog/jsonfile"
	"tally/internal/catalog/memory"
	"tally/internal/catalog/postgres"
	"tally/internal/log"
	"tally/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend opens the state store, the catalog source and the optional
// publisher, then loads the catalog once.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	b := &Backend{}
	var closers []func() error
	cleanup := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (*BackendResult, error) {
		if cerr := cleanup(); cerr != nil {
			f.logger.Warn("Cleanup after failed backend creation", log.FieldError, cerr)
		}
		return nil, err
	}

	var repo *storage.SQLiteRepository
	if config.SQLiteDBPath != "" {
		var err error
		repo, err = storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return fail(fmt.Errorf("failed to initialize SQLite repository: %w", err))
		}
		closers = append(closers, repo.Close)
		b.State = repo
		b.checks = append(b.checks, repo)
		f.logger.Info("Initialized SQLite state store", "db_path", config.SQLiteDBPath)
	}

	source, err := f.createSource(ctx, config, repo, &closers, b)
	if err != nil {
		return fail(err)
	}
	b.Source = source

	cat, err := source.Load(ctx)
	if err != nil {
		return fail(fmt.Errorf("load %s catalog: %w", config.Source, err))
	}
	cat.MergeMetadata(config.Metadata)
	h, err := cat.Hierarchy()
	if err != nil {
		return fail(err)
	}
	b.Catalog = cat
	b.Hierarchy = h
	f.logger.Info("Catalog loaded",
		log.FieldSource, config.Source.String(),
		log.FieldRecords, len(cat.Records),
		"sections", len(cat.Sections),
	)

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(ctx, config.AMQPURL, config.AMQPExchange, config.AMQPRoutingKey, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without view events", log.FieldError, err)
		} else {
			closers = append(closers, client.Close)
			b.Publisher = client
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"routing_key", config.AMQPRoutingKey)
		}
	}

	return &BackendResult{Backend: b, Cleanup: cleanup}, nil
}

func (f *DefaultFactory) createSource(ctx context.Context, config Config, repo *storage.SQLiteRepository, closers *[]func() error, b *Backend) (catalog.Source, error) {
	switch config.Source {
	case MemorySource:
		dir := config.CatalogPath
		if dir == "" {
			dir = "data"
		}
		return memory.NewFromFiles(dir), nil

	case JSONSource:
		return jsonfile.New(jsonPath(config.CatalogPath)), nil

	case SQLiteSource:
		if repo == nil {
			return nil, fmt.Errorf("sqlite source requires a database path")
		}
		return repo, nil

	case PostgresSource:
		src, err := postgres.New(ctx, config.Postgres, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL source: %w", err)
		}
		*closers = append(*closers, func() error { src.Close(); return nil })
		b.checks = append(b.checks, src)
		return src, nil

	case SheetsSource:
		src, err := google.New(ctx, config.Sheets, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets source: %w", err)
		}
		return src, nil

	default:
		return nil, fmt.Errorf("unsupported catalog source: %s", config.Source)
	}
}

// jsonPath accepts either a file or a directory holding catalog.json.
func jsonPath(p string) string {
	if filepath.Ext(p) == "" {
		return filepath.Join(p, "catalog.json")
	}
	return p
}
