// Command tally-snapshot loads the configured catalog once, applies an
// encoded filter string and prints the resulting snapshot as JSON.
//
// It can also export the loaded catalog to a JSON file or copy it into the
// SQLite database so later runs can use CATALOG_SOURCE=sqlite.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"tally/internal/backend"
	"tally/internal/catalog/jsonfile"
	"tally/internal/config"
	"tally/internal/engine"
	"tally/internal/log"
	"tally/internal/sorting"
	"tally/internal/storage"
)

type multiString []string

func (m *multiString) String() string { return strings.Join(*m, ",") }
func (m *multiString) Set(v string) error {
	*m = append(*m, v)
	return nil
}

type options struct {
	filters      string
	sorts        multiString
	output       string
	exportJSON   string
	importSQLite bool
	compact      bool
}

func main() {
	var opts options
	flag.StringVar(&opts.filters, "filters", "", "Encoded filter string, e.g. '+c:Food&-t:transfer'")
	flag.Var(&opts.sorts, "sort", "Sort as section=column (can be specified multiple times)")
	flag.StringVar(&opts.output, "o", "", "Write the snapshot to this file instead of stdout")
	flag.StringVar(&opts.exportJSON, "export-json", "", "Also write the loaded catalog to this JSON file")
	flag.BoolVar(&opts.importSQLite, "import-sqlite", false, "Also copy the loaded catalog into SQLITE_DB_PATH")
	flag.BoolVar(&opts.compact, "compact", false, "Print compact JSON")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	level, _ := log.ParseLevel(cfg.LogLevel)
	logger := log.New(log.Config{Level: level, Format: cfg.LogFormat, Component: log.ComponentApp, Output: os.Stderr})

	if err := run(context.Background(), cfg, opts, logger); err != nil {
		logger.Error("Snapshot failed", log.FieldError, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, logger *log.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	// One-shot runs never publish view events.
	backendCfg.AMQPURL = ""
	if !opts.importSQLite && backendCfg.Source != backend.SQLiteSource {
		backendCfg.SQLiteDBPath = ""
	}

	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Warn("Backend cleanup failed", log.FieldError, err)
		}
	}()
	b := res.Backend

	if opts.exportJSON != "" {
		if err := exportJSON(opts.exportJSON, b); err != nil {
			return err
		}
		logger.Info("Catalog exported", "path", opts.exportJSON, log.FieldRecords, len(b.Catalog.Records))
	}
	if opts.importSQLite {
		if err := importSQLite(ctx, b); err != nil {
			return err
		}
		logger.Info("Catalog imported", "db_path", backendCfg.SQLiteDBPath, log.FieldRecords, len(b.Catalog.Records))
	}

	session := engine.NewSession(b.Hierarchy, nil,
		engine.WithLogger(logger),
		engine.WithSortOptions(sorting.WithLanguage(cfg.Language())),
	)
	snap := session.ApplyEncoded(opts.filters)
	for _, spec := range opts.sorts {
		section, column, ok := strings.Cut(spec, "=")
		if !ok {
			return fmt.Errorf("invalid -sort %q: want section=column", spec)
		}
		col, err := sorting.ParseColumn(column)
		if err != nil {
			return err
		}
		if snap, err = session.ToggleSort(section, col); err != nil {
			return fmt.Errorf("sort %q: %w", section, err)
		}
	}
	for _, w := range snap.Warnings {
		logger.Warn("Filter ignored", log.FieldError, w)
	}

	out := io.Writer(os.Stdout)
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	if !opts.compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

func exportJSON(path string, b *backend.Backend) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create catalog file: %w", err)
	}
	if err := jsonfile.Encode(f, b.Catalog); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func importSQLite(ctx context.Context, b *backend.Backend) error {
	repo, ok := b.State.(*storage.SQLiteRepository)
	if !ok {
		return errors.New("import-sqlite needs SQLITE_DB_PATH")
	}
	if any(b.Source) == any(repo) {
		return errors.New("catalog already comes from sqlite")
	}
	return repo.ImportCatalog(ctx, b.Catalog)
}
