// Package storage persists the filter state and an optional local copy of
// the catalog in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"tally/internal/catalog"
	"tally/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	path    string
	version uint
}

var _ catalog.Source = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, path: dbPath, version: version}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SchemaVersion is the migration version the database was brought to.
func (r *SQLiteRepository) SchemaVersion() uint { return r.version }

// Ping reports whether the database is usable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// LoadFilterState returns the last persisted encoded filter string, or ""
// when nothing was saved yet.
func (r *SQLiteRepository) LoadFilterState(ctx context.Context) (string, error) {
	var encoded string
	err := r.db.QueryRowContext(ctx, `SELECT encoded FROM filter_state WHERE id = 1`).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load filter state: %w", err)
	}
	return encoded, nil
}

// SaveFilterState stores encoded as the single persisted filter state.
func (r *SQLiteRepository) SaveFilterState(ctx context.Context, encoded string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO filter_state (id, encoded, updated_at) VALUES (1, ?, CURRENT_TIMESTAMP)
ON CONFLICT(id) DO UPDATE SET encoded = excluded.encoded, updated_at = excluded.updated_at`, encoded)
	if err != nil {
		return fmt.Errorf("save filter state: %w", err)
	}
	return nil
}

// Load implements catalog.Source over the local catalog tables.
func (r *SQLiteRepository) Load(ctx context.Context) (*catalog.Catalog, error) {
	records, err := r.LoadRecords(ctx)
	if err != nil {
		return nil, err
	}
	sections, err := r.sections(ctx)
	if err != nil {
		return nil, err
	}
	meta, err := r.metadata(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 && len(sections) == 0 {
		return nil, fmt.Errorf("%w: no records in %s", catalog.ErrNotFound, r.path)
	}
	if len(meta.DataSources) == 0 {
		meta.DataSources = []string{"sqlite:" + r.path}
	}
	return &catalog.Catalog{Metadata: meta, Sections: sections, Records: records}, nil
}

// LoadRecords returns the stored records in import order.
func (r *SQLiteRepository) LoadRecords(ctx context.Context) ([]core.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, txn_date, amount_cents, description, location, tags, source, merchant_id,
       merchant_name, category, subcategory, category_path, merchant_tags, sections, excluded_reason
FROM catalog_records ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		var (
			rec                           core.Record
			tags, merchantTags, sectionsJ string
		)
		if err := rows.Scan(&rec.ID, &rec.Date, &rec.Amount.Cents, &rec.Description, &rec.Location,
			&tags, &rec.Source, &rec.MerchantID, &rec.MerchantName, &rec.Category, &rec.Subcategory,
			&rec.CategoryPath, &merchantTags, &sectionsJ, &rec.ExcludedReason); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if rec.Tags, err = decodeList(tags); err != nil {
			return nil, fmt.Errorf("record %s tags: %w", rec.ID, err)
		}
		if rec.MerchantTags, err = decodeList(merchantTags); err != nil {
			return nil, fmt.Errorf("record %s merchant tags: %w", rec.ID, err)
		}
		if rec.Sections, err = decodeList(sectionsJ); err != nil {
			return nil, fmt.Errorf("record %s sections: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// ImportCatalog replaces the stored catalog with c in one transaction.
func (r *SQLiteRepository) ImportCatalog(ctx context.Context, c *catalog.Catalog) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM catalog_records`, `DELETE FROM catalog_sections`, `DELETE FROM catalog_metadata`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear catalog: %w", err)
		}
	}

	insert, err := tx.PrepareContext(ctx, `
INSERT INTO catalog_records (id, txn_date, amount_cents, description, location, tags, source, merchant_id,
    merchant_name, category, subcategory, category_path, merchant_tags, sections, excluded_reason)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer insert.Close()

	for _, rec := range c.Records {
		_, err := insert.ExecContext(ctx, rec.ID, rec.Date, rec.Amount.Cents, rec.Description, rec.Location,
			encodeList(rec.Tags), rec.Source, rec.MerchantID, rec.MerchantName, rec.Category, rec.Subcategory,
			rec.CategoryPath, encodeList(rec.MerchantTags), encodeList(rec.Sections), rec.ExcludedReason)
		if err != nil {
			return fmt.Errorf("insert record %s: %w", rec.ID, err)
		}
	}

	for _, name := range c.Sections {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO catalog_sections (name) VALUES (?)`, name); err != nil {
			return fmt.Errorf("insert section %q: %w", name, err)
		}
	}

	meta := map[string]string{
		"year":            strconv.Itoa(c.Metadata.Year),
		"num_months":      strconv.Itoa(c.Metadata.NumMonths),
		"home_location":   c.Metadata.HomeLocation,
		"currency_format": c.Metadata.CurrencyFormat,
		"data_sources":    encodeList(c.Metadata.DataSources),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO catalog_metadata (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("insert metadata %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) sections(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM catalog_sections ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query sections: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) metadata(ctx context.Context) (core.Metadata, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM catalog_metadata`)
	if err != nil {
		return core.Metadata{}, fmt.Errorf("query metadata: %w", err)
	}
	defer rows.Close()

	var m core.Metadata
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return core.Metadata{}, fmt.Errorf("scan metadata: %w", err)
		}
		switch k {
		case "year":
			m.Year, _ = strconv.Atoi(v)
		case "num_months":
			m.NumMonths, _ = strconv.Atoi(v)
		case "home_location":
			m.HomeLocation = v
		case "currency_format":
			m.CurrencyFormat = v
		case "data_sources":
			m.DataSources, _ = decodeList(v)
		}
	}
	return m, rows.Err()
}

func encodeList(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(list)
	return string(b)
}

func decodeList(s string) ([]string, error) {
	if s == "" || s == "[]" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}
