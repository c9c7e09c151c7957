package storage

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"tally/internal/catalog"
	"tally/internal/core"
)

func newRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "tally.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestFilterState(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	got, err := repo.LoadFilterState(ctx)
	if err != nil || got != "" {
		t.Fatalf("fresh state = %q, %v", got, err)
	}

	for _, encoded := range []string{"+c:Food", "-t:Business%20Travel&+d:2024-11..2025-02", ""} {
		if err := repo.SaveFilterState(ctx, encoded); err != nil {
			t.Fatalf("SaveFilterState(%q): %v", encoded, err)
		}
		got, err := repo.LoadFilterState(ctx)
		if err != nil || got != encoded {
			t.Fatalf("LoadFilterState = %q, %v; want %q", got, err, encoded)
		}
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tally.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveFilterState(context.Background(), "+m:costco"); err != nil {
		t.Fatal(err)
	}
	repo.Close()

	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	if got, _ := repo.LoadFilterState(context.Background()); got != "+m:costco" {
		t.Errorf("state lost across reopen: %q", got)
	}
	if v := repo.SchemaVersion(); v != 1 {
		t.Errorf("SchemaVersion = %d, want 1", v)
	}

	var applied uint
	row := repo.db.QueryRow(`SELECT version FROM ` + MigrationsTable)
	if err := row.Scan(&applied); err != nil || applied != 1 {
		t.Errorf("%s version = %d, %v", MigrationsTable, applied, err)
	}
}

func TestImportAndLoadCatalog(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	if _, err := repo.Load(ctx); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("empty catalog error = %v", err)
	}

	in := &catalog.Catalog{
		Metadata: core.Metadata{Year: 2024, HomeLocation: "WA", DataSources: []string{"bank.csv"}},
		Sections: []string{"Weekly", "Empty"},
		Records: []core.Record{
			{ID: "1", Date: "2024-01-05", Amount: core.Money{Cents: 1250}, Description: "SAFEWAY", MerchantID: "safeway", Category: "Food", Subcategory: "Grocery", Tags: []string{"grocery"}, Sections: []string{"Weekly"}},
			{ID: "2", Date: "2024-01-31", Amount: core.Money{Cents: -500000}, MerchantName: "Acme", Category: "Income", Tags: []string{"income"}},
		},
	}
	if err := repo.ImportCatalog(ctx, in); err != nil {
		t.Fatalf("ImportCatalog: %v", err)
	}

	out, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(out.Records, in.Records) {
		t.Errorf("records round trip:\n got %+v\nwant %+v", out.Records, in.Records)
	}
	if !reflect.DeepEqual(out.Sections, in.Sections) {
		t.Errorf("sections = %v", out.Sections)
	}
	if out.Metadata.Year != 2024 || out.Metadata.HomeLocation != "WA" || out.Metadata.DataSources[0] != "bank.csv" {
		t.Errorf("metadata = %+v", out.Metadata)
	}

	// A second import replaces rather than appends.
	in.Records = in.Records[:1]
	if err := repo.ImportCatalog(ctx, in); err != nil {
		t.Fatal(err)
	}
	records, _ := repo.LoadRecords(ctx)
	if len(records) != 1 {
		t.Errorf("records after reimport = %d", len(records))
	}
}
