package postgres

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestConnStringDefaults(t *testing.T) {
	got := Config{Host: "db", Database: "tally", User: "u", Password: "p"}.ConnString()
	want := "host=db port=5432 user=u password=p dbname=tally sslmode=disable"
	if got != want {
		t.Errorf("ConnString() = %q, want %q", got, want)
	}
}

func TestIsUndefinedTable(t *testing.T) {
	if !isUndefinedTable(&pgconn.PgError{Code: "42P01"}) {
		t.Error("42P01 should be recognized")
	}
	if isUndefinedTable(&pgconn.PgError{Code: "23505"}) || isUndefinedTable(errors.New("x")) {
		t.Error("other errors are not undefined table")
	}
}

func TestNewConnectionFailure(t *testing.T) {
	cfg := Config{Host: "127.0.0.1", Port: 1, Database: "tally", User: "tally", Password: "x"}
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Error("expected error when nothing listens on the port")
	}
}

// TestLoad runs against a real database when TEST_POSTGRES_HOST is set.
func TestLoad(t *testing.T) {
	if os.Getenv("TEST_POSTGRES_HOST") == "" {
		t.Skip("TEST_POSTGRES_HOST not set, skipping integration test")
	}
	port, _ := strconv.Atoi(os.Getenv("TEST_POSTGRES_PORT"))
	cfg := Config{
		Host:     os.Getenv("TEST_POSTGRES_HOST"),
		Port:     port,
		Database: os.Getenv("TEST_POSTGRES_DB"),
		User:     os.Getenv("TEST_POSTGRES_USER"),
		Password: os.Getenv("TEST_POSTGRES_PASSWORD"),
	}

	ctx := context.Background()
	src, err := New(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer src.Close()

	if err := src.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	_, err = src.pool.Exec(ctx, `
INSERT INTO classified_transactions (id, txn_date, amount_cents, description, tags, merchant_id, merchant_name, category, subcategory, sections)
VALUES ('it-1', '2024-02-03', 1250, 'SAFEWAY', '{grocery}', 'safeway', 'Safeway', 'Food', 'Grocery', '{Weekly}')
ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	c, err := src.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	var found bool
	for _, r := range c.Records {
		if r.ID == "it-1" {
			found = true
			if r.Date != "2024-02-03" || r.Amount.Cents != 1250 || len(r.Tags) != 1 {
				t.Errorf("record = %+v", r)
			}
		}
	}
	if !found {
		t.Error("seeded record not loaded")
	}
}
