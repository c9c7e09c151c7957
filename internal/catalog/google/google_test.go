package google

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"google.golang.org/api/googleapi"

	"tally/internal/catalog"
)

type fakeValues struct {
	errs  []error
	rows  [][]any
	calls int
}

func (f *fakeValues) Get(_ context.Context, _, _ string) ([][]any, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return f.rows, nil
}

var sheet = [][]any{
	{"Date", "Amount", "Description", "Merchant_ID", "Merchant_Name", "Category", "Subcategory", "Tags", "Sections", "Location"},
	{"2024-01-05", 12.5, "SAFEWAY #12", "safeway", "Safeway", "Food", "Grocery", "", "Weekly", "WA"},
	{"2024-01-06", "-1,234.50"},
	{"2024-01-07", 1000000.0, "RENT", "landlord", "Landlord", "Housing", "Rent", "home; fixed", "Weekly, Bills"},
	{"not a date", 10.0, "BAD", "x", "X", "Misc"},
	{},
	{"2024-01-08", -2500.0, "PAYROLL", "", "Acme", "Income", "Salary", "income"},
}

func newTestClient(f *fakeValues) *Client {
	c := newClient(f, Config{SpreadsheetID: "sheet-1"}, nil)
	c.delay = 0
	return c
}

func TestParseRecords(t *testing.T) {
	records, skipped, err := parseRecords(sheet)
	if err != nil {
		t.Fatalf("parseRecords: %v", err)
	}
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
	if len(records) != 3 {
		t.Fatalf("records = %+v", records)
	}
	if records[0].Amount.Cents != 1250 || records[0].ID != "row2" || records[0].Location != "WA" {
		t.Errorf("first record = %+v", records[0])
	}
	rent := records[1]
	if rent.Amount.Cents != 100000000 {
		t.Errorf("large amounts must not use exponent notation: %d", rent.Amount.Cents)
	}
	if len(rent.Tags) != 2 || rent.Tags[1] != "fixed" || len(rent.Sections) != 2 || rent.Sections[1] != "Bills" {
		t.Errorf("lists not split: tags %v sections %v", rent.Tags, rent.Sections)
	}
}

func TestParseRecordsMissingHeader(t *testing.T) {
	_, _, err := parseRecords([][]any{{"When", "How much"}})
	if !errors.Is(err, errMissingHeader) {
		t.Fatalf("expected header error, got %v", err)
	}
	records, _, err := parseRecords(nil)
	if err != nil || records != nil {
		t.Fatalf("empty sheet = %v, %v", records, err)
	}
}

func TestLoadRetriesRateLimit(t *testing.T) {
	f := &fakeValues{errs: []error{&googleapi.Error{Code: http.StatusTooManyRequests}}, rows: sheet}
	c, err := newTestClient(f).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.calls != 2 {
		t.Errorf("calls = %d, want 2", f.calls)
	}
	if len(c.Sections) != 2 || c.Sections[0] != "Weekly" {
		t.Errorf("sections = %v", c.Sections)
	}
	if _, err := c.Hierarchy(); err != nil {
		t.Errorf("Hierarchy: %v", err)
	}
}

func TestLoadDoesNotRetryClientErrors(t *testing.T) {
	f := &fakeValues{errs: []error{&googleapi.Error{Code: http.StatusForbidden}}}
	if _, err := newTestClient(f).Load(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if f.calls != 1 {
		t.Errorf("calls = %d, want 1", f.calls)
	}

	f = &fakeValues{errs: []error{&googleapi.Error{Code: http.StatusNotFound}}}
	if _, err := newTestClient(f).Load(context.Background()); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("404 should map to ErrNotFound, got %v", err)
	}
}

func TestLoadGivesUpAfterAttempts(t *testing.T) {
	boom := &googleapi.Error{Code: http.StatusServiceUnavailable}
	f := &fakeValues{errs: []error{boom, boom, boom, boom}}
	if _, err := newTestClient(f).Load(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if f.calls != readAttempts {
		t.Errorf("calls = %d, want %d", f.calls, readAttempts)
	}
}

func TestNewRequiresConfig(t *testing.T) {
	if _, err := New(context.Background(), Config{}, nil); err == nil {
		t.Error("missing spreadsheet id should fail")
	}
	if _, err := New(context.Background(), Config{SpreadsheetID: "x"}, nil); err == nil {
		t.Error("missing credentials should fail")
	}
}
