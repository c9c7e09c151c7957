package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateMonthKey(t *testing.T) {
	if got := NewDate(2024, 3, 9).MonthKey(); got != "2024-03" {
		t.Fatalf("MonthKey = %q", got)
	}
	if got := (Date{}).MonthKey(); got != "" {
		t.Fatalf("zero date MonthKey = %q", got)
	}
}

func TestTagSet(t *testing.T) {
	s := NewTagSet("Coffee", " business ", "", "coffee")
	if len(s) != 2 {
		t.Fatalf("expected 2 tags, got %v", s.Sorted())
	}
	if !s.Has("COFFEE") || !s.Has("Business") {
		t.Fatalf("case-insensitive membership failed: %v", s.Sorted())
	}
	var empty TagSet
	if empty.Has("coffee") {
		t.Fatalf("nil set must be empty")
	}
	u := s.Union(NewTagSet("travel"))
	if got := u.Sorted(); len(got) != 3 || got[0] != "business" || got[2] != "travel" {
		t.Fatalf("union = %v", got)
	}

	data, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `["business","coffee","travel"]` {
		t.Fatalf("marshal = %s", data)
	}
	var back TagSet
	if err := json.Unmarshal([]byte(`["A","b"]`), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Has("a") || !back.Has("B") {
		t.Fatalf("unmarshal = %v", back.Sorted())
	}
}

func TestMerchantHelpers(t *testing.T) {
	m := &Merchant{ID: "costco"}
	if m.Name() != "costco" {
		t.Fatalf("Name fallback = %q", m.Name())
	}
	m.DisplayName = "Costco"
	if m.Name() != "Costco" {
		t.Fatalf("Name = %q", m.Name())
	}
	for _, c := range []string{"", " ", "Unknown", "unknown"} {
		m.Category = c
		if !m.IsUncategorized() {
			t.Errorf("category %q should be uncategorized", c)
		}
	}
	m.Category = "Food"
	if m.IsUncategorized() {
		t.Errorf("Food should be categorized")
	}
}

func TestYearMonth(t *testing.T) {
	ym, err := ParseYearMonth("2024-12")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := ym.Next().String(); got != "2025-01" {
		t.Fatalf("Next = %s", got)
	}
	if !ym.Before(ym.Next()) || ym.Next().Before(ym) {
		t.Fatalf("Before ordering broken")
	}
	for _, bad := range []string{"", "2024-13", "2024-00", "24-01", "2024/01", "2024-1", "abcd-01"} {
		if _, err := ParseYearMonth(bad); err == nil {
			t.Errorf("%q expected error", bad)
		}
	}
}
