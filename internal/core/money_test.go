package core

import (
	"encoding/json"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", -100, true},
		{"-12,34", -1234, true},
		{"+3", 300, true},
		{"0", 0, true},
		{".5", 50, true},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"-", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := Money{Cents: -250}
	if a.Abs().Cents != 250 || !a.IsNegative() {
		t.Fatalf("Abs/IsNegative broken: %+v", a)
	}
	if a.Add(Money{Cents: 300}).Cents != 50 {
		t.Fatalf("Add broken")
	}
	if a.Neg().Cents != 250 {
		t.Fatalf("Neg broken")
	}
	if a.Float() != -2.5 {
		t.Fatalf("Float = %v", a.Float())
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		0:     "0.00",
		5:     "0.05",
		1234:  "12.34",
		-1230: "-12.30",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Errorf("%d: got %q want %q", cents, got, want)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	data, err := json.Marshal(struct{ A Money }{Money{Cents: -42}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"A":-42}` {
		t.Fatalf("marshal = %s", data)
	}
	var m Money
	if err := json.Unmarshal([]byte("1999"), &m); err != nil || m.Cents != 1999 {
		t.Fatalf("unmarshal = %+v, %v", m, err)
	}
	if err := json.Unmarshal([]byte(`"x"`), &m); err == nil {
		t.Fatalf("expected error for string")
	}
}

func TestRatio(t *testing.T) {
	if Ratio(1, 0) != 0 {
		t.Fatalf("zero denominator must yield 0")
	}
	if Ratio(1, 4) != 0.25 {
		t.Fatalf("Ratio(1,4) = %v", Ratio(1, 4))
	}
}
