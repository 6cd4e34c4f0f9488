package validate_test

import (
	"testing"
	"time"

	"tillbox/internal/validate"
)

func TestItemNumber(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{" AB-1 ", "AB-1", true},
		{"item_42", "item_42", true},
		{"", "", false},
		{"   ", "", false},
		{"has space", "", false},
		{"slash/y", "", false},
	}
	for _, tc := range cases {
		got, ok := validate.ItemNumber(tc.in)
		if ok != tc.ok {
			t.Fatalf("ItemNumber(%q) ok = %v, want %v", tc.in, ok, tc.ok)
		}
		if ok && got != tc.want {
			t.Fatalf("ItemNumber(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLimit(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abc", 0},
		{"-5", 0},
		{"25", 25},
		{"9999", 500},
	}
	for _, tc := range cases {
		if got := validate.Limit(tc.in); got != tc.want {
			t.Fatalf("Limit(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestDayWindow(t *testing.T) {
	from, to, err := validate.DayWindow("2024-03-15", time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if to-from != 24*3600 {
		t.Fatalf("window length = %d seconds", to-from)
	}
	if time.Unix(from, 0).UTC().Format("2006-01-02") != "2024-03-15" {
		t.Fatalf("window start = %d", from)
	}

	if _, _, err := validate.DayWindow("15/03/2024", time.UTC); err == nil {
		t.Fatal("malformed date accepted")
	}
}

func TestMonthWindowYearRollover(t *testing.T) {
	from, to, err := validate.MonthWindow("2024-12", time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	start := time.Unix(from, 0).UTC()
	end := time.Unix(to, 0).UTC()
	if start.Format("2006-01") != "2024-12" {
		t.Fatalf("start = %s", start)
	}
	if end.Format("2006-01") != "2025-01" {
		t.Fatalf("december window must roll into january, end = %s", end)
	}

	if _, _, err := validate.MonthWindow("2024-13", time.UTC); err == nil {
		t.Fatal("month 13 accepted")
	}
}
