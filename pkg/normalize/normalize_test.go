package normalize

import "testing"

func TestTimestampShapes(t *testing.T) {
	cases := []string{
		"2024-03-15 08:30:00",
		"2024-03-15T08:30:00Z",
		"2024-03-15T08:30:00",
		"1710491400000",
	}
	for _, raw := range cases {
		ts, ok := Timestamp(raw)
		if !ok {
			t.Fatalf("expected %q to parse", raw)
		}
		if ts.Year() != 2024 {
			t.Fatalf("expected year 2024 for %q, got %d", raw, ts.Year())
		}
	}
}

func TestTimestampRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "not a date", "15/03/2024", "99"} {
		if _, ok := Timestamp(raw); ok && raw != "99" {
			t.Fatalf("expected %q to fail", raw)
		}
	}
	// tiny epoch values land outside the plausible range
	if _, ok := Timestamp("99"); ok {
		t.Fatal("expected bare small integer to be rejected")
	}
}

func TestDateOnlyIdempotent(t *testing.T) {
	date, ok := DateOnly("2024-03-15")
	if !ok || date != "2024-03-15" {
		t.Fatalf("expected canonical date unchanged, got %q ok=%v", date, ok)
	}
	date, ok = DateOnly("2024-03-15 22:10:05")
	if !ok || date != "2024-03-15" {
		t.Fatalf("expected date portion, got %q", date)
	}
}

func TestDurationDisambiguation(t *testing.T) {
	if got := Duration(5400000.0); got != 90 {
		t.Fatalf("5400000 ms should be 90 minutes, got %v", got)
	}
	if got := Duration("01:30:00"); got != 90 {
		t.Fatalf("01:30:00 should be 90 minutes, got %v", got)
	}
	if got := Duration(45); got != 45 {
		t.Fatalf("45 below threshold should stay 45, got %v", got)
	}
	if got := Duration("90:00"); got != 90 {
		t.Fatalf("M:S form should be 90, got %v", got)
	}
	if got := Duration("junk"); got != 0 {
		t.Fatalf("unparseable duration should be 0, got %v", got)
	}
}

func TestNumericNullVsZero(t *testing.T) {
	if Numeric("") != nil {
		t.Fatal("empty string should normalize to nil")
	}
	if Numeric(nil) != nil {
		t.Fatal("nil should normalize to nil")
	}
	got := Numeric("0")
	if got == nil || *got != 0 {
		t.Fatalf("zero must survive as zero, got %v", got)
	}
	got = Numeric(" 72.5 ")
	if got == nil || *got != 72.5 {
		t.Fatalf("expected 72.5, got %v", got)
	}
}
