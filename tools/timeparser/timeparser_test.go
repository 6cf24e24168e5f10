package timeparser

import (
	"testing"
	"time"
)

func TestParseReadingTimestamp_ISOMillis(t *testing.T) {
	result, err := ParseReadingTimestamp("2025-12-29T10:30:45.123Z")
	if err != nil {
		t.Fatalf("Failed to parse timestamp: %v", err)
	}

	expected := time.Date(2025, 12, 29, 10, 30, 45, 123000000, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestParseReadingTimestamp_RFC3339(t *testing.T) {
	result, err := ParseReadingTimestamp("2025-12-29T10:30:45+01:00")
	if err != nil {
		t.Fatalf("Failed to parse timestamp: %v", err)
	}

	expected := time.Date(2025, 12, 29, 9, 30, 45, 0, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestParseReadingTimestamp_MeterFormat(t *testing.T) {
	result, err := ParseReadingTimestamp("29/12/2025 10:30:45")
	if err != nil {
		t.Fatalf("Failed to parse timestamp: %v", err)
	}

	expected := time.Date(2025, 12, 29, 10, 30, 45, 0, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestParseReadingTimestamp_Invalid(t *testing.T) {
	if _, err := ParseReadingTimestamp("invalid-date-string"); err == nil {
		t.Error("Expected error for invalid timestamp")
	}
}

func TestFormatTimestamp_RoundTrip(t *testing.T) {
	in := time.Date(2026, 3, 1, 8, 5, 9, 987000000, time.FixedZone("BRT", -3*3600))

	formatted := FormatTimestamp(in)
	if formatted != "2026-03-01T11:05:09.987Z" {
		t.Errorf("Unexpected format: %s", formatted)
	}

	parsed, err := ParseReadingTimestamp(formatted)
	if err != nil {
		t.Fatalf("Failed to parse formatted timestamp: %v", err)
	}
	if !parsed.Equal(in) {
		t.Errorf("Expected %v, got %v", in, parsed)
	}
}
