package timeparser

import (
	"fmt"
	"time"
)

// ISOLayout matches the millisecond UTC timestamps readings are stamped with
const ISOLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t as an ISO-8601 UTC timestamp with millisecond precision
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// FormatClock renders t as the short HH:MM wall-clock time shown next to "last sync"
func FormatClock(t time.Time) string {
	return t.Local().Format("15:04")
}

// ParseReadingTimestamp attempts to parse a stored timestamp with multiple formats
func ParseReadingTimestamp(dateStr string) (time.Time, error) {
	formats := []string{
		ISOLayout,
		time.RFC3339Nano,
		time.RFC3339,
		"02/01/2006 15:04:05", // DD/MM/YYYY HH:mm:ss
	}

	var lastErr error
	for _, format := range formats {
		t, err := time.Parse(format, dateStr)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("failed to parse timestamp '%s': %w", dateStr, lastErr)
}
