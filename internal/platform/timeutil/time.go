package timeutil

import "time"

// RFC3339Micros is RFC 3339 UTC with fixed microsecond precision.
// Log timestamps use this layout.
const RFC3339Micros = "2006-01-02T15:04:05.000000Z"

// FormatMicros renders t in UTC using RFC3339Micros.
func FormatMicros(t time.Time) string {
	return t.UTC().Format(RFC3339Micros)
}
