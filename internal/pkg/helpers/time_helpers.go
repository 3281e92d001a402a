package helpers

import (
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// ISODate is the wire format of dates in requests and path parameters
	ISODate = "2006-01-02"
	// DisplayDate is the format of dates rendered for the UI
	DisplayDate = "01/02/2006"
)

// ParseDuration parses a duration string, returns default duration on error.
func ParseDuration(durationStr string, defaultDuration time.Duration) time.Duration {
	duration, err := time.ParseDuration(durationStr)
	if err != nil {
		log.Warn().Err(err).Str("durationStr", durationStr).Dur("defaultDuration", defaultDuration).Msg("Failed to parse duration string, using default")
		return defaultDuration
	}
	return duration
}

// ParseISODate parses a YYYY-MM-DD date in UTC.
func ParseISODate(s string) (time.Time, error) {
	return time.ParseInLocation(ISODate, s, time.UTC)
}

// FormatISODate renders t as YYYY-MM-DD.
func FormatISODate(t time.Time) string {
	return t.Format(ISODate)
}

// FormatDisplayDate renders t as MM/DD/YYYY, or fallback for nil.
func FormatDisplayDate(t *time.Time, fallback string) string {
	if t == nil || t.IsZero() {
		return fallback
	}
	return t.Format(DisplayDate)
}

// DateOf truncates t to midnight UTC of its calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
