package model

import "time"

// ISOLayout is the millisecond UTC timestamp format used in backups and by
// the sync server.
const ISOLayout = "2006-01-02T15:04:05.000Z"

// FormatISO renders t in ISOLayout.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// ParseISO accepts ISOLayout and any RFC 3339 timestamp.
func ParseISO(s string) (time.Time, error) {
	if t, err := time.Parse(ISOLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
