package storage

import (
	"database/sql"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date and timestamp columns are selected as text, so values arrive as the
// database prints them: Postgres text casts, sqlite's stored strings or
// RFC 3339.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	dateLayout,
}

// parseTimestamp parses an instant. Values without an offset are read in loc.
func parseTimestamp(v sql.NullString, loc *time.Location) (time.Time, bool) {
	s := strings.TrimSpace(v.String)
	if !v.Valid || s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseDate keeps only the calendar date and returns midnight of that date in
// loc. The date is taken as written, never shifted across zones.
func parseDate(v sql.NullString, loc *time.Location) (time.Time, bool) {
	t, ok := parseTimestamp(v, loc)
	if !ok {
		return time.Time{}, false
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc), true
}
