package source

import (
	"fmt"
	"strings"
	"time"
)

// dateLayouts are tried in order. The feeds in use carry:
//   - satellite telemetry: "2020-01-21 12:34:56" or RFC 3339
//   - SWPC observed SSN (Obsdate): "2024-01-01T00:00:00"
//   - SWPC solar cycle indices (time-tag): "2024-01"
//   - Penticton flux table (fluxdate): "20240101"
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"20060102",
	"2006-01",
	"2006 01 02",
	"01/02/2006",
}

// parseDate parses s with the first matching layout. The wall-clock date is
// kept and the time of day is not truncated here.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
