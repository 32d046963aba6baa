package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var BrisbaneTZ = time.FixedZone("UTC+10", 10*60*60)

// LoadLocation falls back to BrisbaneTZ when the zone database has no
// entry for name (e.g. slim Lambda images).
func LoadLocation(name string) *time.Location {
	if name == "" {
		return BrisbaneTZ
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return BrisbaneTZ
	}
	return loc
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// ParseEpoch parses "1700000000.123456" style timestamps (Slack ts) to the
// second.
func ParseEpoch(ts string) (time.Time, error) {
	secs, _, _ := strings.Cut(ts, ".")
	n, err := strconv.ParseInt(secs, 10, 64)
	if err != nil || n <= 0 {
		return time.Time{}, fmt.Errorf("invalid epoch timestamp %q", ts)
	}
	return time.Unix(n, 0), nil
}

// DateRange returns every date from start to end inclusive.
func DateRange(start, end time.Time) []string {
	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(DateLayout))
	}
	return dates
}
