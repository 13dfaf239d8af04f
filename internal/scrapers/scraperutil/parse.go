package scraperutil

import (
	"strconv"
	"strings"
	"time"

	"github.com/betsnipe/betsnipe/internal/matching"
)

// ParseTime adapts matching.ParseTimestamp for the adapters, which treat the
// zero time as "unparseable, skip this match" rather than branching on ok.
func ParseTime(v any) time.Time {
	t, ok := matching.ParseTimestamp(v)
	if !ok {
		return time.Time{}
	}
	return t
}

// Float coerces the mixed odd representations seen in the wild: numbers,
// numeric strings and placeholder strings like "N/A". ok is false for
// anything that is not a positive price.
func Float(v any) (float64, bool) {
	f, ok := Line(v)
	return f, ok && f > 0
}

// Line parses a market line (total or handicap). Unlike Float it preserves
// the sign, since handicap lines are legitimately negative.
func Line(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}
