package yahoo

import (
	"slices"

	"github.com/guttosm/nsepulse/internal/source"
)

// Periods accepted by History, in increasing span.
var Periods = []string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "5y", "10y", "ytd", "max"}

// Intervals accepted by History.
var Intervals = []string{"1m", "2m", "5m", "15m", "30m", "60m", "90m", "1h", "1d", "5d", "1wk", "1mo", "3mo"}

// intraday intervals only cover a limited look-back; anything not listed
// here accepts every period.
var allowedPeriods = map[string][]string{
	"1m":  {"1d", "5d"},
	"2m":  {"1d", "5d", "1mo"},
	"5m":  {"1d", "5d", "1mo"},
	"15m": {"1d", "5d", "1mo"},
	"30m": {"1d", "5d", "1mo"},
	"90m": {"1d", "5d", "1mo"},
	"60m": {"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "ytd"},
	"1h":  {"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "ytd"},
}

// ValidateRange rejects unknown periods and intervals and pairs Yahoo would
// silently truncate.
func ValidateRange(period, interval string) error {
	if !slices.Contains(Periods, period) {
		return source.Errorf(source.InvalidParameters, Name, "history", "unknown period %q", period)
	}
	if !slices.Contains(Intervals, interval) {
		return source.Errorf(source.InvalidParameters, Name, "history", "unknown interval %q", interval)
	}
	if allowed, ok := allowedPeriods[interval]; ok && !slices.Contains(allowed, period) {
		return source.Errorf(source.InvalidParameters, Name, "history",
			"interval %s only supports periods %v, got %s", interval, allowed, period)
	}
	return nil
}
