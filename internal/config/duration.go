package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var unitSuffixes = map[byte]time.Duration{
	's': time.Second,
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
}

// ParseDuration parses a duration with an optional unit suffix:
// s (seconds), m (minutes), h (hours) or d (days). A bare number means seconds.
// Compound Go durations such as "1m30s" are accepted as well.
func ParseDuration(s string) (time.Duration, error) {
	str := strings.ToLower(strings.TrimSpace(s))
	if str == "" {
		return 0, fmt.Errorf("empty duration")
	}

	unit := time.Second
	number := str
	if u, ok := unitSuffixes[str[len(str)-1]]; ok {
		unit = u
		number = str[:len(str)-1]
	}

	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		d, goErr := time.ParseDuration(str)
		if goErr != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return d, nil
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("invalid duration %q", s)
	}

	return time.Duration(value * float64(unit)), nil
}
