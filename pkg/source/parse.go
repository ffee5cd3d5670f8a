package source

import (
	"strconv"
	"strings"
	"time"

	"github.com/quantfold/harvest/pkg/errors"
)

// ParseFloat parses a numeric string, tolerating thousands separators
// and surrounding whitespace ("7,682.34" -> 7682.34).
func ParseFloat(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, errors.New(errors.ErrorTypeValidation, "empty numeric value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeValidation, "unparseable numeric value")
	}
	return v, nil
}

// ParseVolume parses a volume figure with an optional B/M/K magnitude
// suffix, as MarketWatch CSV downloads format them.
func ParseVolume(s string) (int64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, errors.New(errors.ErrorTypeValidation, "empty volume value")
	}

	multiplier := float64(1)
	switch {
	case strings.HasSuffix(s, "B"):
		multiplier = 1e9
		s = strings.TrimSuffix(s, "B")
	case strings.HasSuffix(s, "M"):
		multiplier = 1e6
		s = strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "K"):
		multiplier = 1e3
		s = strings.TrimSuffix(s, "K")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeValidation, "unparseable volume value")
	}
	return int64(v * multiplier), nil
}

// ParseDate tries the given layouts in order and returns the first
// match, truncated to midnight UTC.
func ParseDate(s string, layouts ...string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, errors.Newf(errors.ErrorTypeValidation, "unparseable date %q", s)
}
