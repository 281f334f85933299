package extractor

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var subscriberNoise = regexp.MustCompile(`[^\d.,KMkm]`)

// ErrUnparseableCount is returned when count text survives cleanup but is not a number
var ErrUnparseableCount = errors.New("unparseable subscriber count")

// ParseSubscribers converts freeform count text such as "12.3K" or "1 234 312" into an integer.
// Empty input, or input with no count characters at all, is 0 without error.
// A count too large for an int is an error.
//
// Without a K/M suffix a dot followed by exactly three digits is read as a thousands
// separator, so "1.234" is 1234 and never 1.
func ParseSubscribers(text string) (int, error) {
	cleaned := subscriberNoise.ReplaceAllString(strings.TrimSpace(text), "")
	if cleaned == "" {
		return 0, nil
	}
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	multiplier := 1.0
	switch strings.ToLower(cleaned[len(cleaned)-1:]) {
	case "k":
		multiplier = 1_000
		cleaned = cleaned[:len(cleaned)-1]
	case "m":
		multiplier = 1_000_000
		cleaned = cleaned[:len(cleaned)-1]
	default:
		if parts := strings.Split(cleaned, "."); len(parts) > 1 && len(parts[len(parts)-1]) == 3 {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
		}
	}

	number, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnparseableCount, text)
	}
	count := number * multiplier
	if math.IsNaN(count) || count < 0 || count >= math.MaxInt {
		return 0, fmt.Errorf("%w: %q out of range", ErrUnparseableCount, text)
	}
	return int(count), nil
}

// NormalizeSubscribers is ParseSubscribers that never fails: unparseable text is logged and counts as 0
func (e *Extractor) NormalizeSubscribers(text string) int {
	n, err := ParseSubscribers(text)
	if err != nil {
		e.log.Warn().Err(err).Msg("failed to convert subscriber count")
		return 0
	}
	return n
}
