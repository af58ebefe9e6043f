package services

import (
	"math"
	"strconv"
	"strings"
)

// ParseNumericOr parses value as a float and returns def when it is blank or not a finite number.
// Grouping or decimal commas are not interpreted: "1,000" and "0,5" both yield def.
func ParseNumericOr(value string, def float64) float64 {
	s := strings.TrimSpace(value)
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}

// parseNumeric is ParseNumericOr without a fallback; ok reports whether value was a finite number.
func parseNumeric(value string) (float64, bool) {
	f := ParseNumericOr(value, math.NaN())
	return f, !math.IsNaN(f)
}
