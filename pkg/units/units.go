// Package units provides binary size unit multipliers (1024-based) and
// parsing for analyzer size descriptors.
package units

import (
	"strconv"
	"strings"
)

// Binary size multipliers.
const (
	KiB = 1024
	MiB = 1024 * KiB
	GiB = 1024 * MiB
)

// ParseDescriptor converts an analyzer size descriptor into a byte count.
// Supported forms: "512KB", "1.5 MB", "2GB", and bare byte counts like
// "100". The multiplier is 1024-based per the analyzer contract.
// Unrecognized descriptors yield 0; a size string never fails a row.
func ParseDescriptor(descriptor string) int64 {
	s := strings.TrimSpace(descriptor)
	if s == "" {
		return 0
	}

	multiplier := int64(1)

	upper := strings.ToUpper(s)

	switch {
	case strings.HasSuffix(upper, "GB"):
		multiplier = GiB
		s = s[:len(s)-2]
	case strings.HasSuffix(upper, "MB"):
		multiplier = MiB
		s = s[:len(s)-2]
	case strings.HasSuffix(upper, "KB"):
		multiplier = KiB
		s = s[:len(s)-2]
	case strings.HasSuffix(upper, "B"):
		s = s[:len(s)-1]
	}

	s = strings.TrimSpace(s)

	value, err := strconv.ParseFloat(s, 64)
	if err != nil || value < 0 {
		return 0
	}

	return int64(value * float64(multiplier))
}
