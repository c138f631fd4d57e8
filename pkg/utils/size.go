package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Common size constants.
const (
	KiloByte int64 = 1024
	MegaByte int64 = 1024 * 1024
	GigaByte int64 = 1024 * 1024 * 1024
	TeraByte int64 = 1024 * 1024 * 1024 * 1024
)

var sizeRe = regexp.MustCompile(`^([\d.]+)\s*([A-Za-z]*)$`)

// ParseDataSize parses human-friendly sizes like "116MiB", "1.5TB" or "512"
// into bytes. Decimal units (KB, MB, ...) are 1000-based; binary units
// (KiB, MiB, ... and the short forms K, M, G, T) are 1024-based.
func ParseDataSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	matches := sizeRe.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("invalid size format: %q (expected something like '116MiB' or '1.5TB')", s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric value: %q", matches[1])
	}

	mult, ok := multiplier(strings.ToUpper(matches[2]))
	if !ok {
		return 0, fmt.Errorf("unknown unit: %q (supported: B, KB, MB, GB, TB, KiB, MiB, GiB, TiB)", matches[2])
	}

	bytes := int64(value * float64(mult))
	if bytes < 0 {
		return 0, fmt.Errorf("size overflow: %q", s)
	}
	return bytes, nil
}

// FormatDataSize renders bytes with binary units, trimming needless decimals.
func FormatDataSize(bytes int64) string {
	if bytes < 0 {
		return "invalid"
	}
	if bytes < KiloByte {
		return fmt.Sprintf("%d B", bytes)
	}

	units := []string{"KiB", "MiB", "GiB", "TiB", "PiB"}
	div := KiloByte
	exp := 0
	for n := bytes / KiloByte; n >= 1024 && exp < len(units)-1; n /= 1024 {
		div *= 1024
		exp++
	}

	value := float64(bytes) / float64(div)
	if value == float64(int64(value)) {
		return fmt.Sprintf("%.0f %s", value, units[exp])
	}
	return fmt.Sprintf("%.1f %s", value, units[exp])
}

func multiplier(unit string) (int64, bool) {
	switch unit {
	case "", "B", "BYTE", "BYTES":
		return 1, true
	case "KB":
		return 1000, true
	case "MB":
		return 1000 * 1000, true
	case "GB":
		return 1000 * 1000 * 1000, true
	case "TB":
		return 1000 * 1000 * 1000 * 1000, true
	case "K", "KIB":
		return KiloByte, true
	case "M", "MIB":
		return MegaByte, true
	case "G", "GIB":
		return GigaByte, true
	case "T", "TIB":
		return TeraByte, true
	default:
		return 0, false
	}
}
