package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// ParseByteSize parses sizes such as "64KB", "10MiB" or "512" with
// go-humanize: KB, MB and GB are decimal, KiB, MiB and GiB are binary, and
// units are case-insensitive. An empty string is zero. Sizes beyond
// math.MaxInt64 bytes are rejected.
func ParseByteSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("invalid size %q: larger than %d bytes", s, int64(math.MaxInt64))
	}
	return int64(n), nil
}

// ParseDuration parses d, returning def when d is empty.
func ParseDuration(d string, def time.Duration) (time.Duration, error) {
	if strings.TrimSpace(d) == "" {
		return def, nil
	}
	v, err := time.ParseDuration(d)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", d, err)
	}
	return v, nil
}
