package config

import (
	"testing"
	"time"
)

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"", 0},
		{"512", 512},
		{"64KB", 64000},
		{"64kb", 64000},
		{"64KiB", 64 << 10},
		{"10MB", 10000000},
		{"10MiB", 10 << 20},
		{"1.5MB", 1500000},
		{"1 GB", 1000000000},
		{"100B", 100},
		{"8589934592GB", 8589934592000000000},
	}
	for _, tt := range tests {
		got, err := ParseByteSize(tt.in)
		if err != nil {
			t.Errorf("ParseByteSize(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseByteSize(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"lots", "-1KB", "12XB", "10EB", "8589934592GiB", "9999999999999GB"} {
		if _, err := ParseByteSize(bad); err == nil {
			t.Errorf("ParseByteSize(%q) succeeded", bad)
		}
	}
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("", 5*time.Second)
	if err != nil || d != 5*time.Second {
		t.Errorf("empty = %v, %v", d, err)
	}
	d, err = ParseDuration("250ms", time.Second)
	if err != nil || d != 250*time.Millisecond {
		t.Errorf("250ms = %v, %v", d, err)
	}
	if _, err := ParseDuration("soon", time.Second); err == nil {
		t.Error("expected error")
	}
}
