package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	mrand "math/rand/v2"
	"time"
)

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

const (
	DefaultTokenLength = 32
	RequestIDLength    = 16
	DefaultExpiryHours = 24
)

// ExpiryOptions is the menu of token lifetimes, in hours.
var ExpiryOptions = []int{1, 4, 24, 72, 168}

var ErrInvalidExpiry = errors.New("invalid expiry")

// randReader is the source of token entropy. Tests replace it.
var randReader io.Reader = rand.Reader

// largest multiple of len(tokenAlphabet) that fits in a byte; bytes at or
// above it are rejected so every symbol is equally likely.
const acceptBelow = 256 - 256%len(tokenAlphabet)

// GenerateToken returns n symbols drawn uniformly from A-Z, a-z and 0-9
// using a cryptographically secure source. If that source fails, it falls
// back to math/rand/v2, which is not suitable for secrets against a
// determined attacker; the fallback is logged.
func GenerateToken(n int) string {
	if n <= 0 {
		return ""
	}
	out := make([]byte, 0, n)
	buf := make([]byte, n+n/4+1)
	for len(out) < n {
		if _, err := io.ReadFull(randReader, buf); err != nil {
			slog.Warn("secure random source unavailable, using math/rand for token", "error", err)
			return fallbackToken(out, n)
		}
		for _, b := range buf {
			if int(b) >= acceptBelow {
				continue
			}
			out = append(out, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out)
}

func fallbackToken(out []byte, n int) string {
	for len(out) < n {
		out = append(out, tokenAlphabet[mrand.IntN(len(tokenAlphabet))])
	}
	return string(out)
}

// ValidateExpiryHours returns an error unless hours is one of ExpiryOptions.
func ValidateExpiryHours(hours int) error {
	for _, h := range ExpiryOptions {
		if h == hours {
			return nil
		}
	}
	return fmt.Errorf("%w: %d hours (allowed %v)", ErrInvalidExpiry, hours, ExpiryOptions)
}

// ExpiryFrom returns the expiry instant hours after now, in epoch milliseconds.
func ExpiryFrom(now time.Time, hours int) int64 {
	return now.UnixMilli() + int64(hours)*3600*1000
}
