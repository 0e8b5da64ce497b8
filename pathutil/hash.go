// Package pathutil holds the pure helpers the engine relies on: the 64-bit
// name hash used as the cross-session join key, and entry path handling.
package pathutil

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Hash64 returns the xxhash64 of s. The value is stable across runs and
// platforms for the same input bytes.
func Hash64(s string) uint64 {
	return xxhash.Sum64String(s)
}

// Hash64Bytes returns the xxhash64 of b.
func Hash64Bytes(b []byte) uint64 {
	return xxhash.Sum64(b)
}

// FormatHash renders h as 16 lowercase hex digits.
func FormatHash(h uint64) string {
	return fmt.Sprintf("%016x", h)
}

// ParseHash parses a hash produced by FormatHash. A leading "0x" is accepted.
func ParseHash(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimSpace(strings.ToLower(s)), "0x")
	if s == "" {
		return 0, fmt.Errorf("empty hash")
	}
	h, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	return h, nil
}
