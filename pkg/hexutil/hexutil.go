// Package hexutil provides helpers for the hex-string representation used
// throughout plugin definitions (APDU templates, field values, AID segments)
// and for the bit-range arithmetic of ISO 7816 header bytes.
package hexutil

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Bytes decodes a hex string into bytes. Spaces are tolerated to allow the
// "00 A4 04 00" notation common in plugin definitions and card logs.
func Bytes(s string) ([]byte, error) {
	clean := strings.ReplaceAll(s, " ", "")
	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex string %q: %w", s, err)
	}
	return data, nil
}

// MustBytes is Bytes for compile-time constants and test fixtures.
// It panics on malformed input.
func MustBytes(parts ...string) []byte {
	data, err := Bytes(strings.Join(parts, ""))
	if err != nil {
		panic(err.Error())
	}
	return data
}

// String encodes bytes as an upper-case hex string, the canonical form used
// when values round-trip through the field map.
func String(data []byte) string {
	return strings.ToUpper(hex.EncodeToString(data))
}

// IsHex reports whether s decodes as hex (ignoring spaces). An empty string
// is valid hex of length zero.
func IsHex(s string) bool {
	_, err := Bytes(s)
	return err == nil
}

// Bit returns a byte with only the n-th bit set (1 to 8, ISO numbering).
func Bit(n uint) byte {
	if n < 1 || n > 8 {
		return 0
	}
	return 1 << (n - 1)
}

// IsSet checks if the n-th bit is set (1 to 8).
func IsSet(b byte, n uint) bool {
	return b&Bit(n) != 0
}

// GetRange extracts the value of a bit range, high and low inclusive.
// Example: GetRange(0b00001100, 4, 3) returns 3.
func GetRange(b byte, high, low uint) byte {
	if high < low || high > 8 || low < 1 {
		return 0
	}
	width := high - low + 1
	mask := byte((1 << width) - 1)
	return (b >> (low - 1)) & mask
}
