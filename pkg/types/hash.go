// Package types defines core primitive types for the ledger.
package types

import (
	"encoding/hex"
	"fmt"
)

// HashSize is the length of a hash in bytes.
const HashSize = 32

// Hash represents a 256-bit hash value.
type Hash [HashSize]byte

// String returns the hex-encoded hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// HasZeroPrefix reports whether the hex form of the hash starts with
// nibbles '0' characters. Values outside [0, 2*HashSize] never match.
func (h Hash) HasZeroPrefix(nibbles int) bool {
	if nibbles < 0 || nibbles > 2*HashSize {
		return false
	}
	full := nibbles / 2
	for i := 0; i < full; i++ {
		if h[i] != 0 {
			return false
		}
	}
	if nibbles%2 == 1 {
		return h[full]>>4 == 0
	}
	return true
}

// Bytes returns a copy of the hash as a byte slice.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// HexToHash converts a hex string to a Hash.
// Returns an error if the string is not exactly 64 hex characters.
func HexToHash(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != HashSize {
		return Hash{}, fmt.Errorf("hash must be %d bytes, got %d", HashSize, len(b))
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}
