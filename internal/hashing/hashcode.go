// SPDX-License-Identifier: AGPL-3.0-or-later

// Package hashing provides the fixed-width hash value type and the
// incremental hasher used for fingerprints and cache keys.
package hashing

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// Size is the width of a HashCode in bytes (sha256).
const Size = 32

// HashCode is an opaque 256-bit hash value. Two equal HashCodes stand
// for "same logical content"; everything above this package relies on
// that contract only.
type HashCode [Size]byte

// FromBytes builds a HashCode from a raw 32-byte slice.
func FromBytes(b []byte) (HashCode, error) {
	var h HashCode
	if len(b) != Size {
		return h, fmt.Errorf("hashing: expected %d bytes, got %d", Size, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// Parse decodes a lowercase hex representation produced by String.
func Parse(s string) (HashCode, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return HashCode{}, fmt.Errorf("hashing: parse %q: %w", s, err)
	}
	return FromBytes(raw)
}

// Bytes returns a copy of the raw hash bytes.
func (h HashCode) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, h[:])
	return out
}

// String returns the lowercase hex form.
func (h HashCode) String() string {
	return hex.EncodeToString(h[:])
}

// Compare orders hash codes bytewise, for stable output listings.
func (h HashCode) Compare(other HashCode) int {
	return bytes.Compare(h[:], other[:])
}
