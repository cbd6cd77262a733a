// SPDX-License-Identifier: AGPL-3.0-or-later

package hashing

import (
	"crypto/sha256"
	"encoding/binary"
	"hash"
)

// Hasher folds a sequence of typed values into one HashCode. Every
// variable-length input is length-prefixed so that adjacent inputs can
// never be confused for each other ("ab"+"c" vs "a"+"bc").
type Hasher struct {
	h hash.Hash
}

// NewHasher returns an empty Hasher.
func NewHasher() *Hasher {
	return &Hasher{h: sha256.New()}
}

// putLen writes a big-endian length prefix for a variable-length input.
func (hr *Hasher) putLen(n int) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	hr.h.Write(buf[:])
}

// PutBytes folds a length-prefixed byte slice.
func (hr *Hasher) PutBytes(b []byte) *Hasher {
	hr.putLen(len(b))
	hr.h.Write(b)
	return hr
}

// PutString folds a length-prefixed UTF-8 string.
func (hr *Hasher) PutString(s string) *Hasher {
	hr.putLen(len(s))
	hr.h.Write([]byte(s))
	return hr
}

// PutHash folds another hash code.
func (hr *Hasher) PutHash(code HashCode) *Hasher {
	hr.h.Write(code[:])
	return hr
}

// PutBool folds a boolean.
func (hr *Hasher) PutBool(b bool) *Hasher {
	if b {
		hr.h.Write([]byte{1})
	} else {
		hr.h.Write([]byte{0})
	}
	return hr
}

// PutInt folds a 64-bit integer, big-endian.
func (hr *Hasher) PutInt(v int64) *Hasher {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	hr.h.Write(buf[:])
	return hr
}

// Hash finalizes the accumulated inputs. The Hasher must not be used
// again afterwards.
func (hr *Hasher) Hash() HashCode {
	var code HashCode
	copy(code[:], hr.h.Sum(nil))
	return code
}

// HashBytes is a convenience for hashing one byte slice.
func HashBytes(b []byte) HashCode {
	return sha256.Sum256(b)
}

// Signature returns the well-known hash for a named marker, e.g. the
// content signature recorded for directories or empty fingerprints.
// The same name always yields the same code on every machine.
func Signature(name string) HashCode {
	return NewHasher().PutString("SIGNATURE").PutString(name).Hash()
}
