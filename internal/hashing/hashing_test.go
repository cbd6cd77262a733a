// SPDX-License-Identifier: AGPL-3.0-or-later

package hashing

import "testing"

func TestHasherDeterministic(t *testing.T) {
	a := NewHasher().PutString("prop").PutInt(42).PutBool(true).Hash()
	b := NewHasher().PutString("prop").PutInt(42).PutBool(true).Hash()
	if a != b {
		t.Fatalf("expected identical hashes, got %s and %s", a, b)
	}
}

func TestHasherLengthPrefixing(t *testing.T) {
	a := NewHasher().PutString("ab").PutString("c").Hash()
	b := NewHasher().PutString("a").PutString("bc").Hash()
	if a == b {
		t.Fatalf("concatenation ambiguity: %s", a)
	}
}

func TestParseRoundTrip(t *testing.T) {
	code := HashBytes([]byte("content"))
	parsed, err := Parse(code.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != code {
		t.Fatalf("round trip mismatch: %s vs %s", parsed, code)
	}
}

func TestParseRejectsWrongWidth(t *testing.T) {
	if _, err := Parse("abcd"); err == nil {
		t.Fatal("expected error for short input")
	}
}

func TestSignatureStable(t *testing.T) {
	if Signature("DIRECTORY") != Signature("DIRECTORY") {
		t.Fatal("signature not stable")
	}
	if Signature("DIRECTORY") == Signature("EMPTY") {
		t.Fatal("distinct signatures collided")
	}
}
