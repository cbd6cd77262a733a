// SPDX-License-Identifier: AGPL-3.0-or-later

package execstate

import (
	"errors"
	"testing"

	"github.com/keyfold-org/keyfold/internal/fingerprint"
	"github.com/keyfold-org/keyfold/internal/hashing"
	"github.com/keyfold-org/keyfold/internal/snapshot"
)

func sampleFingerprint() *fingerprint.Fingerprint {
	return fingerprint.Reduce(fingerprint.Policy{PathIdentity: fingerprint.RelativePath}, nil,
		&snapshot.File{Path: "/src/a.txt", FileName: "a.txt", ContentHash: hashing.HashBytes([]byte("a"))})
}

func TestAggregateSortsNames(t *testing.T) {
	state, err := Aggregate(
		map[string]*fingerprint.Fingerprint{"zeta": sampleFingerprint(), "alpha": sampleFingerprint()},
		map[string]hashing.HashCode{"beta": hashing.HashBytes([]byte("v"))},
		KnownImplementation("example.Task", hashing.HashBytes([]byte("impl"))),
		nil,
		[]string{"out2", "out1"},
	)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	files := state.InputFilePropertyNames()
	if len(files) != 2 || files[0] != "alpha" || files[1] != "zeta" {
		t.Fatalf("file property names not sorted: %v", files)
	}
	outs := state.OutputPropertyNames()
	if len(outs) != 2 || outs[0] != "out1" || outs[1] != "out2" {
		t.Fatalf("output names not sorted: %v", outs)
	}
}

func TestAggregateRejectsDuplicateAcrossMappings(t *testing.T) {
	_, err := Aggregate(
		map[string]*fingerprint.Fingerprint{"shared": sampleFingerprint()},
		map[string]hashing.HashCode{"shared": hashing.HashBytes([]byte("v"))},
		KnownImplementation("example.Task", hashing.HashBytes([]byte("impl"))),
		nil, nil,
	)
	var decl *InvalidPropertyDeclarationError
	if !errors.As(err, &decl) {
		t.Fatalf("expected InvalidPropertyDeclarationError, got %v", err)
	}
	if decl.Property != "shared" {
		t.Fatalf("error should carry the property name, got %q", decl.Property)
	}
}

func TestAggregateRejectsDuplicateOutputs(t *testing.T) {
	_, err := Aggregate(nil, nil,
		KnownImplementation("example.Task", hashing.HashBytes([]byte("impl"))),
		nil,
		[]string{"out", "out"},
	)
	var decl *InvalidPropertyDeclarationError
	if !errors.As(err, &decl) {
		t.Fatalf("expected InvalidPropertyDeclarationError, got %v", err)
	}
}

func TestHashValueDeterministicAndTyped(t *testing.T) {
	a, err := HashValue("p", map[string]any{"x": int64(1), "y": []any{"a", "b"}})
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b, err := HashValue("p", map[string]any{"y": []any{"a", "b"}, "x": int64(1)})
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if a != b {
		t.Fatal("map key order affected the value hash")
	}

	asString, _ := HashValue("p", "1")
	asInt, _ := HashValue("p", int64(1))
	if asString == asInt {
		t.Fatal(`"1" and 1 must hash differently`)
	}
}

func TestHashValueRejectsUnsupportedTypes(t *testing.T) {
	_, err := HashValue("p", struct{ X int }{1})
	var unsupported *UnsupportedValueTypeError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedValueTypeError, got %v", err)
	}
	if unsupported.Property != "p" {
		t.Fatalf("error should carry property name, got %q", unsupported.Property)
	}
}
