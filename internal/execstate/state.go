// SPDX-License-Identifier: AGPL-3.0-or-later

// Package execstate assembles everything known about a unit of work
// before it executes: fingerprinted input files, hashed input values,
// implementation identities and declared output property names.
package execstate

import (
	"fmt"
	"sort"

	"github.com/keyfold-org/keyfold/internal/fingerprint"
	"github.com/keyfold-org/keyfold/internal/hashing"
)

// Implementation identifies one piece of executable logic contributing
// to a unit of work. Hash is nil when the identity could not be
// resolved (e.g. loaded by an unknown loader); UnknownReason then says
// why.
type Implementation struct {
	TypeName      string
	Hash          *hashing.HashCode
	UnknownReason string
}

// Known reports whether the implementation has a resolvable identity
// hash.
func (im Implementation) Known() bool { return im.Hash != nil }

// KnownImplementation builds an implementation with a resolved hash.
func KnownImplementation(typeName string, hash hashing.HashCode) Implementation {
	return Implementation{TypeName: typeName, Hash: &hash}
}

// UnknownImplementation builds a hash-less implementation.
func UnknownImplementation(typeName, reason string) Implementation {
	return Implementation{TypeName: typeName, UnknownReason: reason}
}

// InvalidPropertyDeclarationError signals a duplicate or malformed
// property name at aggregation time. It is fatal to the unit of work
// being aggregated and is never retried.
type InvalidPropertyDeclarationError struct {
	Property string
	Msg      string
}

func (e *InvalidPropertyDeclarationError) Error() string {
	return fmt.Sprintf("property %q: %s", e.Property, e.Msg)
}

// BeforeExecutionState is the immutable pre-execution view of a unit
// of work. All property mappings expose name-sorted iteration.
type BeforeExecutionState struct {
	inputFiles  map[string]*fingerprint.Fingerprint
	inputValues map[string]hashing.HashCode
	impl        Implementation
	additional  []Implementation
	outputNames []string
}

// Aggregate assembles a BeforeExecutionState. Property names must be
// unique within each mapping; output names are de-duplicated and
// sorted. No hashing happens here.
func Aggregate(
	inputFiles map[string]*fingerprint.Fingerprint,
	inputValues map[string]hashing.HashCode,
	impl Implementation,
	additional []Implementation,
	outputNames []string,
) (*BeforeExecutionState, error) {
	for name := range inputFiles {
		if name == "" {
			return nil, &InvalidPropertyDeclarationError{Property: name, Msg: "empty file property name"}
		}
		if _, clash := inputValues[name]; clash {
			return nil, &InvalidPropertyDeclarationError{Property: name, Msg: "declared as both file and value property"}
		}
	}
	for name := range inputValues {
		if name == "" {
			return nil, &InvalidPropertyDeclarationError{Property: name, Msg: "empty value property name"}
		}
	}

	files := make(map[string]*fingerprint.Fingerprint, len(inputFiles))
	for name, fp := range inputFiles {
		files[name] = fp
	}
	values := make(map[string]hashing.HashCode, len(inputValues))
	for name, h := range inputValues {
		values[name] = h
	}

	seen := make(map[string]struct{}, len(outputNames))
	outputs := make([]string, 0, len(outputNames))
	for _, name := range outputNames {
		if name == "" {
			return nil, &InvalidPropertyDeclarationError{Property: name, Msg: "empty output property name"}
		}
		if _, dup := seen[name]; dup {
			return nil, &InvalidPropertyDeclarationError{Property: name, Msg: "duplicate output property"}
		}
		seen[name] = struct{}{}
		outputs = append(outputs, name)
	}
	sort.Strings(outputs)

	return &BeforeExecutionState{
		inputFiles:  files,
		inputValues: values,
		impl:        impl,
		additional:  append([]Implementation(nil), additional...),
		outputNames: outputs,
	}, nil
}

// Implementation returns the primary implementation identity.
func (s *BeforeExecutionState) Implementation() Implementation { return s.impl }

// AdditionalImplementations returns contributing implementations in
// declaration order.
func (s *BeforeExecutionState) AdditionalImplementations() []Implementation {
	return append([]Implementation(nil), s.additional...)
}

// InputFilePropertyNames returns file property names in ascending
// order.
func (s *BeforeExecutionState) InputFilePropertyNames() []string {
	return sortedKeysFP(s.inputFiles)
}

// InputFileProperty returns the fingerprint for a named file property.
func (s *BeforeExecutionState) InputFileProperty(name string) (*fingerprint.Fingerprint, bool) {
	fp, ok := s.inputFiles[name]
	return fp, ok
}

// InputValuePropertyNames returns value property names in ascending
// order.
func (s *BeforeExecutionState) InputValuePropertyNames() []string {
	names := make([]string, 0, len(s.inputValues))
	for name := range s.inputValues {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InputValueProperty returns the hash for a named value property.
func (s *BeforeExecutionState) InputValueProperty(name string) (hashing.HashCode, bool) {
	h, ok := s.inputValues[name]
	return h, ok
}

// OutputPropertyNames returns declared output names in ascending
// order.
func (s *BeforeExecutionState) OutputPropertyNames() []string {
	return append([]string(nil), s.outputNames...)
}

func sortedKeysFP(m map[string]*fingerprint.Fingerprint) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
