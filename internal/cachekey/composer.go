// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cachekey folds a before-execution state into one build cache
// key, or the reasons no key could be produced.
package cachekey

import (
	"fmt"

	"github.com/keyfold-org/keyfold/internal/execstate"
	"github.com/keyfold-org/keyfold/internal/hashing"
)

// Key is the opaque cache key. Equality of two Keys is the contract
// other layers rely on to reuse outputs.
type Key = hashing.HashCode

// Reason categories produced by the composer itself. Callers may pass
// any category of their own; the set is open.
const (
	CategoryNonCacheable          = "NON_CACHEABLE"
	CategoryUnknownImplementation = "UNKNOWN_IMPLEMENTATION"
	CategoryNoOutputsDeclared     = "NO_OUTPUTS_DECLARED"
	CategoryValidationFailure     = "VALIDATION_FAILURE"
)

// DisabledReason explains one cause for caching being off.
type DisabledReason struct {
	Category string
	Message  string
}

func (r DisabledReason) String() string {
	return fmt.Sprintf("%s: %s", r.Category, r.Message)
}

// CachingState is the outcome of key composition: either a usable key
// or a disabled marker with reasons. Disabled is a valid terminal
// outcome, not an error. The state is computed once per execution
// attempt and immutable afterwards.
type CachingState struct {
	key     *Key
	reasons []DisabledReason
	state   *execstate.BeforeExecutionState
}

// Enabled reports whether a key was produced.
func (c CachingState) Enabled() bool { return c.key != nil }

// Key returns the composed key; ok is false when caching is disabled.
func (c CachingState) Key() (Key, bool) {
	if c.key == nil {
		return Key{}, false
	}
	return *c.key, true
}

// DisabledReasons returns the reasons caching is off, empty when
// enabled.
func (c CachingState) DisabledReasons() []DisabledReason {
	return append([]DisabledReason(nil), c.reasons...)
}

// BeforeExecutionState returns the captured state, which may be nil
// when caching was disabled before fingerprinting ran.
func (c CachingState) BeforeExecutionState() *execstate.BeforeExecutionState {
	return c.state
}

// DisabledWithoutState marks an attempt non-cacheable before any input
// analysis happened.
func DisabledWithoutState(reasons ...DisabledReason) CachingState {
	return CachingState{reasons: reasons}
}

// Compose deterministically combines state into a cache key. The fold
// order defines the key and is fixed:
//
//  1. the primary implementation identity hash,
//  2. each additional implementation hash, declaration order,
//  3. each input value property, name-sorted, name then hash,
//  4. each input file property, name-sorted, name then property hash,
//  5. declared output property names, name-sorted.
//
// externalReasons carry gate decisions made outside this engine (the
// scheduler's non-cacheable flags, validation failures). Any such
// reason short-circuits to Disabled before hashing. Unknown
// implementations and an empty output set also disable caching.
func Compose(state *execstate.BeforeExecutionState, externalReasons ...DisabledReason) CachingState {
	if len(externalReasons) > 0 {
		return CachingState{reasons: externalReasons, state: state}
	}

	var reasons []DisabledReason
	impl := state.Implementation()
	if !impl.Known() {
		reasons = append(reasons, unknownImplementationReason(impl))
	}
	for _, add := range state.AdditionalImplementations() {
		if !add.Known() {
			reasons = append(reasons, unknownImplementationReason(add))
		}
	}
	if len(state.OutputPropertyNames()) == 0 {
		reasons = append(reasons, DisabledReason{
			Category: CategoryNoOutputsDeclared,
			Message:  "no output properties are declared, so there is nothing to cache",
		})
	}
	if len(reasons) > 0 {
		return CachingState{reasons: reasons, state: state}
	}

	h := hashing.NewHasher()
	h.PutString(impl.TypeName)
	h.PutHash(*impl.Hash)
	for _, add := range state.AdditionalImplementations() {
		h.PutString(add.TypeName)
		h.PutHash(*add.Hash)
	}
	for _, name := range state.InputValuePropertyNames() {
		value, _ := state.InputValueProperty(name)
		h.PutString(name)
		h.PutHash(value)
	}
	for _, name := range state.InputFilePropertyNames() {
		fp, _ := state.InputFileProperty(name)
		h.PutString(name)
		h.PutHash(fp.Hash())
	}
	for _, name := range state.OutputPropertyNames() {
		h.PutString(name)
	}

	key := h.Hash()
	return CachingState{key: &key, state: state}
}

func unknownImplementationReason(impl execstate.Implementation) DisabledReason {
	msg := fmt.Sprintf("implementation %q has no resolvable identity", impl.TypeName)
	if impl.UnknownReason != "" {
		msg = fmt.Sprintf("%s (%s)", msg, impl.UnknownReason)
	}
	return DisabledReason{Category: CategoryUnknownImplementation, Message: msg}
}
