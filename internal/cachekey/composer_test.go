// SPDX-License-Identifier: AGPL-3.0-or-later

package cachekey

import (
	"testing"

	"github.com/keyfold-org/keyfold/internal/execstate"
	"github.com/keyfold-org/keyfold/internal/fingerprint"
	"github.com/keyfold-org/keyfold/internal/hashing"
	"github.com/keyfold-org/keyfold/internal/snapshot"
)

func fp(content string) *fingerprint.Fingerprint {
	return fingerprint.Reduce(fingerprint.Policy{PathIdentity: fingerprint.RelativePath}, nil,
		&snapshot.File{Path: "/src/a.txt", FileName: "a.txt", ContentHash: hashing.HashBytes([]byte(content))})
}

func mustAggregate(t *testing.T, files map[string]*fingerprint.Fingerprint, values map[string]hashing.HashCode, impl execstate.Implementation, outputs []string) *execstate.BeforeExecutionState {
	t.Helper()
	state, err := execstate.Aggregate(files, values, impl, nil, outputs)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	return state
}

func TestComposeDeterministic(t *testing.T) {
	impl := execstate.KnownImplementation("example.Task", hashing.HashBytes([]byte("impl")))
	build := func() *execstate.BeforeExecutionState {
		return mustAggregate(t,
			map[string]*fingerprint.Fingerprint{"sources": fp("content")},
			map[string]hashing.HashCode{"target": hashing.HashBytes([]byte("17"))},
			impl,
			[]string{"classes"},
		)
	}

	a := Compose(build())
	b := Compose(build())
	ka, ok := a.Key()
	if !ok {
		t.Fatalf("expected enabled state, reasons: %v", a.DisabledReasons())
	}
	kb, _ := b.Key()
	if ka != kb {
		t.Fatalf("keys differ for structurally equal states: %s vs %s", ka, kb)
	}
}

func TestComposeOrderIndependentOfDeclaration(t *testing.T) {
	// Maps carry no order; feeding the same pairs built in different
	// textual order must not matter because composition sorts by name.
	impl := execstate.KnownImplementation("example.Task", hashing.HashBytes([]byte("impl")))

	one := mustAggregate(t,
		map[string]*fingerprint.Fingerprint{"a": fp("1"), "b": fp("2")},
		map[string]hashing.HashCode{"x": hashing.HashBytes([]byte("x")), "y": hashing.HashBytes([]byte("y"))},
		impl, []string{"out"})
	two := mustAggregate(t,
		map[string]*fingerprint.Fingerprint{"b": fp("2"), "a": fp("1")},
		map[string]hashing.HashCode{"y": hashing.HashBytes([]byte("y")), "x": hashing.HashBytes([]byte("x"))},
		impl, []string{"out"})

	k1, _ := Compose(one).Key()
	k2, _ := Compose(two).Key()
	if k1 != k2 {
		t.Fatal("declaration order changed the cache key")
	}
}

func TestComposeSensitiveToEachGroup(t *testing.T) {
	base := func(implContent, fileContent, valueContent, output string) Key {
		state := mustAggregate(t,
			map[string]*fingerprint.Fingerprint{"sources": fp(fileContent)},
			map[string]hashing.HashCode{"target": hashing.HashBytes([]byte(valueContent))},
			execstate.KnownImplementation("example.Task", hashing.HashBytes([]byte(implContent))),
			[]string{output},
		)
		key, ok := Compose(state).Key()
		if !ok {
			t.Fatal("expected enabled state")
		}
		return key
	}

	ref := base("impl", "file", "value", "out")
	if base("impl2", "file", "value", "out") == ref {
		t.Fatal("implementation change did not change the key")
	}
	if base("impl", "file2", "value", "out") == ref {
		t.Fatal("file content change did not change the key")
	}
	if base("impl", "file", "value2", "out") == ref {
		t.Fatal("value change did not change the key")
	}
	if base("impl", "file", "value", "out2") == ref {
		t.Fatal("output name change did not change the key")
	}
}

func TestComposeDisabledOnExternalGate(t *testing.T) {
	// The gate must short-circuit even when the implementation is
	// unknown, and never produce a key.
	state := mustAggregate(t, nil, nil,
		execstate.UnknownImplementation("example.Task", "loaded by unknown loader"),
		nil)

	result := Compose(state, DisabledReason{Category: CategoryNonCacheable, Message: "caching disabled for task"})
	if result.Enabled() {
		t.Fatal("gated compose must not produce a key")
	}
	reasons := result.DisabledReasons()
	if len(reasons) != 1 || reasons[0].Category != CategoryNonCacheable {
		t.Fatalf("unexpected reasons: %v", reasons)
	}
	if result.BeforeExecutionState() == nil {
		t.Fatal("partial state should be retained")
	}
}

func TestComposeDisabledOnUnknownImplementation(t *testing.T) {
	state := mustAggregate(t, nil, nil,
		execstate.UnknownImplementation("example.Task", "lambda action"),
		[]string{"out"})

	result := Compose(state)
	if result.Enabled() {
		t.Fatal("unknown implementation must disable caching")
	}
	if result.DisabledReasons()[0].Category != CategoryUnknownImplementation {
		t.Fatalf("unexpected category: %v", result.DisabledReasons())
	}
}

func TestComposeDisabledWithoutOutputs(t *testing.T) {
	state := mustAggregate(t, nil, nil,
		execstate.KnownImplementation("example.Task", hashing.HashBytes([]byte("impl"))),
		nil)

	result := Compose(state)
	if result.Enabled() {
		t.Fatal("no declared outputs must disable caching")
	}
	if result.DisabledReasons()[0].Category != CategoryNoOutputsDeclared {
		t.Fatalf("unexpected category: %v", result.DisabledReasons())
	}
}

func TestDifferentImplementationsDifferentKeys(t *testing.T) {
	files := map[string]*fingerprint.Fingerprint{"sources": fp("same")}
	values := map[string]hashing.HashCode{"target": hashing.HashBytes([]byte("17"))}

	one := mustAggregate(t, files, values,
		execstate.KnownImplementation("example.TaskA", hashing.HashBytes([]byte("a"))), []string{"out"})
	two := mustAggregate(t, files, values,
		execstate.KnownImplementation("example.TaskB", hashing.HashBytes([]byte("b"))), []string{"out"})

	k1, _ := Compose(one).Key()
	k2, _ := Compose(two).Key()
	if k1 == k2 {
		t.Fatal("identical inputs with different implementations must key differently")
	}
}
