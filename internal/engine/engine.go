// SPDX-License-Identifier: AGPL-3.0-or-later

// Package engine runs the full analysis pipeline for one unit of
// work: capture declared roots, fingerprint them under their policies,
// hash input values, aggregate, and compose the caching state.
package engine

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/keyfold-org/keyfold/internal/cachekey"
	"github.com/keyfold-org/keyfold/internal/execstate"
	"github.com/keyfold-org/keyfold/internal/fingerprint"
	"github.com/keyfold-org/keyfold/internal/hashing"
	"github.com/keyfold-org/keyfold/internal/report"
	"github.com/keyfold-org/keyfold/internal/snapshot"
	"github.com/keyfold-org/keyfold/internal/workspec"
)

// Result carries everything produced for one execution attempt.
type Result struct {
	Work  string
	State cachekey.CachingState
	Model *report.Model
}

// Options tunes an analysis run.
type Options struct {
	// BaseDir anchors relative root paths from the work spec. Empty
	// means the current working directory.
	BaseDir string
	// Interner, when set, shares fingerprint reductions across runs.
	Interner *fingerprint.Interner
	// Provider supplies file bytes for content-level normalization.
	// Nil means read from disk.
	Provider snapshot.ContentProvider
}

// Analyze fingerprints all declared inputs of spec and composes its
// caching state. Concurrent calls are independent; no state is shared
// beyond the optional interner.
func Analyze(spec *workspec.WorkSpec, opts Options) (*Result, error) {
	provider := opts.Provider
	if provider == nil {
		provider = snapshot.DiskContentProvider{}
	}

	files := make(map[string]*fingerprint.Fingerprint, len(spec.Inputs.Files))
	for _, name := range sortedFileProperties(spec) {
		prop := spec.Inputs.Files[name]
		policy, err := prop.Policy()
		if err != nil {
			return nil, fmt.Errorf("file property %q: %w", name, err)
		}
		roots := make([]snapshot.Node, 0, len(prop.Roots))
		for _, root := range prop.Roots {
			if !filepath.IsAbs(root) && opts.BaseDir != "" {
				root = filepath.Join(opts.BaseDir, root)
			}
			node, err := snapshot.Capture(root)
			if err != nil {
				return nil, fmt.Errorf("file property %q: %w", name, err)
			}
			roots = append(roots, node)
		}
		if opts.Interner != nil {
			files[name] = opts.Interner.Reduce(policy, provider, roots...)
		} else {
			files[name] = fingerprint.Reduce(policy, provider, roots...)
		}
	}

	values := make(map[string]hashing.HashCode, len(spec.Inputs.Values))
	for name, value := range spec.Inputs.Values {
		code, err := execstate.HashValue(name, value)
		if err != nil {
			return nil, err
		}
		values[name] = code
	}

	impl, err := spec.Implementation.Implementation()
	if err != nil {
		return nil, err
	}
	additional := make([]execstate.Implementation, 0, len(spec.Actions))
	for _, action := range spec.Actions {
		add, err := action.Implementation()
		if err != nil {
			return nil, err
		}
		additional = append(additional, add)
	}

	state, err := execstate.Aggregate(files, values, impl, additional, spec.Outputs)
	if err != nil {
		return nil, err
	}

	var external []cachekey.DisabledReason
	if spec.NonCacheable != "" {
		external = append(external, cachekey.DisabledReason{
			Category: cachekey.CategoryNonCacheable,
			Message:  spec.NonCacheable,
		})
	}
	caching := cachekey.Compose(state, external...)

	model, err := report.BuildModel(caching)
	if err != nil {
		return nil, err
	}

	return &Result{Work: spec.Work, State: caching, Model: model}, nil
}

func sortedFileProperties(spec *workspec.WorkSpec) []string {
	names := make([]string, 0, len(spec.Inputs.Files))
	for name := range spec.Inputs.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
