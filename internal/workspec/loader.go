// SPDX-License-Identifier: AGPL-3.0-or-later

// Package workspec loads the YAML description of a unit of work: its
// declared input file properties with their normalization policies,
// input values, implementation identities and output property names.
package workspec

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/keyfold-org/keyfold/internal/execstate"
	"github.com/keyfold-org/keyfold/internal/fingerprint"
	"github.com/keyfold-org/keyfold/internal/hashing"
)

// WorkSpec describes one unit of work.
type WorkSpec struct {
	Work           string                  `yaml:"work"`
	Implementation ImplementationSpec      `yaml:"implementation"`
	Actions        []ImplementationSpec    `yaml:"actions"`
	Inputs         InputsSpec              `yaml:"inputs"`
	Outputs        []string                `yaml:"outputs"`
	NonCacheable   string                  `yaml:"non_cacheable"`
}

// ImplementationSpec identifies executable logic. Either hash or
// unknown_reason should be set; a missing hash marks the
// implementation unresolvable.
type ImplementationSpec struct {
	Type          string `yaml:"type"`
	Hash          string `yaml:"hash"`
	UnknownReason string `yaml:"unknown_reason"`
}

// InputsSpec groups the two input property mappings.
type InputsSpec struct {
	Files  map[string]FilePropertySpec `yaml:"files"`
	Values map[string]any              `yaml:"values"`
}

// FilePropertySpec declares one input file property.
type FilePropertySpec struct {
	Roots                []string `yaml:"roots"`
	Normalization        string   `yaml:"normalization"`
	DirectorySensitivity string   `yaml:"directory_sensitivity"`
	LineEndings          string   `yaml:"line_endings"`
}

// Load reads and validates a work spec file.
func Load(path string) (*WorkSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open work spec: %w", err)
	}
	defer f.Close()

	var spec WorkSpec
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode work spec: %w", err)
	}

	if spec.Work == "" {
		return nil, fmt.Errorf("work spec %s: missing work name", path)
	}
	if spec.Implementation.Type == "" {
		return nil, fmt.Errorf("work spec %s: missing implementation type", path)
	}
	for name, prop := range spec.Inputs.Files {
		if len(prop.Roots) == 0 {
			return nil, fmt.Errorf("file property %q: no roots declared", name)
		}
		if _, err := prop.Policy(); err != nil {
			return nil, fmt.Errorf("file property %q: %w", name, err)
		}
	}
	if _, err := spec.Implementation.Implementation(); err != nil {
		return nil, fmt.Errorf("work spec %s: %w", path, err)
	}
	for i, action := range spec.Actions {
		if _, err := action.Implementation(); err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
	}
	return &spec, nil
}

// Policy resolves the three normalization axes of a file property.
func (p FilePropertySpec) Policy() (fingerprint.Policy, error) {
	normalization := p.Normalization
	if normalization == "" {
		normalization = "ABSOLUTE_PATH"
	}
	identity, err := fingerprint.ParsePathIdentity(normalization)
	if err != nil {
		return fingerprint.Policy{}, err
	}
	dirSensitivity, err := fingerprint.ParseDirectorySensitivity(p.DirectorySensitivity)
	if err != nil {
		return fingerprint.Policy{}, err
	}
	lineEndings, err := fingerprint.ParseLineEndingSensitivity(p.LineEndings)
	if err != nil {
		return fingerprint.Policy{}, err
	}
	return fingerprint.Policy{
		PathIdentity:          identity,
		DirectorySensitivity:  dirSensitivity,
		LineEndingSensitivity: lineEndings,
	}, nil
}

// Implementation resolves the spec into an implementation snapshot.
func (s ImplementationSpec) Implementation() (execstate.Implementation, error) {
	if s.Hash == "" {
		reason := s.UnknownReason
		if reason == "" {
			reason = "no identity hash declared"
		}
		return execstate.UnknownImplementation(s.Type, reason), nil
	}
	code, err := hashing.Parse(s.Hash)
	if err != nil {
		return execstate.Implementation{}, fmt.Errorf("implementation %s: %w", s.Type, err)
	}
	return execstate.KnownImplementation(s.Type, code), nil
}
