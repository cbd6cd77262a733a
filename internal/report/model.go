// SPDX-License-Identifier: AGPL-3.0-or-later

package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gowebpki/jcs"

	"github.com/keyfold-org/keyfold/internal/cachekey"
	"github.com/keyfold-org/keyfold/internal/execstate"
	"github.com/keyfold-org/keyfold/internal/fingerprint"
	"github.com/keyfold-org/keyfold/internal/hashing"
)

// ErrMissingAttribute flags a replayed property without one attribute
// per normalization axis. This is an internal consistency failure, not
// a recoverable condition.
var ErrMissingAttribute = errors.New("report: missing normalization attribute")

// Model is the serializable snapshot of a caching state, suitable for
// embedding in a build trace. Any group that was never computed is
// absent from the JSON, never an empty placeholder.
type Model struct {
	CacheKey            *string                  `json:"cacheKey,omitempty"`
	DisabledReasons     []string                 `json:"disabledReasons,omitempty"`
	ImplementationHash  *string                  `json:"implementationHash,omitempty"`
	ActionHashes        []*string                `json:"actionHashes,omitempty"`
	ActionTypeNames     []string                 `json:"actionTypeNames,omitempty"`
	InputFileProperties map[string]*FileProperty `json:"inputFileProperties,omitempty"`
	InputValueHashes    map[string]string        `json:"inputValueHashes,omitempty"`
	OutputPropertyNames []string                 `json:"outputPropertyNames,omitempty"`
}

// FileProperty is one input file property: its combined hash, the
// three normalization axes, and the replayed root trees.
type FileProperty struct {
	Hash                  string       `json:"hash"`
	Normalization         string       `json:"normalization"`
	DirectorySensitivity  string       `json:"directorySensitivity"`
	LineEndingSensitivity string       `json:"lineEndingSensitivity"`
	Roots                 []*TreeEntry `json:"roots"`
}

// TreeEntry is a node of a replayed property tree. Roots carry their
// full path, nested entries just their name; files carry a hash,
// directories children.
type TreeEntry struct {
	Path     string       `json:"path"`
	Hash     string       `json:"hash,omitempty"`
	Children []*TreeEntry `json:"children,omitempty"`
}

// BuildModel renders a caching state into its trace model.
func BuildModel(c cachekey.CachingState) (*Model, error) {
	model := &Model{}

	if key, ok := c.Key(); ok {
		s := key.String()
		model.CacheKey = &s
	}
	for _, reason := range c.DisabledReasons() {
		model.DisabledReasons = append(model.DisabledReasons, reason.String())
	}

	state := c.BeforeExecutionState()
	if state == nil {
		return model, nil
	}

	impl := state.Implementation()
	if impl.Known() {
		s := impl.Hash.String()
		model.ImplementationHash = &s
	}
	if additional := state.AdditionalImplementations(); len(additional) > 0 {
		for _, add := range additional {
			model.ActionTypeNames = append(model.ActionTypeNames, add.TypeName)
			if add.Known() {
				s := add.Hash.String()
				model.ActionHashes = append(model.ActionHashes, &s)
			} else {
				model.ActionHashes = append(model.ActionHashes, nil)
			}
		}
	}

	if names := state.InputValuePropertyNames(); len(names) > 0 {
		model.InputValueHashes = make(map[string]string, len(names))
		for _, name := range names {
			value, _ := state.InputValueProperty(name)
			model.InputValueHashes[name] = value.String()
		}
	}

	if names := state.OutputPropertyNames(); len(names) > 0 {
		model.OutputPropertyNames = names
	}

	fileProperties, err := buildFileProperties(state)
	if err != nil {
		return nil, err
	}
	if len(fileProperties) > 0 {
		model.InputFileProperties = fileProperties
	}

	return model, nil
}

// CanonicalJSON returns the RFC 8785 canonical encoding of a model.
func (m *Model) CanonicalJSON() ([]byte, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal trace model: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize trace model: %w", err)
	}
	return canonical, nil
}

// Digest returns the sha256 hex digest of the canonical encoding, the
// stable identity of a trace for cross-run comparison.
func (m *Model) Digest() (string, error) {
	canonical, err := m.CanonicalJSON()
	if err != nil {
		return "", err
	}
	return hashing.HashBytes(canonical).String(), nil
}

func buildFileProperties(state *execstate.BeforeExecutionState) (map[string]*FileProperty, error) {
	builder := &filePropertyBuilder{props: make(map[string]*FileProperty)}
	VisitInputFileProperties(state, builder)
	if builder.err != nil {
		return nil, builder.err
	}
	return builder.props, nil
}

// filePropertyBuilder reconstructs nested trees from the replay, the
// visitor counterpart of the driver in replay.go.
type filePropertyBuilder struct {
	props    map[string]*FileProperty
	current  *FileProperty
	dirStack []*TreeEntry
	err      error
}

func (b *filePropertyBuilder) PreProperty(s VisitState) {
	normalization := b.attribute(s, fingerprint.StrategyAttributePrefix)
	dirSensitivity := b.attribute(s, fingerprint.DirectorySensitivityAttributePrefix)
	lineEndings := b.attribute(s, fingerprint.LineEndingSensitivityAttributePrefix)

	b.current = &FileProperty{
		Hash:                  s.PropertyHash().String(),
		Normalization:         normalization,
		DirectorySensitivity:  dirSensitivity,
		LineEndingSensitivity: lineEndings,
	}
	b.props[s.PropertyName()] = b.current
}

func (b *filePropertyBuilder) attribute(s VisitState, prefix string) string {
	for _, attr := range s.PropertyAttributes() {
		if strings.HasPrefix(attr, prefix) {
			return strings.TrimPrefix(attr, prefix)
		}
	}
	if b.err == nil {
		b.err = fmt.Errorf("%w: property %q has no attribute with prefix %s", ErrMissingAttribute, s.PropertyName(), prefix)
	}
	return ""
}

func (b *filePropertyBuilder) PreRoot(VisitState) {}

func (b *filePropertyBuilder) PreDirectory(s VisitState) {
	isRoot := len(b.dirStack) == 0
	dir := &TreeEntry{Path: s.Name()}
	if isRoot {
		dir.Path = s.Path()
		b.current.Roots = append(b.current.Roots, dir)
	} else {
		top := b.dirStack[len(b.dirStack)-1]
		top.Children = append(top.Children, dir)
	}
	b.dirStack = append(b.dirStack, dir)
}

func (b *filePropertyBuilder) File(s VisitState) {
	isRoot := len(b.dirStack) == 0
	file := &TreeEntry{Path: s.Name(), Hash: s.Hash().String()}
	if isRoot {
		file.Path = s.Path()
		b.current.Roots = append(b.current.Roots, file)
	} else {
		top := b.dirStack[len(b.dirStack)-1]
		top.Children = append(top.Children, file)
	}
}

func (b *filePropertyBuilder) PostDirectory() {
	b.dirStack = b.dirStack[:len(b.dirStack)-1]
}

func (b *filePropertyBuilder) PostRoot() {}

func (b *filePropertyBuilder) PostProperty() {}
