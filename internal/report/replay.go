// SPDX-License-Identifier: AGPL-3.0-or-later

package report

import (
	"github.com/keyfold-org/keyfold/internal/execstate"
	"github.com/keyfold-org/keyfold/internal/fingerprint"
	"github.com/keyfold-org/keyfold/internal/hashing"
	"github.com/keyfold-org/keyfold/internal/snapshot"
)

// VisitInputFileProperties replays every input file property of state
// through visitor, reproducing the snapshot shape that was present at
// capture time. Directories elided by ignore-directories normalization
// (childless ones) produce no events; files the policy dropped from
// the fingerprint are skipped. The replay is a pure function of the
// stored state, never of the live filesystem.
func VisitInputFileProperties(state *execstate.BeforeExecutionState, visitor InputFilePropertyVisitor) {
	if state == nil {
		return
	}
	replay := &replayState{visitor: visitor}
	for _, name := range state.InputFilePropertyNames() {
		fp, _ := state.InputFileProperty(name)
		replay.property = name
		replay.propertyHash = fp.Hash()
		replay.attributes = fp.Policy().Attributes()
		replay.fingerprint = fp
		replay.ignoreDirectories = fp.Policy().DirectorySensitivity == fingerprint.IgnoreDirectories

		visitor.PreProperty(replay)
		for _, root := range fp.Roots() {
			root.Accept(replay)
		}
		visitor.PostProperty()
	}
}

// replayState walks one property's snapshot roots and doubles as the
// VisitState handed to callbacks.
type replayState struct {
	visitor InputFilePropertyVisitor

	property          string
	propertyHash      hashing.HashCode
	attributes        []string
	fingerprint       *fingerprint.Fingerprint
	ignoreDirectories bool

	name  string
	path  string
	hash  hashing.HashCode
	depth int
}

func (r *replayState) PropertyName() string           { return r.property }
func (r *replayState) PropertyHash() hashing.HashCode { return r.propertyHash }
func (r *replayState) PropertyAttributes() []string   { return r.attributes }
func (r *replayState) Name() string                   { return r.name }
func (r *replayState) Path() string                   { return r.path }
func (r *replayState) Hash() hashing.HashCode         { return r.hash }

func (r *replayState) VisitEntry(n snapshot.Node) snapshot.VisitResult {
	switch node := n.(type) {
	case *snapshot.Directory:
		if r.ignoreDirectories && len(node.Children) == 0 {
			return snapshot.SkipSubtree
		}
		return snapshot.Continue
	case *snapshot.File:
		entry, ok := r.fingerprint.Entry(node.AbsolutePath())
		if !ok {
			return snapshot.Continue
		}
		r.path = node.AbsolutePath()
		r.name = node.Name()
		r.hash = entry.NormalizedHash

		isRoot := r.depth == 0
		if isRoot {
			r.visitor.PreRoot(r)
		}
		r.visitor.File(r)
		if isRoot {
			r.visitor.PostRoot()
		}
	}
	return snapshot.Continue
}

func (r *replayState) EnterDirectory(d *snapshot.Directory) {
	r.path = d.AbsolutePath()
	r.name = d.Name()
	r.hash = hashing.HashCode{}

	if r.depth == 0 {
		r.visitor.PreRoot(r)
	}
	r.depth++
	r.visitor.PreDirectory(r)
}

func (r *replayState) LeaveDirectory(d *snapshot.Directory) {
	r.visitor.PostDirectory()
	r.depth--
	if r.depth == 0 {
		r.visitor.PostRoot()
	}
}
