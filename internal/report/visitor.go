// SPDX-License-Identifier: AGPL-3.0-or-later

// Package report replays computed execution state through a pull-style
// visitor protocol and renders it into a canonical, serializable trace
// model.
package report

import "github.com/keyfold-org/keyfold/internal/hashing"

// VisitState exposes the current position of a replay to visitor
// callbacks. Property-level accessors are valid from PreProperty to
// PostProperty; Name/Path/Hash describe the node of the current
// PreDirectory or File callback.
type VisitState interface {
	PropertyName() string
	PropertyHash() hashing.HashCode
	// PropertyAttributes returns one attribute per normalization axis,
	// prefixed with the axis name.
	PropertyAttributes() []string

	Name() string
	Path() string
	Hash() hashing.HashCode
}

// InputFilePropertyVisitor receives the replay of all input file
// properties of a unit of work. The driver guarantees balanced
// PreDirectory/PostDirectory and PreRoot/PostRoot pairs, a
// PreProperty/PostProperty pair around every property, and properties
// in name-sorted order. Depth tracking is the visitor's concern.
type InputFilePropertyVisitor interface {
	PreProperty(VisitState)
	PreRoot(VisitState)
	PreDirectory(VisitState)
	File(VisitState)
	PostDirectory()
	PostRoot()
	PostProperty()
}
