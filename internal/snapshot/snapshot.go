// SPDX-License-Identifier: AGPL-3.0-or-later

// Package snapshot holds the immutable file-tree representation the
// fingerprinting engine consumes. Trees arrive fully materialized with
// per-file content hashes already computed; nothing in this package
// touches the filesystem except the capture helpers.
package snapshot

import "github.com/keyfold-org/keyfold/internal/hashing"

// Node is one entry in a snapshot tree: a regular file, a directory, or
// a tombstone for a path that did not exist at capture time.
type Node interface {
	AbsolutePath() string
	Name() string
	// Accept drives the hierarchy visitor depth-first.
	Accept(v HierarchyVisitor)
}

// VisitResult steers traversal from a visitor callback.
type VisitResult int

const (
	Continue VisitResult = iota
	SkipSubtree
)

// HierarchyVisitor observes a depth-first walk of a snapshot tree.
// EnterDirectory/LeaveDirectory are balanced; returning SkipSubtree
// from VisitEntry for a directory suppresses both plus all children.
type HierarchyVisitor interface {
	VisitEntry(n Node) VisitResult
	EnterDirectory(d *Directory)
	LeaveDirectory(d *Directory)
}

// File is a regular file with its content hash.
type File struct {
	Path        string
	FileName    string
	ContentHash hashing.HashCode
}

func (f *File) AbsolutePath() string { return f.Path }
func (f *File) Name() string         { return f.FileName }

func (f *File) Accept(v HierarchyVisitor) {
	v.VisitEntry(f)
}

// Directory is a directory with name-sorted children. Child ordering is
// part of the contract: reproducible hashing depends on it.
type Directory struct {
	Path     string
	DirName  string
	Children []Node
}

func (d *Directory) AbsolutePath() string { return d.Path }
func (d *Directory) Name() string         { return d.DirName }

func (d *Directory) Accept(v HierarchyVisitor) {
	if v.VisitEntry(d) == SkipSubtree {
		return
	}
	v.EnterDirectory(d)
	for _, child := range d.Children {
		child.Accept(v)
	}
	v.LeaveDirectory(d)
}

// Missing marks a declared root that was absent at capture time.
type Missing struct {
	Path     string
	FileName string
}

func (m *Missing) AbsolutePath() string { return m.Path }
func (m *Missing) Name() string         { return m.FileName }

func (m *Missing) Accept(v HierarchyVisitor) {
	v.VisitEntry(m)
}
