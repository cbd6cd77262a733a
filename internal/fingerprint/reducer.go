// SPDX-License-Identifier: AGPL-3.0-or-later

package fingerprint

import (
	"path"
	"strings"

	"github.com/keyfold-org/keyfold/internal/hashing"
	"github.com/keyfold-org/keyfold/internal/snapshot"
)

// Reduce applies policy to the given snapshot roots and produces the
// property's fingerprint. Missing roots contribute nothing; an input
// with no surviving entries carries EmptyHash.
//
// provider supplies file bytes for normalizations that must look inside
// content (line endings, archive members). It may be nil; without it —
// or when content cannot be read back — the raw content hash from the
// snapshot is used unchanged, so normalization degrades to identity
// rather than failing. Policy application itself never fails.
func Reduce(policy Policy, provider snapshot.ContentProvider, roots ...snapshot.Node) *Fingerprint {
	r := &reducer{
		policy:   policy,
		provider: provider,
		entries:  make(map[string]Entry),
	}
	for _, root := range roots {
		r.reduceRoot(root)
	}
	return &Fingerprint{
		policy:  policy,
		entries: r.entries,
		roots:   roots,
		hash:    foldEntries(policy, r.entries),
	}
}

type reducer struct {
	policy   Policy
	provider snapshot.ContentProvider
	entries  map[string]Entry
}

func (r *reducer) reduceRoot(root snapshot.Node) {
	switch n := root.(type) {
	case *snapshot.Missing:
		// Tombstone: nothing to fingerprint.
	case *snapshot.File:
		r.addFile(n, n.Name())
	case *snapshot.Directory:
		if r.keepDirectories() {
			r.addDirectory(n, r.rootDirectoryIdentity(n))
		}
		for _, child := range n.Children {
			r.reduceChild(child, "")
		}
	}
}

// reduceChild walks a non-root node. parent is the normalized path of
// the enclosing directory relative to the root ("" directly below it).
func (r *reducer) reduceChild(node snapshot.Node, parent string) {
	relative := node.Name()
	if parent != "" {
		relative = parent + "/" + node.Name()
	}
	switch n := node.(type) {
	case *snapshot.Missing:
	case *snapshot.File:
		r.addFile(n, relative)
	case *snapshot.Directory:
		if r.keepDirectories() {
			r.addDirectory(n, relative)
		}
		for _, child := range n.Children {
			r.reduceChild(child, relative)
		}
	}
}

// keepDirectories reports whether directories produce entries at all:
// classpath strategies and the ignored-path strategy only ever record
// files, and IgnoreDirectories elides directories across the board.
func (r *reducer) keepDirectories() bool {
	if r.policy.DirectorySensitivity == IgnoreDirectories {
		return false
	}
	switch r.policy.PathIdentity {
	case IgnoredPath, Classpath, CompileClasspath:
		return false
	}
	return true
}

func (r *reducer) rootDirectoryIdentity(d *snapshot.Directory) string {
	switch r.policy.PathIdentity {
	case AbsolutePath:
		return d.AbsolutePath()
	default:
		return d.Name()
	}
}

func (r *reducer) addDirectory(d *snapshot.Directory, relative string) {
	identity := relative
	switch r.policy.PathIdentity {
	case AbsolutePath:
		identity = d.AbsolutePath()
	case NameOnly:
		identity = d.Name()
	}
	r.entries[d.AbsolutePath()] = Entry{
		NormalizedIdentity: identity,
		NormalizedHash:     DirectorySignature,
	}
}

func (r *reducer) addFile(f *snapshot.File, relative string) {
	identity := relative
	switch r.policy.PathIdentity {
	case AbsolutePath:
		identity = f.AbsolutePath()
	case NameOnly:
		identity = f.Name()
	case IgnoredPath:
		identity = ""
	}
	r.entries[f.AbsolutePath()] = Entry{
		NormalizedIdentity: identity,
		NormalizedHash:     r.normalizedContentHash(f),
	}
}

// normalizedContentHash applies content-level normalization. Archive
// entries on classpath properties are re-hashed from their member
// listing; text files are re-hashed with canonical line endings when
// the policy asks for it.
func (r *reducer) normalizedContentHash(f *snapshot.File) hashing.HashCode {
	if r.isClasspath() && isArchive(f.Name()) {
		if code, ok := r.archiveHash(f); ok {
			return code
		}
		return f.ContentHash
	}
	if r.policy.LineEndingSensitivity == NormalizeLineEndings {
		if code, ok := r.lineEndingNormalizedHash(f); ok {
			return code
		}
	}
	return f.ContentHash
}

func (r *reducer) isClasspath() bool {
	return r.policy.PathIdentity == Classpath || r.policy.PathIdentity == CompileClasspath
}

func isArchive(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".jar" || ext == ".zip"
}
