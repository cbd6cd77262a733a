// SPDX-License-Identifier: AGPL-3.0-or-later

package fingerprint

import (
	"sort"

	"github.com/keyfold-org/keyfold/internal/hashing"
	"github.com/keyfold-org/keyfold/internal/snapshot"
)

// EmptyHash is the well-known property hash of a fingerprint with no
// entries (missing roots, or everything normalized away).
var EmptyHash = hashing.Signature("EMPTY_FINGERPRINT")

// DirectorySignature is the content hash recorded for directory
// entries; directories have no content of their own.
var DirectorySignature = hashing.Signature("DIRECTORY")

// Entry is the normalized view of one snapshot location.
type Entry struct {
	NormalizedIdentity string
	NormalizedHash     hashing.HashCode
}

// Fingerprint is the immutable result of normalizing one property's
// snapshot roots: an absolute-path-keyed entry map, the folded
// property hash, the policy that produced it, and the original roots
// retained for hierarchical replay.
type Fingerprint struct {
	policy  Policy
	entries map[string]Entry
	roots   []snapshot.Node
	hash    hashing.HashCode
}

// Policy returns the normalization policy the fingerprint was built
// under.
func (f *Fingerprint) Policy() Policy { return f.policy }

// Hash returns the combined property hash.
func (f *Fingerprint) Hash() hashing.HashCode { return f.hash }

// Roots returns the snapshot roots the fingerprint was reduced from,
// in declaration order.
func (f *Fingerprint) Roots() []snapshot.Node { return f.roots }

// Entry looks up the normalized entry for an absolute path.
func (f *Fingerprint) Entry(absolutePath string) (Entry, bool) {
	e, ok := f.entries[absolutePath]
	return e, ok
}

// Len returns the number of entries.
func (f *Fingerprint) Len() int { return len(f.entries) }

// Paths returns all entry keys in ascending order.
func (f *Fingerprint) Paths() []string {
	paths := make([]string, 0, len(f.entries))
	for p := range f.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// foldEntries computes the property hash: each entry's identity and
// normalized content hash folded in ascending path order, after the
// policy's attributes. The result depends only on the entry contents
// and the policy, never on traversal order.
func foldEntries(policy Policy, entries map[string]Entry) hashing.HashCode {
	if len(entries) == 0 {
		return EmptyHash
	}
	paths := make([]string, 0, len(entries))
	for p := range entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	h := hashing.NewHasher()
	for _, attr := range policy.Attributes() {
		h.PutString(attr)
	}
	for _, p := range paths {
		e := entries[p]
		h.PutString(e.NormalizedIdentity)
		h.PutHash(e.NormalizedHash)
	}
	return h.Hash()
}
