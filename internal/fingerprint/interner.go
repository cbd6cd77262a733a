// SPDX-License-Identifier: AGPL-3.0-or-later

package fingerprint

import (
	"sync"

	"github.com/keyfold-org/keyfold/internal/hashing"
	"github.com/keyfold-org/keyfold/internal/snapshot"
)

// Interner avoids re-reducing identical sub-trees under the same
// policy. Keys are derived from content hashes and the policy, never
// from node identity, so structurally distinct trees cannot collide.
// Safe for concurrent use from worker goroutines.
type Interner struct {
	mu      sync.RWMutex
	reduced map[hashing.HashCode]*Fingerprint
}

// NewInterner returns an empty interner.
func NewInterner() *Interner {
	return &Interner{reduced: make(map[hashing.HashCode]*Fingerprint)}
}

// Reduce behaves like the package-level Reduce but returns a shared
// fingerprint when the same roots were already reduced under the same
// policy.
func (in *Interner) Reduce(policy Policy, provider snapshot.ContentProvider, roots ...snapshot.Node) *Fingerprint {
	key := internKey(policy, roots)

	in.mu.RLock()
	fp, ok := in.reduced[key]
	in.mu.RUnlock()
	if ok {
		return fp
	}

	fp = Reduce(policy, provider, roots...)

	in.mu.Lock()
	if existing, ok := in.reduced[key]; ok {
		fp = existing
	} else {
		in.reduced[key] = fp
	}
	in.mu.Unlock()
	return fp
}

// internKey folds the policy and the full content structure of the
// roots into one lookup key.
func internKey(policy Policy, roots []snapshot.Node) hashing.HashCode {
	h := hashing.NewHasher()
	for _, attr := range policy.Attributes() {
		h.PutString(attr)
	}
	for _, root := range roots {
		putNode(h, root)
	}
	return h.Hash()
}

func putNode(h *hashing.Hasher, node snapshot.Node) {
	switch n := node.(type) {
	case *snapshot.File:
		h.PutString("F").PutString(n.AbsolutePath()).PutHash(n.ContentHash)
	case *snapshot.Missing:
		h.PutString("M").PutString(n.AbsolutePath())
	case *snapshot.Directory:
		h.PutString("D").PutString(n.AbsolutePath()).PutInt(int64(len(n.Children)))
		for _, child := range n.Children {
			putNode(h, child)
		}
	}
}
