// SPDX-License-Identifier: AGPL-3.0-or-later

package fingerprint

import (
	"archive/zip"
	"bytes"
	"io"
	"sort"
	"strings"

	"github.com/keyfold-org/keyfold/internal/hashing"
	"github.com/keyfold-org/keyfold/internal/snapshot"
)

// archiveHash re-hashes an archive from its normalized member listing
// instead of its raw bytes, making the fingerprint insensitive to
// repackaging details (compression level, timestamps, extra fields).
//
// For Classpath, members keep their archive order and all regular
// members contribute. For CompileClasspath only .class members count,
// sorted by name, so resource changes and member reordering do not
// affect the hash.
//
// ok is false when the bytes are unavailable or not a readable
// archive; the caller falls back to the raw content hash.
func (r *reducer) archiveHash(f *snapshot.File) (hashing.HashCode, bool) {
	if r.provider == nil {
		return hashing.HashCode{}, false
	}
	data, err := r.provider.Read(f.AbsolutePath())
	if err != nil {
		return hashing.HashCode{}, false
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return hashing.HashCode{}, false
	}

	compileOnly := r.policy.PathIdentity == CompileClasspath

	type member struct {
		name string
		hash hashing.HashCode
	}
	var members []member
	for _, entry := range zr.File {
		if strings.HasSuffix(entry.Name, "/") {
			continue
		}
		if compileOnly && !strings.HasSuffix(entry.Name, ".class") {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return hashing.HashCode{}, false
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return hashing.HashCode{}, false
		}
		members = append(members, member{name: entry.Name, hash: hashing.HashBytes(content)})
	}

	marker := "ARCHIVE"
	if compileOnly {
		marker = "ABI_ARCHIVE"
		sort.Slice(members, func(i, j int) bool { return members[i].name < members[j].name })
	}

	h := hashing.NewHasher()
	h.PutString(marker)
	for _, m := range members {
		h.PutString(m.name)
		h.PutHash(m.hash)
	}
	return h.Hash(), true
}
