// SPDX-License-Identifier: AGPL-3.0-or-later

package fingerprint

import (
	"bytes"

	"github.com/keyfold-org/keyfold/internal/hashing"
	"github.com/keyfold-org/keyfold/internal/snapshot"
)

// binaryProbeSize bounds how far content is scanned when classifying
// it as text or binary.
const binaryProbeSize = 8 * 1024

// lineEndingNormalizedHash re-hashes f with canonical line endings so
// CRLF and LF variants of the same text collapse. Binary content and
// unreadable files report ok=false and keep their raw hash.
func (r *reducer) lineEndingNormalizedHash(f *snapshot.File) (hashing.HashCode, bool) {
	if r.provider == nil {
		return hashing.HashCode{}, false
	}
	data, err := r.provider.Read(f.AbsolutePath())
	if err != nil {
		return hashing.HashCode{}, false
	}
	if isBinary(data) {
		return hashing.HashCode{}, false
	}
	return hashing.HashBytes(normalizeLineEndings(data)), true
}

// isBinary treats content with a NUL byte in its leading bytes as
// binary, the common heuristic for "not text".
func isBinary(data []byte) bool {
	probe := data
	if len(probe) > binaryProbeSize {
		probe = probe[:binaryProbeSize]
	}
	return bytes.IndexByte(probe, 0) >= 0
}

// normalizeLineEndings rewrites CRLF and bare CR terminators to LF.
func normalizeLineEndings(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		c := data[i]
		if c == '\r' {
			if i+1 < len(data) && data[i+1] == '\n' {
				i++
			}
			out = append(out, '\n')
			continue
		}
		out = append(out, c)
	}
	return out
}
