// SPDX-License-Identifier: AGPL-3.0-or-later

package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/keyfold-org/keyfold/internal/hashing"
)

// ContentProvider reads raw bytes for a captured path. Normalization
// steps that must look inside files (line endings, archive members)
// go through this indirection so the engine itself stays free of I/O.
type ContentProvider interface {
	Read(absolutePath string) ([]byte, error)
}

// DiskContentProvider reads from the live filesystem.
type DiskContentProvider struct{}

func (DiskContentProvider) Read(absolutePath string) ([]byte, error) {
	return os.ReadFile(absolutePath)
}

// Capture walks root and returns its snapshot tree. A non-existent
// root yields a Missing node rather than an error; unreadable entries
// below an existing root are errors.
func Capture(root string) (Node, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %q: %w", root, err)
	}
	info, err := os.Lstat(abs)
	if os.IsNotExist(err) {
		return &Missing{Path: abs, FileName: filepath.Base(abs)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat %q: %w", abs, err)
	}
	return captureEntry(abs, filepath.Base(abs), info)
}

func captureEntry(path, name string, info os.FileInfo) (Node, error) {
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("read dir %q: %w", path, err)
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		children := make([]Node, 0, len(entries))
		for _, entry := range entries {
			childInfo, err := entry.Info()
			if err != nil {
				return nil, fmt.Errorf("stat %q: %w", filepath.Join(path, entry.Name()), err)
			}
			child, err := captureEntry(filepath.Join(path, entry.Name()), entry.Name(), childInfo)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return &Directory{Path: path, DirName: name, Children: children}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}
	return &File{Path: path, FileName: name, ContentHash: hashing.HashBytes(data)}, nil
}
