// SPDX-License-Identifier: AGPL-3.0-or-later
package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/keyfold-org/keyfold/internal/paths"
)

const specYAML = `work: compile
implementation:
  type: Compile
  hash: 6ba7b8109dad11d180b400c04fd430c86ba7b8109dad11d180b400c04fd430c8
inputs:
  files:
    sources:
      roots: [src]
      normalization: RELATIVE_PATH
  values:
    target: "17"
outputs: [classes]
`

func writeWorkspace(t *testing.T) (specPath, baseDir string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "src", "a.txt"), []byte("alpha"), 0o644); err != nil {
		t.Fatal(err)
	}
	specPath = filepath.Join(dir, "work.yaml")
	if err := os.WriteFile(specPath, []byte(specYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	return specPath, dir
}

func runKeyCmd(t *testing.T, args ...string) string {
	t.Helper()
	c := NewKeyCmd()
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetErr(&out)
	c.SetArgs(args)
	if err := c.Execute(); err != nil {
		t.Fatalf("key command: %v", err)
	}
	return out.String()
}

func TestKeyCommandPrintsCacheKey(t *testing.T) {
	specPath, baseDir := writeWorkspace(t)
	out := runKeyCmd(t, specPath, "--base-dir", baseDir, "--no-record")
	if !strings.Contains(out, "Cache key: ") {
		t.Fatalf("expected a cache key, got:\n%s", out)
	}
}

func TestKeyCommandJSONOutput(t *testing.T) {
	specPath, baseDir := writeWorkspace(t)
	out := runKeyCmd(t, specPath, "--base-dir", baseDir, "--no-record", "--json")

	var doc map[string]any
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if _, ok := doc["cacheKey"]; !ok {
		t.Fatalf("trace model missing cacheKey:\n%s", out)
	}
	if _, ok := doc["inputFileProperties"]; !ok {
		t.Fatalf("trace model missing inputFileProperties:\n%s", out)
	}
}

func TestKeyCommandValueOverrideChangesKey(t *testing.T) {
	specPath, baseDir := writeWorkspace(t)
	plain := runKeyCmd(t, specPath, "--base-dir", baseDir, "--no-record")
	overridden := runKeyCmd(t, specPath, "--base-dir", baseDir, "--no-record", "--value", "target=21")
	if plain == overridden {
		t.Fatal("value override did not change the key")
	}
}

func TestKeyCommandRecordsExecution(t *testing.T) {
	specPath, baseDir := writeWorkspace(t)
	paths.SetDataDirOverride(t.TempDir())
	t.Cleanup(func() { paths.SetDataDirOverride("") })

	runKeyCmd(t, specPath, "--base-dir", baseDir)

	c := newHistoryListCmd()
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetErr(&out)
	c.SetArgs([]string{"--work", "compile"})
	if err := c.Execute(); err != nil {
		t.Fatalf("history list: %v", err)
	}
	if !strings.Contains(out.String(), "compile") {
		t.Fatalf("recorded execution not listed:\n%s", out.String())
	}
}
