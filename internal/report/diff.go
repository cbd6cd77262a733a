// SPDX-License-Identifier: AGPL-3.0-or-later

package report

import (
	"encoding/json"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// Diff returns a unified diff between two trace models, for comparing
// what was hashed across runs. An empty string means the traces agree.
func Diff(a, b *Model, labelA, labelB string) (string, error) {
	left, err := renderLines(a)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", labelA, err)
	}
	right, err := renderLines(b)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", labelB, err)
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(left),
		B:        difflib.SplitLines(right),
		FromFile: labelA,
		ToFile:   labelB,
		Context:  3,
	})
}

// renderLines produces a stable, line-oriented rendering: canonical
// JSON re-indented so the diff points at individual fields.
func renderLines(m *Model) (string, error) {
	canonical, err := m.CanonicalJSON()
	if err != nil {
		return "", err
	}
	var decoded any
	if err := json.Unmarshal(canonical, &decoded); err != nil {
		return "", err
	}
	pretty, err := json.MarshalIndent(decoded, "", "  ")
	if err != nil {
		return "", err
	}
	return string(pretty) + "\n", nil
}
