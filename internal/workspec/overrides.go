// SPDX-License-Identifier: AGPL-3.0-or-later

package workspec

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// ValueError reports a malformed value override.
type ValueError struct {
	Flag string
	Msg  string
}

func (e *ValueError) Error() string { return fmt.Sprintf("value %s: %s", e.Flag, e.Msg) }

// ApplyValueFlags overlays --value name=val pairs from the command
// line onto the spec's input values. Overrides replace spec values of
// the same name and may introduce new ones; they always bind as
// strings.
func ApplyValueFlags(flags *pflag.FlagSet, spec *WorkSpec) error {
	pairs, err := flags.GetStringArray("value")
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		return nil
	}
	if spec.Inputs.Values == nil {
		spec.Inputs.Values = make(map[string]any, len(pairs))
	}
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return &ValueError{Flag: pair, Msg: "expected name=value"}
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return &ValueError{Flag: pair, Msg: "empty value name"}
		}
		spec.Inputs.Values[name] = value
	}
	return nil
}
