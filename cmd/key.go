// SPDX-License-Identifier: AGPL-3.0-or-later
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/keyfold-org/keyfold/internal/engine"
	"github.com/keyfold-org/keyfold/internal/history"
	"github.com/keyfold-org/keyfold/internal/workspec"
	"github.com/spf13/cobra"
)

func NewKeyCmd() *cobra.Command {
	var asJSON bool
	var baseDir string
	var noRecord bool
	c := &cobra.Command{
		Use:   "key <work-spec.yaml>",
		Short: "Compute the build cache key for a unit of work",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("requires exactly one work spec file")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := workspec.Load(args[0])
			if err != nil {
				return err
			}
			if err := workspec.ApplyValueFlags(cmd.Flags(), spec); err != nil {
				return err
			}

			result, err := engine.Analyze(spec, engine.Options{BaseDir: baseDir})
			if err != nil {
				return err
			}

			if !noRecord {
				if err := recordExecution(cmd, result); err != nil {
					return err
				}
			}

			if asJSON {
				canonical, err := result.Model.CanonicalJSON()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(canonical))
				return nil
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Work: %s\n", result.Work)
			if key, ok := result.State.Key(); ok {
				fmt.Fprintf(out, "Cache key: %s\n", key)
			} else {
				fmt.Fprintln(out, "Caching: disabled")
				for _, reason := range result.State.DisabledReasons() {
					fmt.Fprintf(out, "  - %s\n", reason)
				}
			}
			return nil
		},
	}
	c.Flags().BoolVar(&asJSON, "json", false, "Output the canonical trace model as JSON")
	c.Flags().StringVar(&baseDir, "base-dir", "", "Anchor for relative root paths in the work spec")
	c.Flags().BoolVar(&noRecord, "no-record", false, "Skip recording this run in the history store")
	c.Flags().StringArray("value", nil, "Override an input value, name=value (repeatable)")
	return c
}

func recordExecution(cmd *cobra.Command, result *engine.Result) error {
	trace, err := result.Model.CanonicalJSON()
	if err != nil {
		return err
	}
	digest, err := result.Model.Digest()
	if err != nil {
		return err
	}

	rec := history.Record{
		Work:        result.Work,
		Trace:       trace,
		TraceDigest: digest,
	}
	if key, ok := result.State.Key(); ok {
		rec.CacheKey = key.String()
	} else {
		reasons := make([]string, 0, len(result.State.DisabledReasons()))
		for _, reason := range result.State.DisabledReasons() {
			reasons = append(reasons, reason.String())
		}
		rec.Reasons = strings.Join(reasons, "; ")
	}

	ctx := cmd.Context()
	store, err := history.Open(ctx, history.Options{})
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.Append(ctx, rec)
	if history.IsFull(err) {
		// A full store degrades recording, never the key computation.
		fmt.Fprintln(os.Stderr, "warning: history store is full, run not recorded")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "recorded execution %s\n", id)
	return nil
}
