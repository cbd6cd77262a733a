// SPDX-License-Identifier: AGPL-3.0-or-later
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/keyfold-org/keyfold/internal/history"
	"github.com/keyfold-org/keyfold/internal/report"
	"github.com/spf13/cobra"
)

func NewDiffCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "diff <id-a> <id-b>",
		Short: "Diff the trace models of two recorded executions",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return errors.New("requires two execution IDs")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := history.Open(ctx, history.Options{})
			if err != nil {
				return err
			}
			defer store.Close()

			left, err := loadTrace(store, cmd, args[0])
			if err != nil {
				return err
			}
			right, err := loadTrace(store, cmd, args[1])
			if err != nil {
				return err
			}

			diff, err := report.Diff(left, right, args[0], args[1])
			if err != nil {
				return err
			}
			if diff == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "traces are identical")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), diff)
			return nil
		},
	}
	return c
}

func loadTrace(store *history.Store, cmd *cobra.Command, id string) (*report.Model, error) {
	rec, err := store.Get(cmd.Context(), id)
	if err != nil {
		return nil, fmt.Errorf("execution %s: %w", id, err)
	}
	var model report.Model
	if err := json.Unmarshal(rec.Trace, &model); err != nil {
		return nil, fmt.Errorf("execution %s: decode trace: %w", id, err)
	}
	return &model, nil
}
