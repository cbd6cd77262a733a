// SPDX-License-Identifier: AGPL-3.0-or-later
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/keyfold-org/keyfold/internal/history"
	"github.com/spf13/cobra"
)

func NewHistoryCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded executions",
	}
	c.AddCommand(newHistoryListCmd())
	c.AddCommand(newHistoryShowCmd())
	c.AddCommand(newHistoryPruneCmd())
	return c
}

func newHistoryPruneCmd() *cobra.Command {
	var keep int
	c := &cobra.Command{
		Use:   "prune <work>",
		Short: "Delete all but the newest records of a work",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("requires a work name")
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

			removed, err := store.Prune(ctx, args[0], keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d record(s)\n", removed)
			return nil
		},
	}
	c.Flags().IntVar(&keep, "keep", 10, "Number of newest records to keep")
	return c
}

func newHistoryListCmd() *cobra.Command {
	var jsonOut bool
	var work string
	var limit int
	c := &cobra.Command{
		Use:   "list",
		Short: "List recorded executions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := history.Open(ctx, history.Options{})
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List(ctx, work, limit)
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}

			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "(no recorded executions)")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tWORK\tCACHE KEY\tRECORDED")
			for _, rec := range records {
				key := rec.CacheKey
				if key == "" {
					key = "(disabled)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rec.ID, rec.Work, key, rec.CreatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	c.Flags().BoolVar(&jsonOut, "json", false, "Output records as JSON")
	c.Flags().StringVar(&work, "work", "", "Only list executions of this work")
	c.Flags().IntVar(&limit, "limit", 20, "Maximum number of records")
	return c
}

func newHistoryShowCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "show <id>",
		Short: "Print one execution record and its trace model",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("requires an execution ID")
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

			rec, err := store.Get(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Work: %s\n", rec.Work)
			if rec.CacheKey != "" {
				fmt.Fprintf(out, "Cache key: %s\n", rec.CacheKey)
			} else {
				fmt.Fprintf(out, "Caching: disabled (%s)\n", rec.Reasons)
			}
			fmt.Fprintf(out, "Trace digest: %s\n", rec.TraceDigest)
			fmt.Fprintf(out, "Recorded: %s\n", rec.CreatedAt.Format(time.RFC3339))

			var decoded any
			if err := json.Unmarshal(rec.Trace, &decoded); err != nil {
				return fmt.Errorf("decode trace: %w", err)
			}
			pretty, err := json.MarshalIndent(decoded, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(pretty))
			return nil
		},
	}
	return c
}
