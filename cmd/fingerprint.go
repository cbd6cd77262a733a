// SPDX-License-Identifier: AGPL-3.0-or-later
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/keyfold-org/keyfold/internal/fingerprint"
	"github.com/keyfold-org/keyfold/internal/snapshot"
	"github.com/spf13/cobra"
)

func NewFingerprintCmd() *cobra.Command {
	var asJSON bool
	var normalization string
	var dirSensitivity string
	var lineEndings string
	c := &cobra.Command{
		Use:   "fingerprint <path>...",
		Short: "Fingerprint file trees under a normalization policy",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return errors.New("requires at least one path")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, err := fingerprint.ParsePathIdentity(normalization)
			if err != nil {
				return err
			}
			dirs, err := fingerprint.ParseDirectorySensitivity(dirSensitivity)
			if err != nil {
				return err
			}
			endings, err := fingerprint.ParseLineEndingSensitivity(lineEndings)
			if err != nil {
				return err
			}
			policy := fingerprint.Policy{
				PathIdentity:          identity,
				DirectorySensitivity:  dirs,
				LineEndingSensitivity: endings,
			}

			roots := make([]snapshot.Node, 0, len(args))
			for _, arg := range args {
				node, err := snapshot.Capture(arg)
				if err != nil {
					return err
				}
				roots = append(roots, node)
			}

			fp := fingerprint.Reduce(policy, snapshot.DiskContentProvider{}, roots...)

			if asJSON {
				return printFingerprintJSON(cmd, fp)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Property hash: %s\n", fp.Hash())
			if fp.Len() == 0 {
				fmt.Fprintln(out, "(no entries)")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "IDENTITY\tHASH\tPATH")
			for _, path := range fp.Paths() {
				entry, _ := fp.Entry(path)
				fmt.Fprintf(tw, "%s\t%s\t%s\n", entry.NormalizedIdentity, entry.NormalizedHash, path)
			}
			return tw.Flush()
		},
	}
	c.Flags().BoolVar(&asJSON, "json", false, "Output the fingerprint as JSON")
	c.Flags().StringVar(&normalization, "normalization", "ABSOLUTE_PATH", "Path identity strategy")
	c.Flags().StringVar(&dirSensitivity, "directory-sensitivity", "DEFAULT", "DEFAULT or IGNORE_DIRECTORIES")
	c.Flags().StringVar(&lineEndings, "line-endings", "DEFAULT", "DEFAULT or NORMALIZE_LINE_ENDINGS")
	return c
}

type fingerprintEntryJSON struct {
	Path     string `json:"path"`
	Identity string `json:"identity"`
	Hash     string `json:"hash"`
}

type fingerprintJSON struct {
	PropertyHash string                 `json:"propertyHash"`
	Attributes   []string               `json:"attributes"`
	Entries      []fingerprintEntryJSON `json:"entries"`
}

func printFingerprintJSON(cmd *cobra.Command, fp *fingerprint.Fingerprint) error {
	doc := fingerprintJSON{
		PropertyHash: fp.Hash().String(),
		Attributes:   fp.Policy().Attributes(),
	}
	for _, path := range fp.Paths() {
		entry, _ := fp.Entry(path)
		doc.Entries = append(doc.Entries, fingerprintEntryJSON{
			Path:     path,
			Identity: entry.NormalizedIdentity,
			Hash:     entry.NormalizedHash.String(),
		})
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
