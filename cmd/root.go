// SPDX-License-Identifier: AGPL-3.0-or-later
package cmd

import (
	"fmt"
	"os"

	"github.com/keyfold-org/keyfold/internal/paths"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kfld",
	Short: "Input fingerprinting and build cache key analysis",
}

func Execute() {
	if dataDir := os.Getenv("KEYFOLD_DATA_DIR"); dataDir != "" {
		paths.SetDataDirOverride(dataDir)
	}

	rootCmd.AddCommand(NewKeyCmd())
	rootCmd.AddCommand(NewFingerprintCmd())
	rootCmd.AddCommand(NewHistoryCmd())
	rootCmd.AddCommand(NewDiffCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
