// Package main provides the entry point for the rangetree CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// 由 -ldflags 注入。
var (
	Version = "dev"
	Commit  = "none"
)

const serviceName = "rangetree"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   serviceName,
		Short: "Segment tree range queries and verification workloads",
		Long: `rangetree builds segment trees over in-memory sequences.

Commands:
  run       Execute configured update/query workloads and verify every answer
  query     Build a tree from values and answer one range query`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newQueryCommand())
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (commit: %s)\n", serviceName, Version, Commit)
		},
	}
}
