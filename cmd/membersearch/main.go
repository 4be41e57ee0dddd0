/*
Package main is the entry point for the membersearch CLI.

membersearch runs the registry's ranked member search offline, against a
JSON export, without a database or a running API.

Usage:

	membersearch [command]

Available Commands:

	rank        Rank members from a JSON file against a query
	similarity  Print the trigram similarity of two strings
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/museum-members/member-registry-api/internal/cli"
)

// Version information (set via ldflags during build)
var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "membersearch",
		Short:         "Offline ranked search over member exports",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(cli.NewRankCmd())
	rootCmd.AddCommand(cli.NewSimilarityCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
