package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weaver-dev/weaver/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of weaver",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "weaver version %s\n", version.Get().Full())
	},
}
