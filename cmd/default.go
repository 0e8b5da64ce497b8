package cmd

import (
	"github.com/spf13/cobra"
)

func init() {
	// With no subcommand the root command lists the collection.
	rootCmd.Args = cobra.NoArgs
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return listCmd.RunE(listCmd, args)
	}
}
