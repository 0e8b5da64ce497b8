package cmd

import (
	"fmt"
	"os"

	"mod-deployer/logger"
	"mod-deployer/ui"

	"github.com/spf13/cobra"
)

var (
	configPath  string
	plainOutput bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mod-deployer",
	Short: "Installs mod archives into a target directory with exact rollback",
	Long: `mod-deployer installs mod packages from a library directory into a
target directory. Everything an install overwrites or adds is captured in a
backup first, so uninstalling restores the target exactly.

Dependencies between mods are resolved and overlapping files are reported
before anything is written.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.ErrorStyle.Render("Error:"), err)
		logger.Sync()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".", "directory holding the .env configuration file")
	rootCmd.PersistentFlags().BoolVar(&plainOutput, "plain", false, "print plain progress lines instead of the interactive view")
}
