package cmd

import (
	"fmt"
	"io"
	"os"

	"mod-deployer/db"
	"mod-deployer/logger"
	"mod-deployer/ui"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var historyLimit int

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history [mod]",
	Short: "Shows the journal of past installs, uninstalls and discards",
	Long: `Shows the journal of past operations, newest first.
Example: mod-deployer history HD_Textures_v2

With a mod identity only that mod's operations are listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		a, err := bootstrap(configPath)
		if err != nil {
			return err
		}
		identity := ""
		if len(args) == 1 {
			identity = args[0]
			if m := resolveMod(a.coll, identity); m != nil {
				identity = m.Identity
			}
		}
		ops, err := db.History(identity, historyLimit)
		if err != nil {
			logger.Log.Errorw("Failed to query journal", zap.Error(err))
			return err
		}
		printHistory(os.Stdout, ops)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "number of entries to show, 0 for all")
}

var (
	colWhen   = lipgloss.NewStyle().Width(21)
	colKind   = lipgloss.NewStyle().Width(11)
	colResult = lipgloss.NewStyle().Width(8)
)

func printHistory(w io.Writer, ops []db.Operation) {
	if len(ops) == 0 {
		fmt.Fprintln(w, "No operations recorded.")
		return
	}
	for _, op := range ops {
		result := op.Result
		if !plainOutput {
			switch op.Result {
			case "ok":
				result = ui.SuccessStyle.Render(result)
			case "abort":
				result = ui.WarnStyle.Render(result)
			default:
				result = ui.ErrorStyle.Render(result)
			}
		}
		line := colWhen.Render(op.FinishedAt.Format("2006-01-02 15:04:05")) +
			colKind.Render(op.Kind) +
			colResult.Render(result) +
			op.Identity
		if op.Message != "" {
			line += "  " + op.Message
		}
		fmt.Fprintln(w, line)
	}
}
