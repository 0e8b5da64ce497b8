package cmd

import (
	"fmt"
	"io"
	"os"

	"mod-deployer/collection"
	"mod-deployer/modpack"
	"mod-deployer/pathutil"
	"mod-deployer/ui"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	listSort    string
	listReverse bool
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the mods of the library and their install state",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		a, err := bootstrap(configPath)
		if err != nil {
			return err
		}
		if listSort != "" {
			mode, err := collection.ParseSortMode(listSort)
			if err != nil {
				return err
			}
			a.coll.SetSortMode(mode)
		}
		if listReverse {
			// selecting the active mode again flips the direction
			mode, _ := a.coll.SortMode()
			a.coll.SetSortMode(mode)
		}
		printList(os.Stdout, a.coll.Units())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVarP(&listSort, "sort", "s", "", "sort by status, name, version or category")
	listCmd.Flags().BoolVarP(&listReverse, "reverse", "r", false, "reverse the sort order")
}

var (
	colStatus   = lipgloss.NewStyle().Width(13)
	colName     = lipgloss.NewStyle().Width(36)
	colVersion  = lipgloss.NewStyle().Width(12)
	colCategory = lipgloss.NewStyle().Width(16)
)

func printList(w io.Writer, mods []*modpack.Mod) {
	if len(mods) == 0 {
		fmt.Fprintln(w, "The library is empty.")
		return
	}
	header := colStatus.Render("STATUS") + colName.Render("NAME") + colVersion.Render("VERSION") +
		colCategory.Render("CATEGORY") + "HASH"
	if !plainOutput {
		header = ui.HeaderStyle.Render(header)
	}
	fmt.Fprintln(w, header)

	installed := 0
	for _, m := range mods {
		status := modStatus(m)
		if status != ui.StatusAvailable {
			installed++
		}
		label := status.Label()
		if plainOutput {
			label = status.Plain()
		}
		fmt.Fprintln(w,
			colStatus.Render(label)+
				colName.Render(modLabel(m))+
				colVersion.Render(m.Version.String())+
				colCategory.Render(m.Category)+
				pathutil.FormatHash(m.Hash),
		)
	}
	fmt.Fprintf(w, "\n%d mods, %d installed\n", len(mods), installed)
}
