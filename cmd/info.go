package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"mod-deployer/db"
	"mod-deployer/modpack"
	"mod-deployer/pathutil"
	"mod-deployer/ui"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <mod>",
	Short: "Shows the details of one mod",
	Long: `Shows the details of one mod: its source, its backup, its
dependencies and the installed mods it overlaps with.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		a, err := bootstrap(configPath)
		if err != nil {
			return err
		}
		mods, err := resolveMods(a.coll, args)
		if err != nil {
			return err
		}
		m := mods[0]
		printInfo(os.Stdout, m, a.coll.FindHash)
		if last, err := db.LastInstall(m.Identity); err == nil {
			fmt.Printf("Last installed:  %s (batch %s)\n", last.FinishedAt.Format("2006-01-02 15:04:05"), last.Batch)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func printInfo(w io.Writer, m *modpack.Mod, byHash func(uint64) *modpack.Mod) {
	title := m.DisplayName
	if !plainOutput {
		title = ui.Colorize(title, ui.ColorFor(m.Hash))
	}
	fmt.Fprintf(w, "%s\n\n", title)
	fmt.Fprintf(w, "Identity:        %s\n", m.Identity)
	fmt.Fprintf(w, "Hash:            %s\n", pathutil.FormatHash(m.Hash))
	if !m.Version.IsZero() {
		fmt.Fprintf(w, "Version:         %s\n", m.Version)
	}
	if m.Category != "" {
		fmt.Fprintf(w, "Category:        %s\n", m.Category)
	}
	fmt.Fprintf(w, "Status:          %s\n", modStatus(m).Plain())
	if len(m.Dependencies) > 0 {
		fmt.Fprintf(w, "Dependencies:    %s\n", strings.Join(m.Dependencies, ", "))
	}
	if m.Picture != nil {
		fmt.Fprintf(w, "Picture:         %s (%s %dx%d)\n", m.Picture.Name, m.Picture.Format, m.Picture.Width, m.Picture.Height)
	}

	if src := m.Source(); src != nil {
		kind := "folder"
		if src.IsArchive {
			kind = "archive"
		}
		fmt.Fprintf(w, "Source:          %s (%s, %d entries)\n", src.Path, kind, len(src.Entries))
	}
	if bk := m.Backup(); bk != nil {
		fmt.Fprintf(w, "Backup:          %s (%d restored, %d removed on uninstall)\n",
			bk.Path, len(bk.Copies()), len(bk.Deletes()))
		var over []string
		for _, h := range bk.Overlaps {
			if o := byHash(h); o != nil {
				over = append(over, o.Identity)
			} else {
				over = append(over, pathutil.FormatHash(h))
			}
		}
		if len(over) > 0 {
			fmt.Fprintf(w, "Overwrote:       %s\n", strings.Join(over, ", "))
		}
	}
	if m.Description != "" {
		fmt.Fprintf(w, "\n%s\n", m.Description)
	}
}
