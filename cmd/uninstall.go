package cmd

import (
	"fmt"
	"io"
	"os"

	"mod-deployer/collection"
	"mod-deployer/errs"
	"mod-deployer/logger"
	"mod-deployer/modpack"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	uninstallClean  bool
	uninstallDryRun bool
)

// uninstallCmd represents the uninstall command
var uninstallCmd = &cobra.Command{
	Use:   "uninstall <mod>...",
	Short: "Restores the target directory as it was before the mods were installed",
	Long: `Uninstalls the given mods by replaying their backups.

Installed mods that overwrote files of a selected mod, or that depend on it,
are uninstalled first so every backup is replayed in reverse install order.
With --clean, dependencies of the selection that no other installed mod
needs are uninstalled as well.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		a, err := bootstrap(configPath)
		if err != nil {
			return err
		}
		selection, err := resolveMods(a.coll, args)
		if err != nil {
			return err
		}
		for _, m := range selection {
			if !m.HasBackup() {
				return errs.Newf(errs.NotFound, "uninstall", m.Identity, "not installed")
			}
		}

		var plan collection.UninstallPlan
		if uninstallClean {
			plan, err = a.coll.PrepareCleanUninstall(selection)
		} else {
			plan, err = a.coll.PrepareUninstall(selection)
		}
		if err != nil {
			logger.Log.Errorw("Uninstall planning failed", zap.Error(err))
			return err
		}

		printUninstallPlan(os.Stdout, plan)
		if uninstallDryRun {
			return nil
		}

		summary := runBatch(a, plan.ToUninstall)
		if summary.Failed > 0 {
			return fmt.Errorf("%d of %d uninstalls failed", summary.Failed, len(plan.ToUninstall))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
	uninstallCmd.Flags().BoolVarP(&uninstallClean, "clean", "c", false, "also uninstall dependencies nothing else needs")
	uninstallCmd.Flags().BoolVarP(&uninstallDryRun, "dry-run", "n", false, "show the plan without uninstalling")
}

func printUninstallPlan(w io.Writer, plan collection.UninstallPlan) {
	fmt.Fprintf(w, "Uninstalling: %s\n", joinLabels(plan.ToUninstall))
	section := func(title string, mods []*modpack.Mod) {
		if len(mods) > 0 {
			fmt.Fprintf(w, "%s: %s\n", title, joinLabels(mods))
		}
	}
	section("Unused dependencies", plan.ExtraDependencies)
	section("Overlapping mods", plan.Overlappers)
	section("Dependent mods", plan.Dependents)
}
