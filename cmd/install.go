package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"mod-deployer/collection"
	"mod-deployer/errs"
	"mod-deployer/logger"
	"mod-deployer/modpack"
	"mod-deployer/ui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	installForce  bool
	installDryRun bool
)

// installCmd represents the install command
var installCmd = &cobra.Command{
	Use:   "install <mod>...",
	Short: "Installs mods and their dependencies into the target directory",
	Long: `Installs the given mods into the target directory. Missing
dependencies found in the library are installed first.

The command stops before writing anything when a dependency cannot be found
or when a planned mod would overwrite files of another mod. Pass --force to
install anyway; overwritten files are restored when the overlapping mod is
uninstalled.`,
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
		plan, err := a.coll.PrepareInstall(selection)
		if err != nil {
			logger.Log.Errorw("Install planning failed", zap.Error(err))
			return err
		}
		var installed []*modpack.Mod
		for _, m := range selection {
			if m.HasBackup() {
				installed = append(installed, m)
			}
		}
		if len(installed) > 0 {
			fmt.Printf("Already installed: %s\n", joinLabels(installed))
		}
		if len(plan.ToInstall) == 0 {
			fmt.Println("Nothing to install.")
			return nil
		}

		blocked := printInstallPlan(os.Stdout, plan)
		if installDryRun {
			return nil
		}
		if blocked && !installForce {
			return errs.Newf(errs.Aborted, "install", a.cfg.TargetDir, "resolve the issues above or pass --force")
		}

		summary := runBatch(a, plan.ToInstall)
		if summary.Failed > 0 {
			return fmt.Errorf("%d of %d installs failed", summary.Failed, len(plan.ToInstall))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
	installCmd.Flags().BoolVarP(&installForce, "force", "f", false, "install despite missing dependencies or overlapping files")
	installCmd.Flags().BoolVarP(&installDryRun, "dry-run", "n", false, "show the plan without installing")
}

// printInstallPlan writes the plan and reports whether it needs --force.
func printInstallPlan(w io.Writer, plan collection.InstallPlan) bool {
	fmt.Fprintf(w, "Installing: %s\n", joinLabels(plan.ToInstall))
	if len(plan.ExtraDependencies) > 0 {
		fmt.Fprintf(w, "Pulled in as dependencies: %s\n", joinLabels(plan.ExtraDependencies))
	}
	blocked := false
	if len(plan.MissingIdentities) > 0 {
		blocked = true
		fmt.Fprintln(w, ui.ErrorStyle.Render("Missing dependencies: ")+strings.Join(plan.MissingIdentities, ", "))
	}
	if len(plan.Overlaps) > 0 {
		blocked = true
		fmt.Fprintln(w, ui.WarnStyle.Render("Overwrites files of: ")+joinLabels(plan.Overlaps))
	}
	return blocked
}
