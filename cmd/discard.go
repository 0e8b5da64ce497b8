package cmd

import (
	"fmt"
	"time"

	"mod-deployer/db"
	"mod-deployer/errs"
	"mod-deployer/logger"
	"mod-deployer/pathutil"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// discardCmd represents the discard command
var discardCmd = &cobra.Command{
	Use:   "discard <mod>...",
	Short: "Forgets the backups of installed mods without touching the target",
	Long: `Moves the backups of the given mods to the trash directory. The
installed files stay in the target, which can no longer be restored.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		a, err := bootstrap(configPath)
		if err != nil {
			return err
		}
		mods, err := resolveMods(a.coll, args)
		if err != nil {
			return err
		}
		batch := uuid.NewString()
		for _, m := range mods {
			if !m.HasBackup() {
				return errs.Newf(errs.NotFound, "discard", m.Identity, "not installed")
			}
			started := time.Now()
			if err := a.coll.Discard(m); err != nil {
				return err
			}
			if err := db.Record(&db.Operation{
				Batch:      batch,
				Kind:       "discard",
				Identity:   m.Identity,
				Hash:       pathutil.FormatHash(m.Hash),
				Result:     "ok",
				TargetDir:  a.cfg.TargetDir,
				StartedAt:  started,
				FinishedAt: time.Now(),
			}); err != nil {
				logger.Log.Warnw("Failed to journal discard", zap.String("identity", m.Identity), zap.Error(err))
			}
			fmt.Printf("Discarded backup of %s\n", modLabel(m))
		}
		a.coll.PurgeGhosts()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(discardCmd)
}
