package cmd

import (
	"fmt"
	"os"

	"mod-deployer/config"
	"mod-deployer/logger"
	"mod-deployer/modpack"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var packOpts modpack.PackOptions

// packCmd represents the pack command
var packCmd = &cobra.Command{
	Use:   "pack <dir> <archive>",
	Short: "Packs a directory into a mod archive",
	Long: `Packs the tree under <dir> into a mod archive with a modinfo.yaml
manifest. The tree is stored under the folder named by --root, which
defaults to the archive name, and installs into the root of the target.

Example: mod-deployer pack ./hd-textures library/HD_Textures_v2.zip --depends Base_Textures_v1`,
	Args: cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		dir, dest := args[0], args[1]
		fs := afero.NewOsFs()

		bar := newLineProgress(os.Stdout, !plainOutput)
		err := modpack.Pack(fs, dir, dest, packOpts, bar.report)
		bar.finish()
		if err != nil {
			logger.Log.Errorw("Pack failed", zap.String("dir", dir), zap.String("dest", dest), zap.Error(err))
			return err
		}
		logger.Log.Infow("Packed mod", zap.String("dir", dir), zap.String("dest", dest))
		fmt.Printf("Packed %s into %s\n", dir, dest)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(packCmd)
	packCmd.Flags().StringVar(&packOpts.InstallRoot, "root", "", "folder inside the archive holding the payload")
	packCmd.Flags().StringSliceVarP(&packOpts.Dependencies, "depends", "d", nil, "identity of a required mod (repeatable)")
	packCmd.Flags().StringVar(&packOpts.Category, "category", "", "category shown in listings")
	packCmd.Flags().StringVar(&packOpts.Description, "description", "", "free text description")
	packCmd.Flags().StringVar(&packOpts.Picture, "picture", "", "image file stored as the mod thumbnail")
	packCmd.Flags().IntVarP(&packOpts.Level, "level", "l", config.DefaultCompressionLevel, "compression level, 0 stores")
}
