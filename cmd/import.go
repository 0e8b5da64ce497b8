package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"mod-deployer/errs"
	"mod-deployer/fsutil"
	"mod-deployer/logger"
	"mod-deployer/modpack"
	"mod-deployer/pathutil"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <archive>...",
	Short: "Copies downloaded mod archives into the library",
	Long: `Validates each archive as a mod and copies it into the library
directory. An archive already present with the same content is skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		a, err := bootstrap(configPath)
		if err != nil {
			return err
		}
		imported := 0
		for _, src := range args {
			dest, dup, err := importArchive(a.fs, src, a.cfg.LibraryDir)
			if err != nil {
				return err
			}
			if dup {
				fmt.Printf("%s is already in the library\n", filepath.Base(src))
				continue
			}
			imported++
			fmt.Printf("Imported %s\n", dest)
		}
		if imported > 0 {
			if _, err := a.coll.RefreshLibrary(); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}

// importArchive validates src as a mod archive and copies it into
// libraryDir. dup is true when an identical file is already there.
func importArchive(fs afero.Fs, src, libraryDir string) (dest string, dup bool, err error) {
	if !strings.EqualFold(filepath.Ext(src), modpack.ArchiveExt) {
		return "", false, errs.Newf(errs.ParseError, "import", src, "not a %s archive", modpack.ArchiveExt)
	}
	if err := modpack.New(fs, logger.Log).ParseSource(src); err != nil {
		return "", false, err
	}

	dest = filepath.Join(libraryDir, filepath.Base(src))
	if fsutil.Exists(fs, dest) {
		want, err := calculateHash(fs, src)
		if err != nil {
			return "", false, errs.IO("hash", src, err)
		}
		have, err := calculateHash(fs, dest)
		if err != nil {
			return "", false, errs.IO("hash", dest, err)
		}
		if want != have {
			return "", false, errs.Newf(errs.IOError, "import", dest, "a different archive with this name is in the library")
		}
		logger.Log.Infow("Archive already imported", zap.String("file", dest), zap.String("hash", pathutil.FormatHash(have)))
		return dest, true, nil
	}

	if err := fsutil.CopyFile(fs, src, dest); err != nil {
		return "", false, errs.IO("import", dest, err)
	}
	logger.Log.Infow("Imported archive", zap.String("from", src), zap.String("to", dest))
	return dest, false, nil
}

// calculateHash returns the xxhash64 of a file's content.
func calculateHash(fs afero.Fs, filePath string) (uint64, error) {
	file, err := fs.Open(filePath)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	hash := xxhash.New()
	if _, err := io.Copy(hash, file); err != nil {
		return 0, err
	}
	return hash.Sum64(), nil
}
