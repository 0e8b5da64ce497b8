package cmd

import (
	"fmt"
	"strings"

	"mod-deployer/collection"
	"mod-deployer/config"
	"mod-deployer/db"
	"mod-deployer/errs"
	"mod-deployer/logger"
	"mod-deployer/modpack"
	"mod-deployer/pathutil"
	"mod-deployer/ui"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// app is the state shared by every command after bootstrap.
type app struct {
	cfg  config.Config
	fs   afero.Fs
	coll *collection.Collection
}

// bootstrap handles shared initialization logic for commands: configuration,
// log file, journal, and a refreshed collection.
func bootstrap(path string) (*app, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.InitLogger(cfg.LogFile, cfg.LogLevel); err != nil {
		return nil, err
	}

	if err := db.InitDatabase(cfg.DatabasePath); err != nil {
		logger.Log.Errorw("Failed to open journal", zap.String("path", cfg.DatabasePath), zap.Error(err))
		return nil, err
	}
	logger.Log.Infow("Database initialized", zap.String("path", cfg.DatabasePath))

	mode, err := collection.ParseSortMode(cfg.SortMode)
	if err != nil {
		logger.Log.Warnw("Ignoring sort mode", zap.Error(err))
	}

	fs := afero.NewOsFs()
	coll := collection.New(collection.Options{
		LibraryDir:       cfg.LibraryDir,
		BackupDir:        cfg.BackupDir,
		TargetDir:        cfg.TargetDir,
		TrashDir:         cfg.TrashDir,
		CompressionLevel: cfg.CompressionLevel,
		DevMode:          cfg.DevMode,
		SortMode:         mode,
	}, fs, logger.Log)

	if _, err := coll.RefreshLibrary(); err != nil {
		logger.Log.Errorw("Failed to refresh library", zap.Error(err))
		return nil, err
	}

	return &app{cfg: cfg, fs: fs, coll: coll}, nil
}

// resolveMods maps command arguments to mods. An argument is an identity,
// an archive file name, or a hex hash.
func resolveMods(c *collection.Collection, args []string) ([]*modpack.Mod, error) {
	var mods []*modpack.Mod
	var unknown []string
	for _, arg := range args {
		m := resolveMod(c, arg)
		if m == nil {
			unknown = append(unknown, arg)
			continue
		}
		mods = append(mods, m)
	}
	if len(unknown) > 0 {
		return nil, errs.Newf(errs.NotFound, "resolve", c.Options().LibraryDir, "unknown mods: %s", strings.Join(unknown, ", "))
	}
	return mods, nil
}

func resolveMod(c *collection.Collection, arg string) *modpack.Mod {
	if m := c.Find(arg); m != nil {
		return m
	}
	if m := c.Find(pathutil.StripExt(arg)); m != nil {
		return m
	}
	if h, err := pathutil.ParseHash(arg); err == nil {
		return c.FindHash(h)
	}
	return nil
}

// modStatus returns the listing state of m.
func modStatus(m *modpack.Mod) ui.Status {
	switch {
	case m.HasBackup() && !m.HasSource():
		return ui.StatusOrphaned
	case m.HasBackup():
		return ui.StatusInstalled
	default:
		return ui.StatusAvailable
	}
}

// modLabel renders the mod name in its stable color.
func modLabel(m *modpack.Mod) string {
	if plainOutput {
		return m.Identity
	}
	return ui.Colorize(m.Identity, ui.ColorFor(m.Hash))
}

func joinLabels(mods []*modpack.Mod) string {
	names := make([]string, len(mods))
	for i, m := range mods {
		names[i] = modLabel(m)
	}
	return strings.Join(names, ", ")
}
