package cmd

import (
	"path/filepath"
	"testing"

	"mod-deployer/collection"
	"mod-deployer/config"
	"mod-deployer/db"
	"mod-deployer/modpack"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// usePlain forces plain output for the duration of a test.
func usePlain(t *testing.T) {
	t.Helper()
	prev := plainOutput
	plainOutput = true
	t.Cleanup(func() { plainOutput = prev })
}

// newTestApp builds an app over an in-memory filesystem with a journal in
// a temporary directory.
func newTestApp(t *testing.T) *app {
	t.Helper()
	fs := afero.NewMemMapFs()
	cfg := config.Config{
		LibraryDir:       "/library",
		BackupDir:        "/backups",
		TargetDir:        "/target",
		CompressionLevel: config.DefaultCompressionLevel,
		DatabasePath:     filepath.Join(t.TempDir(), "journal.db"),
	}
	for _, d := range []string{cfg.LibraryDir, cfg.BackupDir, cfg.TargetDir} {
		require.NoError(t, fs.MkdirAll(d, 0755))
	}
	require.NoError(t, db.InitDatabase(cfg.DatabasePath))

	coll := collection.New(collection.Options{
		LibraryDir:       cfg.LibraryDir,
		BackupDir:        cfg.BackupDir,
		TargetDir:        cfg.TargetDir,
		CompressionLevel: cfg.CompressionLevel,
	}, fs, zaptest.NewLogger(t).Sugar())
	return &app{cfg: cfg, fs: fs, coll: coll}
}

// packMod packs files into dest as a mod installing below its own name.
func packMod(t *testing.T, fs afero.Fs, dest string, files map[string]string, deps ...string) {
	t.Helper()
	src := filepath.Join("/src", dest)
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, filepath.Join(src, name), []byte(content), 0644))
	}
	require.NoError(t, modpack.Pack(fs, src, dest, modpack.PackOptions{Dependencies: deps, Level: 6}, nil))
}

func refreshApp(t *testing.T, a *app) {
	t.Helper()
	_, err := a.coll.RefreshLibrary()
	require.NoError(t, err)
}
