package collection

import (
	"path/filepath"
	"sort"
	"testing"

	"mod-deployer/archive"
	"mod-deployer/modpack"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testOptions() Options {
	return Options{
		LibraryDir:       "/library",
		BackupDir:        "/backups",
		TargetDir:        "/target",
		CompressionLevel: 6,
	}
}

func newTestCollection(t *testing.T, fs afero.Fs) *Collection {
	t.Helper()
	opts := testOptions()
	for _, d := range []string{opts.LibraryDir, opts.BackupDir, opts.TargetDir} {
		require.NoError(t, fs.MkdirAll(d, 0755))
	}
	return New(opts, fs, zaptest.NewLogger(t).Sugar())
}

// addLibraryMod writes a manifest-style archive for ident into the library.
func addLibraryMod(t *testing.T, fs afero.Fs, ident string, files map[string]string, deps ...string) string {
	t.Helper()
	path := filepath.Join("/library", ident+modpack.ArchiveExt)
	w, err := archive.Create(fs, path)
	require.NoError(t, err)

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		require.NoError(t, w.AppendBytes([]byte(files[name]), ident+"/"+name, 6))
	}
	sm := &modpack.SourceManifest{InstallRoot: ident, Dependencies: deps}
	data, err := sm.Encode()
	require.NoError(t, err)
	require.NoError(t, w.AppendBytes(data, modpack.SourceManifestName, 6))
	require.NoError(t, w.Close())
	return path
}

func refresh(t *testing.T, c *Collection) {
	t.Helper()
	_, err := c.RefreshLibrary()
	require.NoError(t, err)
}

func mustFind(t *testing.T, c *Collection, ident string) *modpack.Mod {
	t.Helper()
	m := c.Find(ident)
	require.NotNil(t, m, "mod %s not found", ident)
	return m
}

func identities(mods []*modpack.Mod) []string {
	out := make([]string, 0, len(mods))
	for _, m := range mods {
		out = append(out, m.Identity)
	}
	return out
}

func indexOf(mods []*modpack.Mod, ident string) int {
	for i, m := range mods {
		if m.Identity == ident {
			return i
		}
	}
	return -1
}
