package modpack

import (
	"path/filepath"
	"sort"
	"testing"

	"mod-deployer/archive"
	"mod-deployer/fsutil"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	testLibrary = "/library"
	testBackup  = "/backups"
	testTarget  = "/target"
	testTrash   = "/backups/.trash"
)

// writeModArchive builds a manifest-style mod archive at
// <testLibrary>/<ident>.zip whose install root holds files.
func writeModArchive(t *testing.T, fs afero.Fs, ident string, files map[string]string, sm *SourceManifest) string {
	t.Helper()
	if sm == nil {
		sm = &SourceManifest{}
	}
	if sm.InstallRoot == "" {
		sm.InstallRoot = ident
	}
	path := filepath.Join(testLibrary, ident+ArchiveExt)
	w, err := archive.Create(fs, path)
	require.NoError(t, err)
	require.NoError(t, w.AppendDir(sm.InstallRoot))

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		require.NoError(t, w.AppendBytes([]byte(files[name]), sm.InstallRoot+"/"+name, 6))
	}
	data, err := sm.Encode()
	require.NoError(t, err)
	require.NoError(t, w.AppendBytes(data, SourceManifestName, 6))
	require.NoError(t, w.Close())
	return path
}

func newTestEnv(t *testing.T, fs afero.Fs, level int) Env {
	t.Helper()
	for _, d := range []string{testLibrary, testBackup, testTarget} {
		require.NoError(t, fs.MkdirAll(d, 0755))
	}
	return Env{
		Fs:               fs,
		TargetDir:        testTarget,
		BackupDir:        testBackup,
		TrashDir:         testTrash,
		CompressionLevel: level,
	}
}

func newTestMod(t *testing.T, fs afero.Fs) *Mod {
	return New(fs, zaptest.NewLogger(t).Sugar())
}

// snapshot returns every path below root with file contents, dirs marked "/".
func snapshot(t *testing.T, fs afero.Fs, root string) map[string]string {
	t.Helper()
	entries, err := fsutil.Walk(fs, root)
	require.NoError(t, err)
	out := map[string]string{}
	for _, e := range entries {
		if e.IsDir {
			out[e.Rel] = "/"
			continue
		}
		data, err := afero.ReadFile(fs, filepath.Join(root, filepath.FromSlash(e.Rel)))
		require.NoError(t, err)
		out[e.Rel] = string(data)
	}
	return out
}

func writeFile(t *testing.T, fs afero.Fs, p, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, p, []byte(content), 0644))
}

// fakeOwners answers ownership queries from fixed tables.
type fakeOwners struct {
	files   map[string][]uint64
	created map[string]uint64
}

func (f fakeOwners) OwnersOf(entry string, self uint64) []uint64 {
	var out []uint64
	for _, h := range f.files[entry] {
		if h != self {
			out = append(out, h)
		}
	}
	return out
}

func (f fakeOwners) CreatedByOther(entry string, self uint64) bool {
	h, ok := f.created[entry]
	return ok && h != self
}
