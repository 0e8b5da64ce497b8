package archive

import (
	"bytes"
	"testing"

	"mod-deployer/errs"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildArchive(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, "/src/readme.txt", []byte("hello readme"), 0644))

	w, err := Create(fs, path)
	require.NoError(t, err)
	require.NoError(t, w.AppendDir("ModA"))
	require.NoError(t, w.AppendDir("ModA")) // ignored
	require.NoError(t, w.AppendBytes([]byte("stored"), "ModA/stored.txt", 0))
	require.NoError(t, w.AppendBytes(bytes.Repeat([]byte("z"), 4096), "ModA/deflated.bin", 9))
	require.NoError(t, w.AppendFile(fs, "/src/readme.txt", `ModA\docs\readme.txt`, 1))
	require.NoError(t, w.AppendBytes([]byte("first"), "manifest.yaml", 6))
	require.NoError(t, w.AppendBytes([]byte("last"), "manifest.yaml", 6))
	require.NoError(t, w.Close())
}

func TestWriteThenRead(t *testing.T) {
	fs := afero.NewMemMapFs()
	buildArchive(t, fs, "/out/mod.zip")

	r, err := Open(fs, "/out/mod.zip")
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, 6, r.Count())
	assert.Equal(t, "ModA", r.Path(0))
	assert.True(t, r.IsDir(0))
	assert.False(t, r.IsDir(1))
	assert.Equal(t, "ModA/docs/readme.txt", r.Path(3))
	assert.Equal(t, int64(4096), r.Size(2))

	data, err := r.ReadAll(r.Locate("ModA/deflated.bin"))
	require.NoError(t, err)
	assert.Len(t, data, 4096)

	assert.Equal(t, 1, r.Locate("moda/STORED.txt"))
	assert.Equal(t, NotFound, r.Locate("ModA/missing.txt"))

	first := r.Locate("manifest.yaml")
	last := r.LocateLast("manifest.yaml")
	assert.Equal(t, 4, first)
	assert.Equal(t, 5, last)
	content, err := r.ReadAll(last)
	require.NoError(t, err)
	assert.Equal(t, "last", string(content))
}

func TestExtract(t *testing.T) {
	fs := afero.NewMemMapFs()
	buildArchive(t, fs, "/out/mod.zip")

	r, err := Open(fs, "/out/mod.zip")
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.ExtractPath("ModA/docs/readme.txt", fs, "/target/docs/readme.txt"))
	data, err := afero.ReadFile(fs, "/target/docs/readme.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello readme", string(data))

	require.NoError(t, r.Extract(0, fs, "/target/ModA"))
	ok, _ := afero.DirExists(fs, "/target/ModA")
	assert.True(t, ok)

	err = r.ExtractPath("nope", fs, "/target/nope")
	assert.True(t, errs.Is(err, errs.NotFound))

	err = r.Extract(99, fs, "/target/x")
	assert.True(t, errs.Is(err, errs.ArchiveError))
}

func TestOpenInvalid(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/bad.zip", []byte("not a zip"), 0644))
	require.NoError(t, fs.MkdirAll("/dir.zip", 0755))

	_, err := Open(fs, "/bad.zip")
	assert.True(t, errs.Is(err, errs.ArchiveError))

	_, err = Open(fs, "/dir.zip")
	assert.True(t, errs.Is(err, errs.ArchiveError))

	_, err = Open(fs, "/missing.zip")
	assert.True(t, errs.Is(err, errs.ArchiveError))
}

func TestAbandonRemovesPartialFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	w, err := Create(fs, "/out/partial.zip")
	require.NoError(t, err)
	require.NoError(t, w.AppendBytes([]byte("x"), "x", 6))
	w.Abandon(fs)

	exists, _ := afero.Exists(fs, "/out/partial.zip")
	assert.False(t, exists)
}
