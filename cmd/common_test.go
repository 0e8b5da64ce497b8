package cmd

import (
	"bytes"
	"testing"

	"mod-deployer/collection"
	"mod-deployer/errs"
	"mod-deployer/modpack"
	"mod-deployer/pathutil"
	"mod-deployer/ui"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMods(t *testing.T) {
	a := newTestApp(t)
	packMod(t, a.fs, "/library/Foo_v1.zip", map[string]string{"a.txt": "A"})
	packMod(t, a.fs, "/library/Bar_v2.zip", map[string]string{"b.txt": "B"})
	refreshApp(t, a)

	foo := a.coll.Find("Foo_v1")
	require.NotNil(t, foo)

	tests := []struct {
		name string
		arg  string
	}{
		{"identity", "Foo_v1"},
		{"archive name", "Foo_v1.zip"},
		{"hex hash", pathutil.FormatHash(foo.Hash)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mods, err := resolveMods(a.coll, []string{tt.arg})
			require.NoError(t, err)
			require.Len(t, mods, 1)
			assert.Same(t, foo, mods[0])
		})
	}

	t.Run("unknown names are reported together", func(t *testing.T) {
		_, err := resolveMods(a.coll, []string{"Foo_v1", "Nope", "Missing_v3"})
		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.NotFound))
		assert.Contains(t, err.Error(), "Nope, Missing_v3")
	})
}

func TestModStatus(t *testing.T) {
	usePlain(t)
	a := newTestApp(t)
	packMod(t, a.fs, "/library/Foo_v1.zip", map[string]string{"a.txt": "A"})
	refreshApp(t, a)

	foo := a.coll.Find("Foo_v1")
	require.NotNil(t, foo)
	assert.Equal(t, ui.StatusAvailable, modStatus(foo))

	require.NoError(t, a.coll.Install(foo, nil))
	assert.Equal(t, ui.StatusInstalled, modStatus(foo))

	foo.ClearSource()
	assert.Equal(t, ui.StatusOrphaned, modStatus(foo))
	assert.Equal(t, "Foo_v1", modLabel(foo))
}

func TestPrintInstallPlan(t *testing.T) {
	usePlain(t)
	a := newTestApp(t)
	packMod(t, a.fs, "/library/Base_v1.zip", map[string]string{"shared.txt": "base"})
	packMod(t, a.fs, "/library/Addon_v1.zip", map[string]string{"addon.txt": "addon"}, "Base_v1", "Ghost_v9")
	refreshApp(t, a)

	plan, err := a.coll.PrepareInstall([]*modpack.Mod{a.coll.Find("Addon_v1")})
	require.NoError(t, err)

	var buf bytes.Buffer
	blocked := printInstallPlan(&buf, plan)
	assert.True(t, blocked, "a missing dependency needs --force")
	out := buf.String()
	assert.Contains(t, out, "Installing: Base_v1, Addon_v1")
	assert.Contains(t, out, "Pulled in as dependencies: Base_v1")
	assert.Contains(t, out, "Ghost_v9")
}

func TestPrintUninstallPlan(t *testing.T) {
	usePlain(t)
	var buf bytes.Buffer
	printUninstallPlan(&buf, collection.UninstallPlan{})
	assert.Equal(t, "Uninstalling: \n", buf.String())
}
