package collection

import (
	"fmt"
	"testing"

	"mod-deployer/errs"
	"mod-deployer/modpack"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareInstallResolvesDependencies(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := newTestCollection(t, fs)
	addLibraryMod(t, fs, "ModA", map[string]string{"a.txt": "a"}, "ModB")
	addLibraryMod(t, fs, "ModB", map[string]string{"b.txt": "b"})
	refresh(t, c)

	plan, err := c.PrepareInstall([]*modpack.Mod{mustFind(t, c, "ModA")})
	require.NoError(t, err)
	assert.Equal(t, []string{"ModB", "ModA"}, identities(plan.ToInstall))
	assert.Equal(t, []string{"ModB"}, identities(plan.ExtraDependencies))
	assert.Empty(t, plan.MissingIdentities)
	assert.Empty(t, plan.Overlaps)
}

func TestPrepareInstallSkipsInstalledSelection(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := newTestCollection(t, fs)
	addLibraryMod(t, fs, "ModA", map[string]string{"a.txt": "a"}, "ModB")
	addLibraryMod(t, fs, "ModB", map[string]string{"b.txt": "b"})
	addLibraryMod(t, fs, "ModC", map[string]string{"c.txt": "c"})
	refresh(t, c)
	require.NoError(t, c.Install(mustFind(t, c, "ModB"), nil))
	require.NoError(t, c.Install(mustFind(t, c, "ModA"), nil))

	plan, err := c.PrepareInstall([]*modpack.Mod{mustFind(t, c, "ModA")})
	require.NoError(t, err)
	assert.Empty(t, plan.ToInstall)
	assert.Empty(t, plan.ExtraDependencies)

	plan, err = c.PrepareInstall([]*modpack.Mod{mustFind(t, c, "ModA"), mustFind(t, c, "ModC")})
	require.NoError(t, err)
	assert.Equal(t, []string{"ModC"}, identities(plan.ToInstall))
}

func TestPrepareInstallReportsMissingOnce(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := newTestCollection(t, fs)
	addLibraryMod(t, fs, "ModA", map[string]string{"a.txt": "a"}, "Ghost", "ModB")
	addLibraryMod(t, fs, "ModB", map[string]string{"b.txt": "b"}, "Ghost")
	addLibraryMod(t, fs, "ModC", map[string]string{"c.txt": "c"}, "Ghost", "Other")
	refresh(t, c)

	plan, err := c.PrepareInstall([]*modpack.Mod{mustFind(t, c, "ModA"), mustFind(t, c, "ModC")})
	require.NoError(t, err)
	assert.Equal(t, []string{"ModB", "ModA", "ModC"}, identities(plan.ToInstall))
	assert.Equal(t, []string{"Ghost", "Other"}, plan.MissingIdentities)
}

func TestPrepareInstallSkipsInstalledDependencies(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := newTestCollection(t, fs)
	addLibraryMod(t, fs, "ModA", map[string]string{"a.txt": "a"}, "ModB")
	addLibraryMod(t, fs, "ModB", map[string]string{"b.txt": "b"})
	refresh(t, c)
	require.NoError(t, c.Install(mustFind(t, c, "ModB"), nil))

	plan, err := c.PrepareInstall([]*modpack.Mod{mustFind(t, c, "ModA")})
	require.NoError(t, err)
	assert.Equal(t, []string{"ModA"}, identities(plan.ToInstall))
	assert.Empty(t, plan.ExtraDependencies)
	assert.Empty(t, plan.MissingIdentities)
}

func TestPrepareInstallDetectsCycles(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := newTestCollection(t, fs)
	addLibraryMod(t, fs, "ModA", map[string]string{"a.txt": "a"}, "ModB")
	addLibraryMod(t, fs, "ModB", map[string]string{"b.txt": "b"}, "ModC")
	addLibraryMod(t, fs, "ModC", map[string]string{"c.txt": "c"}, "ModA")
	refresh(t, c)

	_, err := c.PrepareInstall([]*modpack.Mod{mustFind(t, c, "ModA")})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.CyclicDependency))
	assert.Contains(t, err.Error(), "ModA ModB ModC ModA")
}

func TestPrepareInstallBatchOverlap(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := newTestCollection(t, fs)
	addLibraryMod(t, fs, "ModA", map[string]string{"config/settings.ini": "a"})
	addLibraryMod(t, fs, "ModB", map[string]string{"config/settings.ini": "b"})
	addLibraryMod(t, fs, "ModC", map[string]string{"config/other.ini": "c"})
	refresh(t, c)

	a, b, mc := mustFind(t, c, "ModA"), mustFind(t, c, "ModB"), mustFind(t, c, "ModC")
	plan, err := c.PrepareInstall([]*modpack.Mod{a, b, mc})
	require.NoError(t, err)
	assert.Equal(t, []string{"ModA"}, identities(plan.Overlaps))

	_, err = fs.Stat("/target/config/settings.ini")
	assert.Error(t, err, "planning writes nothing")
}

func TestPrepareInstallOverlapWithInstalled(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := newTestCollection(t, fs)
	addLibraryMod(t, fs, "ModA", map[string]string{"shared.txt": "a"})
	addLibraryMod(t, fs, "ModB", map[string]string{"shared.txt": "b", "own.txt": "b"})
	refresh(t, c)
	require.NoError(t, c.Install(mustFind(t, c, "ModA"), nil))

	plan, err := c.PrepareInstall([]*modpack.Mod{mustFind(t, c, "ModB")})
	require.NoError(t, err)
	assert.Equal(t, []string{"ModA"}, identities(plan.Overlaps))
}

func TestPrepareUninstallOrdersDependentsAndOverlappers(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := newTestCollection(t, fs)
	addLibraryMod(t, fs, "ModA", map[string]string{"a.txt": "a"})
	addLibraryMod(t, fs, "ModB", map[string]string{"b.txt": "b"}, "ModA")
	addLibraryMod(t, fs, "ModC", map[string]string{"a.txt": "c"})
	addLibraryMod(t, fs, "ModD", map[string]string{"a.txt": "d"})
	refresh(t, c)
	for _, ident := range []string{"ModA", "ModB", "ModC", "ModD"} {
		require.NoError(t, c.Install(mustFind(t, c, ident), nil))
	}

	a := mustFind(t, c, "ModA")
	plan, err := c.PrepareUninstall([]*modpack.Mod{a})
	require.NoError(t, err)

	require.Len(t, plan.ToUninstall, 4)
	assert.Equal(t, "ModA", plan.ToUninstall[3].Identity)
	assert.Less(t, indexOf(plan.ToUninstall, "ModD"), indexOf(plan.ToUninstall, "ModC"), "D captured C's file")
	assert.ElementsMatch(t, []string{"ModC", "ModD"}, identities(plan.Overlappers))
	assert.Equal(t, []string{"ModB"}, identities(plan.Dependents))

	// executing the plan in order restores the empty target
	for _, m := range plan.ToUninstall {
		require.NoError(t, c.Uninstall(m, nil))
	}
	entries, err := afero.ReadDir(fs, "/target")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPrepareUninstallIgnoresNotInstalled(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := newTestCollection(t, fs)
	addLibraryMod(t, fs, "ModA", map[string]string{"a.txt": "a"})
	refresh(t, c)

	plan, err := c.PrepareUninstall([]*modpack.Mod{mustFind(t, c, "ModA")})
	require.NoError(t, err)
	assert.Empty(t, plan.ToUninstall)
}

func TestPrepareUninstallDependencyCycle(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := newTestCollection(t, fs)
	addLibraryMod(t, fs, "ModA", map[string]string{"a.txt": "a"}, "ModB")
	addLibraryMod(t, fs, "ModB", map[string]string{"b.txt": "b"}, "ModA")
	refresh(t, c)
	// installed one by one, the cycle only shows when uninstalling
	require.NoError(t, c.Install(mustFind(t, c, "ModA"), nil))
	require.NoError(t, c.Install(mustFind(t, c, "ModB"), nil))

	_, err := c.PrepareUninstall([]*modpack.Mod{mustFind(t, c, "ModA")})
	assert.True(t, errs.Is(err, errs.CyclicDependency))
}

func TestPrepareUninstallOverlapConflict(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := newTestCollection(t, fs)
	addLibraryMod(t, fs, "ModA", map[string]string{"a.txt": "a"}, "ModB")
	addLibraryMod(t, fs, "ModB", map[string]string{"a.txt": "b"})
	refresh(t, c)
	// B overwrites the file of A, which depends on B
	require.NoError(t, c.Install(mustFind(t, c, "ModA"), nil))
	require.NoError(t, c.Install(mustFind(t, c, "ModB"), nil))

	_, err := c.PrepareUninstall([]*modpack.Mod{mustFind(t, c, "ModA")})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.CyclicDependency))
	assert.Contains(t, err.Error(), "ModB (overwrote ModA)")
	assert.NotContains(t, err.Error(), "dependency cycle")
}

func TestPrepareCleanUninstall(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := newTestCollection(t, fs)
	addLibraryMod(t, fs, "Base", map[string]string{"base.txt": "x"})
	addLibraryMod(t, fs, "Lib", map[string]string{"lib.txt": "x"}, "Base")
	addLibraryMod(t, fs, "Shared", map[string]string{"shared.txt": "x"})
	addLibraryMod(t, fs, "ModA", map[string]string{"a.txt": "a"}, "Lib", "Shared")
	addLibraryMod(t, fs, "ModD", map[string]string{"d.txt": "d"}, "Shared")
	refresh(t, c)
	for _, ident := range []string{"Base", "Lib", "Shared", "ModA", "ModD"} {
		require.NoError(t, c.Install(mustFind(t, c, ident), nil))
	}

	plan, err := c.PrepareCleanUninstall([]*modpack.Mod{mustFind(t, c, "ModA")})
	require.NoError(t, err)
	assert.Equal(t, []string{"Lib", "Base"}, identities(plan.ExtraDependencies), "Shared is still needed by ModD")
	assert.Equal(t, []string{"ModA", "Lib", "Base"}, identities(plan.ToUninstall))
	assert.Empty(t, plan.Dependents, "every dependent is in the removal set")
}

// chainLibrary writes n mods where mod i depends on mod j (j < i) when bit j
// of masks[i] is set.
func chainLibrary(t *testing.T, fs afero.Fs, masks []int) []string {
	var idents []string
	for i, mask := range masks {
		ident := fmt.Sprintf("Mod%02d", i)
		var deps []string
		for j := 0; j < i; j++ {
			if mask&(1<<j) != 0 {
				deps = append(deps, idents[j])
			}
		}
		addLibraryMod(t, fs, ident, map[string]string{ident + ".txt": ident}, deps...)
		idents = append(idents, ident)
	}
	return idents
}

func TestPrepareInstallDependencyClosure(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("plans contain the selection and dependencies come first", prop.ForAll(
		func(masks []int, pick int) bool {
			fs := afero.NewMemMapFs()
			c := newTestCollection(t, fs)
			idents := chainLibrary(t, fs, masks)
			refresh(t, c)

			var selection []*modpack.Mod
			for i, ident := range idents {
				if pick&(1<<i) != 0 {
					selection = append(selection, c.Find(ident))
				}
			}
			plan, err := c.PrepareInstall(selection)
			if err != nil || len(plan.MissingIdentities) != 0 {
				return false
			}
			for _, m := range selection {
				if indexOf(plan.ToInstall, m.Identity) < 0 {
					return false
				}
			}
			for i, m := range plan.ToInstall {
				for _, dep := range m.Dependencies {
					if at := indexOf(plan.ToInstall, dep); at < 0 || at > i {
						return false
					}
				}
			}
			return len(plan.ToInstall) == len(selection)+len(plan.ExtraDependencies)
		},
		gen.SliceOfN(6, gen.IntRange(0, 63)),
		gen.IntRange(0, 63),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestPrepareUninstallOrdering(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 25
	properties := gopter.NewProperties(parameters)

	properties.Property("dependents precede the mods they depend on", prop.ForAll(
		func(masks []int, pick int) bool {
			fs := afero.NewMemMapFs()
			c := newTestCollection(t, fs)
			idents := chainLibrary(t, fs, masks)
			refresh(t, c)
			for _, ident := range idents {
				if err := c.Install(c.Find(ident), nil); err != nil {
					return false
				}
			}

			var selection []*modpack.Mod
			for i, ident := range idents {
				if pick&(1<<i) != 0 {
					selection = append(selection, c.Find(ident))
				}
			}
			plan, err := c.PrepareUninstall(selection)
			if err != nil {
				return false
			}
			for i, m := range plan.ToUninstall {
				for _, other := range plan.ToUninstall[i+1:] {
					if other.DependsOn(m.Identity) {
						return false
					}
				}
			}
			for _, m := range selection {
				if indexOf(plan.ToUninstall, m.Identity) < 0 {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(5, gen.IntRange(0, 31)),
		gen.IntRange(0, 31),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
