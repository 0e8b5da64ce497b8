package modpack

import (
	"os"
	"path/filepath"

	"mod-deployer/errs"
	"mod-deployer/pathutil"

	"github.com/spf13/afero"
)

// FootprintEntry is one predicted action of a hypothetical install.
type FootprintEntry struct {
	Path   string
	Kind   EntryKind
	Action Action // ActionCopy when the target already has the path
}

// Footprint is the simulated set of target changes a Source would make if
// installed now.
type Footprint []FootprintEntry

// Files returns the keys of the file entries, for path lookups.
func (fp Footprint) Files() map[string]struct{} {
	out := make(map[string]struct{}, len(fp))
	for _, e := range fp {
		if e.Kind == KindFile {
			out[pathutil.EntryKey(e.Path)] = struct{}{}
		}
	}
	return out
}

// Overlaps reports whether the two footprints share a file path.
func (fp Footprint) Overlaps(other Footprint) bool {
	files := other.Files()
	for _, e := range fp {
		if e.Kind != KindFile {
			continue
		}
		if _, ok := files[pathutil.EntryKey(e.Path)]; ok {
			return true
		}
	}
	return false
}

// InstallFootprint checks every Source entry against targetDir without
// writing anything.
func (m *Mod) InstallFootprint(fs afero.Fs, targetDir string) (Footprint, error) {
	if m.source == nil {
		return nil, errs.Newf(errs.NotFound, "compute footprint", m.Identity, "mod has no source")
	}
	fp := make(Footprint, 0, len(m.source.Entries))
	for _, e := range m.source.Entries {
		action := ActionDelete
		_, err := fs.Stat(filepath.Join(targetDir, pathutil.FromSlash(e.Path)))
		switch {
		case err == nil:
			action = ActionCopy
		case !os.IsNotExist(err):
			return nil, errs.IO("compute footprint", e.Path, err)
		}
		fp = append(fp, FootprintEntry{Path: e.Path, Kind: e.Kind, Action: action})
	}
	return fp, nil
}

// OverlapsWith reports whether any file of this mod's Source tree is also a
// file of fp. Directories never overlap.
func (m *Mod) OverlapsWith(fp Footprint) bool {
	if m.source == nil {
		return false
	}
	files := fp.Files()
	for _, e := range m.source.Entries {
		if e.Kind != KindFile {
			continue
		}
		if _, ok := files[pathutil.EntryKey(e.Path)]; ok {
			return true
		}
	}
	return false
}

// OverlapsInstalled reports whether fp shares a file with what this mod
// currently has installed.
func (m *Mod) OverlapsInstalled(fp Footprint) bool {
	if m.backup == nil {
		return false
	}
	files := fp.Files()
	for _, p := range m.InstalledFiles() {
		if _, ok := files[pathutil.EntryKey(p)]; ok {
			return true
		}
	}
	return false
}
