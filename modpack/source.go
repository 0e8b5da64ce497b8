package modpack

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"sort"
	"strings"

	"mod-deployer/archive"
	"mod-deployer/errs"
	"mod-deployer/fsutil"
	"mod-deployer/pathutil"

	"github.com/spf13/afero"
)

// legacy archives may carry these loose files next to the mirror folder
const legacyReadme = "readme.txt"

var legacyPictureExts = []string{".png", ".jpg", ".jpeg", ".bmp", ".gif"}

// metadata is what a source parse learns besides the entry tree.
type metadata struct {
	category     string
	description  string
	picture      *Picture
	dependencies []string
}

// ParseSource reads path as this mod's installable payload. path may be a
// zip archive or a directory. On failure the mod is left untouched.
func (m *Mod) ParseSource(path string) error {
	info, err := m.fs.Stat(path)
	if err != nil {
		return errs.Parse("parse source", path, err)
	}

	var (
		src   *Source
		meta  metadata
		ident string
	)
	if info.IsDir() {
		ident = filepath.Base(path)
		src, meta, err = m.parseSourceDir(path)
	} else {
		ident = pathutil.StripExt(path)
		src, meta, err = m.parseSourceArchive(path, ident)
	}
	if err != nil {
		return err
	}
	src.Path = path
	src.ModTime = info.ModTime()

	m.setIdentity(ident, pathutil.Hash64(ident))
	m.Category = meta.category
	m.Description = meta.description
	m.Picture = meta.picture
	m.Dependencies = meta.dependencies
	m.source = src

	m.log.Debugw("Parsed source",
		"identity", m.Identity,
		"path", path,
		"entries", len(src.Entries),
		"archive", src.IsArchive,
	)
	return nil
}

func (m *Mod) parseSourceArchive(path, ident string) (*Source, metadata, error) {
	var meta metadata

	r, err := archive.Open(m.fs, path)
	if err != nil {
		return nil, meta, errs.Parse("parse source", path, err)
	}
	defer r.Close()

	src := &Source{IsArchive: true}

	if idx := r.LocateLast(SourceManifestName); idx != archive.NotFound {
		data, err := r.ReadAll(idx)
		if err != nil {
			return nil, meta, errs.Parse("parse source", path, err)
		}
		sm, err := DecodeSourceManifest(data)
		if err != nil {
			return nil, meta, errs.Parse("parse source manifest of", path, err)
		}
		src.InstallRoot = sm.InstallRoot
		meta.category = sm.Category
		meta.description = sm.Description
		meta.dependencies = sm.Dependencies
		if sm.Picture != "" {
			if pi := r.Locate(sm.Picture); pi != archive.NotFound {
				meta.picture = readPicture(r, pi)
			} else {
				m.log.Warnw("Manifest picture not found in archive", "path", path, "picture", sm.Picture)
			}
		}
	} else {
		// no manifest: the payload must sit in a folder named like the archive
		src.InstallRoot = ident
		if !hasMirrorFolder(r, ident) {
			return nil, meta, errs.Newf(errs.ParseError, "parse source", path,
				"no %s and no mirror folder %q", SourceManifestName, ident)
		}
		if idx := r.Locate(legacyReadme); idx != archive.NotFound {
			if data, err := r.ReadAll(idx); err == nil {
				meta.description = normalizeNewlines(string(data))
			}
		}
		if idx := locateLegacyPicture(r); idx != archive.NotFound {
			meta.picture = readPicture(r, idx)
		}
	}

	entries, err := archiveTree(r, src.InstallRoot)
	if err != nil {
		return nil, meta, errs.Parse("parse source", path, err)
	}
	src.Entries = entries
	return src, meta, nil
}

func hasMirrorFolder(r *archive.Reader, ident string) bool {
	for i := 0; i < r.Count(); i++ {
		p := r.Path(i)
		if (strings.EqualFold(p, ident) && r.IsDir(i)) || pathutil.IsUnder(p, ident) {
			return true
		}
	}
	return false
}

func locateLegacyPicture(r *archive.Reader) int {
	for i := 0; i < r.Count(); i++ {
		p := r.Path(i)
		if strings.Contains(p, "/") || r.IsDir(i) {
			continue
		}
		if !strings.EqualFold(pathutil.StripExt(p), "snapshot") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(p))
		for _, e := range legacyPictureExts {
			if ext == e {
				return i
			}
		}
	}
	return archive.NotFound
}

// archiveTree builds the entry list of every archive item below root,
// adding folders that are only implied by file paths.
func archiveTree(r *archive.Reader, root string) ([]SourceEntry, error) {
	seen := map[string]int{}
	var entries []SourceEntry
	add := func(e SourceEntry) {
		key := pathutil.EntryKey(e.Path)
		if i, ok := seen[key]; ok {
			if entries[i].Index < 0 {
				entries[i].Index = e.Index
			}
			return
		}
		seen[key] = len(entries)
		entries = append(entries, e)
	}

	for i := 0; i < r.Count(); i++ {
		p := r.Path(i)
		if !pathutil.IsUnder(p, root) {
			continue
		}
		if !pathutil.IsSafe(p) {
			return nil, fmt.Errorf("entry %q escapes the install root", p)
		}
		rel := pathutil.TrimRoot(p, root)
		for _, parent := range pathutil.Parents(rel) {
			add(SourceEntry{Path: parent, Kind: KindDir, Index: -1})
		}
		kind := KindFile
		if r.IsDir(i) {
			kind = KindDir
		}
		add(SourceEntry{Path: rel, Kind: kind, Index: i})
	}
	sortSourceEntries(entries)
	return entries, nil
}

func (m *Mod) parseSourceDir(path string) (*Source, metadata, error) {
	var meta metadata
	src := &Source{IsArchive: false}

	manifestPath := filepath.Join(path, SourceManifestName)
	if fsutil.IsFile(m.fs, manifestPath) {
		data, err := afero.ReadFile(m.fs, manifestPath)
		if err != nil {
			return nil, meta, errs.Parse("parse source manifest of", path, err)
		}
		sm, err := DecodeSourceManifest(data)
		if err != nil {
			return nil, meta, errs.Parse("parse source manifest of", path, err)
		}
		src.InstallRoot = sm.InstallRoot
		meta.category = sm.Category
		meta.description = sm.Description
		meta.dependencies = sm.Dependencies
		if sm.Picture != "" {
			if data, err := afero.ReadFile(m.fs, filepath.Join(path, pathutil.FromSlash(sm.Picture))); err == nil {
				meta.picture = decodePicture(filepath.Base(sm.Picture), data)
			}
		}
	}

	walked, err := fsutil.Walk(m.fs, path)
	if err != nil {
		return nil, meta, errs.Parse("list source directory", path, err)
	}
	for _, w := range walked {
		if w.Rel == SourceManifestName {
			continue
		}
		rel := w.Rel
		if src.InstallRoot != "" {
			if !pathutil.IsUnder(rel, src.InstallRoot) {
				continue
			}
			rel = pathutil.TrimRoot(rel, src.InstallRoot)
		}
		kind := KindFile
		if w.IsDir {
			kind = KindDir
		}
		src.Entries = append(src.Entries, SourceEntry{Path: rel, Kind: kind, Index: -1})
	}
	sortSourceEntries(src.Entries)
	return src, meta, nil
}

func readPicture(r *archive.Reader, idx int) *Picture {
	data, err := r.ReadAll(idx)
	if err != nil {
		return nil
	}
	return decodePicture(filepath.Base(r.Path(idx)), data)
}

// decodePicture keeps the raw bytes and records dimensions when the format
// is one the image package knows.
func decodePicture(name string, data []byte) *Picture {
	pic := &Picture{Name: name, Data: data}
	if cfg, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		pic.Format = format
		pic.Width = cfg.Width
		pic.Height = cfg.Height
	}
	return pic
}

func sortSourceEntries(entries []SourceEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return pathutil.CompareEntries(entries[i].Path, entries[j].Path) < 0
	})
}
