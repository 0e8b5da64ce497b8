package modpack

import (
	"path/filepath"

	"mod-deployer/archive"
	"mod-deployer/errs"
	"mod-deployer/fsutil"
	"mod-deployer/pathutil"

	"github.com/spf13/afero"
)

// ParseBackup reads path as this mod's Backup. path may be a backup archive
// or a backup directory. A mod without Source takes its identity from the
// backup manifest; a mod with Source must match the recorded hash.
func (m *Mod) ParseBackup(path string) error {
	bk, bm, err := readBackup(m.fs, path)
	if err != nil {
		return err
	}
	hash, err := pathutil.ParseHash(bm.Hash)
	if err != nil {
		return errs.Parse("parse backup manifest of", path, err)
	}
	if m.source != nil && hash != m.Hash {
		return errs.Newf(errs.ParseError, "parse backup", path,
			"hash %s does not match source %s", bm.Hash, pathutil.FormatHash(m.Hash))
	}
	if m.source == nil {
		m.setIdentity(bm.Identity, hash)
		m.Category = bm.Category
		m.Dependencies = uniqueStrings(bm.Dependencies)
	}
	m.backup = bk
	m.log.Debugw("Parsed backup",
		"identity", m.Identity,
		"path", path,
		"copies", len(bk.Copies()),
		"deletes", len(bk.Deletes()),
	)
	return nil
}

// BackupHash reads only the hash recorded in the backup at path.
func BackupHash(fs afero.Fs, path string) (uint64, error) {
	_, bm, err := readBackup(fs, path)
	if err != nil {
		return 0, err
	}
	h, err := pathutil.ParseHash(bm.Hash)
	if err != nil {
		return 0, errs.Parse("parse backup manifest of", path, err)
	}
	return h, nil
}

func readBackup(fs afero.Fs, path string) (*Backup, *BackupManifest, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, nil, errs.Parse("parse backup", path, err)
	}
	if info.IsDir() {
		return readBackupDir(fs, path)
	}
	return readBackupArchive(fs, path)
}

func readBackupDir(fs afero.Fs, path string) (*Backup, *BackupManifest, error) {
	data, err := afero.ReadFile(fs, filepath.Join(path, BackupManifestName))
	if err != nil {
		return nil, nil, errs.Parse("parse backup", path, err)
	}
	bm, err := DecodeBackupManifest(data)
	if err != nil {
		return nil, nil, errs.Parse("parse backup manifest of", path, err)
	}
	bk := backupFromManifest(bm, path, false)
	for _, e := range bk.Entries {
		if e.Action != ActionCopy || e.Kind != KindFile {
			continue
		}
		captured := filepath.Join(path, pathutil.FromSlash(pathutil.Join(bk.Root, e.Path)))
		if !fsutil.IsFile(fs, captured) {
			return nil, nil, errs.Newf(errs.ParseError, "parse backup", path, "captured file %s is missing", e.Path)
		}
	}
	return bk, bm, nil
}

func readBackupArchive(fs afero.Fs, path string) (*Backup, *BackupManifest, error) {
	r, err := archive.Open(fs, path)
	if err != nil {
		return nil, nil, errs.Parse("parse backup", path, err)
	}
	defer r.Close()

	idx := r.LocateLast(BackupManifestName)
	if idx == archive.NotFound {
		return nil, nil, errs.Newf(errs.ParseError, "parse backup", path, "no %s entry", BackupManifestName)
	}
	data, err := r.ReadAll(idx)
	if err != nil {
		return nil, nil, errs.Parse("parse backup", path, err)
	}
	bm, err := DecodeBackupManifest(data)
	if err != nil {
		return nil, nil, errs.Parse("parse backup manifest of", path, err)
	}
	bk := backupFromManifest(bm, path, true)
	for i, e := range bk.Entries {
		if e.Action != ActionCopy || e.Kind != KindFile {
			continue
		}
		ci := r.Locate(pathutil.Join(bk.Root, e.Path))
		if ci == archive.NotFound {
			return nil, nil, errs.Newf(errs.ParseError, "parse backup", path, "captured file %s is missing", e.Path)
		}
		bk.Entries[i].Index = ci
	}
	return bk, bm, nil
}

func backupFromManifest(bm *BackupManifest, path string, isArchive bool) *Backup {
	bk := &Backup{Path: path, IsArchive: isArchive, Root: pathutil.Clean(bm.Root)}
	for _, e := range bm.Copy {
		bk.Entries = append(bk.Entries, BackupEntry{Path: pathutil.Clean(e.Path), Kind: kindOf(e.Dir), Action: ActionCopy, Index: -1})
	}
	for _, e := range bm.Delete {
		bk.Entries = append(bk.Entries, BackupEntry{Path: pathutil.Clean(e.Path), Kind: kindOf(e.Dir), Action: ActionDelete, Index: -1})
	}
	for _, h := range bm.Overlaps {
		if v, err := pathutil.ParseHash(h); err == nil {
			bk.Overlaps = append(bk.Overlaps, v)
		}
	}
	return bk
}

func kindOf(dir bool) EntryKind {
	if dir {
		return KindDir
	}
	return KindFile
}

func (m *Mod) manifestFor(bk *Backup) *BackupManifest {
	bm := &BackupManifest{
		Identity:     m.Identity,
		Hash:         pathutil.FormatHash(m.Hash),
		Root:         bk.Root,
		Category:     m.Category,
		Dependencies: m.Dependencies,
	}
	for _, e := range bk.Entries {
		me := ManifestEntry{Path: e.Path, Dir: e.Kind == KindDir}
		if e.Action == ActionCopy {
			bm.Copy = append(bm.Copy, me)
		} else {
			bm.Delete = append(bm.Delete, me)
		}
	}
	for _, h := range bk.Overlaps {
		bm.Overlaps = append(bm.Overlaps, pathutil.FormatHash(h))
	}
	return bm
}

// BackupPath returns where the backup of a mod with the given identity is
// written: an archive, or a folder when level is negative.
func BackupPath(backupDir, identity string, level int) string {
	if level < 0 {
		return filepath.Join(backupDir, identity)
	}
	return filepath.Join(backupDir, identity+BackupExt)
}

// payloadWriter receives captured files while a backup is taken.
type payloadWriter interface {
	capture(src, rel string) (int, error)
	finish(manifest []byte) error
	abandon()
}

type archivePayload struct {
	fs    afero.Fs
	w     *archive.Writer
	level int
	count int
}

func (p *archivePayload) capture(src, rel string) (int, error) {
	if err := p.w.AppendFile(p.fs, src, pathutil.Join(BackupRoot, rel), p.level); err != nil {
		return -1, err
	}
	p.count++
	return p.count - 1, nil
}

func (p *archivePayload) finish(manifest []byte) error {
	if err := p.w.AppendBytes(manifest, BackupManifestName, p.level); err != nil {
		p.w.Abandon(p.fs)
		return err
	}
	return p.w.Close()
}

func (p *archivePayload) abandon() { p.w.Abandon(p.fs) }

type dirPayload struct {
	fs  afero.Fs
	dir string
}

func (p *dirPayload) capture(src, rel string) (int, error) {
	dst := filepath.Join(p.dir, BackupRoot, pathutil.FromSlash(rel))
	if err := fsutil.CopyFile(p.fs, src, dst); err != nil {
		return -1, errs.IO("capture "+src+" to", dst, err)
	}
	return -1, nil
}

func (p *dirPayload) finish(manifest []byte) error {
	dst := filepath.Join(p.dir, BackupManifestName)
	if err := afero.WriteFile(p.fs, dst, manifest, 0644); err != nil {
		return errs.IO("write backup manifest", dst, err)
	}
	return nil
}

func (p *dirPayload) abandon() { _ = p.fs.RemoveAll(p.dir) }

func newPayloadWriter(fs afero.Fs, path string, level int) (payloadWriter, error) {
	if fsutil.Exists(fs, path) {
		return nil, errs.Newf(errs.IOError, "create backup", path, "a backup already exists")
	}
	if level < 0 {
		if err := fs.MkdirAll(filepath.Join(path, BackupRoot), 0755); err != nil {
			return nil, errs.IO("create backup", path, err)
		}
		return &dirPayload{fs: fs, dir: path}, nil
	}
	w, err := archive.Create(fs, path)
	if err != nil {
		return nil, err
	}
	return &archivePayload{fs: fs, w: w, level: level}, nil
}

// payloadReader gives back captured files while restoring.
type payloadReader struct {
	fs  afero.Fs
	bk  *Backup
	zip *archive.Reader
}

func openPayload(fs afero.Fs, bk *Backup) (*payloadReader, error) {
	pr := &payloadReader{fs: fs, bk: bk}
	if bk.IsArchive {
		r, err := archive.Open(fs, bk.Path)
		if err != nil {
			return nil, err
		}
		pr.zip = r
	}
	return pr, nil
}

func (pr *payloadReader) restore(e BackupEntry, dest string) error {
	if pr.zip != nil {
		idx := e.Index
		if idx < 0 {
			idx = pr.zip.Locate(pathutil.Join(pr.bk.Root, e.Path))
		}
		return pr.zip.Extract(idx, pr.fs, dest)
	}
	src := filepath.Join(pr.bk.Path, pr.bk.Root, pathutil.FromSlash(e.Path))
	if err := fsutil.CopyFile(pr.fs, src, dest); err != nil {
		return errs.IO("restore "+src+" to", dest, err)
	}
	return nil
}

func (pr *payloadReader) close() {
	if pr.zip != nil {
		pr.zip.Close()
	}
}
