package modpack

import (
	"errors"
	"os"
	"path/filepath"

	"mod-deployer/archive"
	"mod-deployer/errs"
	"mod-deployer/fsutil"
	"mod-deployer/pathutil"
)

// Install deploys the Source into env.TargetDir. It first captures a Backup
// of everything the source touches, then applies the source. Progress runs
// over twice the entry count, the backup phase taking the first half. If
// either phase fails or is cancelled, the partial change is undone before
// Install returns, so the mod is never left half installed.
func (m *Mod) Install(env Env, progress ProgressFunc) error {
	if m.source == nil {
		return errs.Newf(errs.NotFound, "install", m.Identity, "mod has no source")
	}
	if m.backup != nil {
		return errs.Newf(errs.IOError, "install", m.Identity, "mod is already installed")
	}
	if !fsutil.IsDir(env.Fs, env.TargetDir) {
		return errs.Newf(errs.AccessError, "install", env.TargetDir, "target directory is missing")
	}
	// the payload may have changed since the last scan
	if err := m.ParseSource(m.source.Path); err != nil {
		return err
	}

	log := m.log.With("identity", m.Identity, "target", env.TargetDir)
	log.Infow("Installing mod", "entries", len(m.source.Entries))

	total := 2 * len(m.source.Entries)
	bk, err := m.captureBackup(env, progress, total)
	if err != nil {
		log.Warnw("Backup phase failed", "error", err)
		return err
	}

	if err := m.apply(env, progress, total); err != nil {
		log.Warnw("Apply phase failed, reverting", "error", err)
		if uerr := m.undo(env, bk); uerr != nil {
			log.Errorw("Failed to revert partial install", "error", uerr)
			return errors.Join(err, uerr)
		}
		return err
	}

	m.backup = bk
	log.Infow("Mod installed", "backup", bk.Path, "overlaps", len(bk.Overlaps))
	return nil
}

// captureBackup records, for every source entry, whether the target already
// has it (captured and restored later) or not (deleted later).
func (m *Mod) captureBackup(env Env, progress ProgressFunc, total int) (*Backup, error) {
	path := BackupPath(env.BackupDir, m.Identity, env.CompressionLevel)
	pw, err := newPayloadWriter(env.Fs, path, env.CompressionLevel)
	if err != nil {
		return nil, err
	}
	bk := &Backup{Path: path, IsArchive: env.CompressionLevel >= 0, Root: BackupRoot}
	overlaps := map[uint64]bool{}

	fail := func(err error) (*Backup, error) {
		pw.abandon()
		return nil, err
	}

	for i, e := range m.source.Entries {
		dest := filepath.Join(env.TargetDir, pathutil.FromSlash(e.Path))
		info, statErr := env.Fs.Stat(dest)
		exists := statErr == nil

		switch e.Kind {
		case KindDir:
			switch {
			case !exists:
				bk.Entries = append(bk.Entries, BackupEntry{Path: e.Path, Kind: KindDir, Action: ActionDelete, Index: -1})
			case !info.IsDir():
				return fail(errs.Newf(errs.IOError, "backup", dest, "a file is in the way of folder %s", e.Path))
			case env.Owners != nil && env.Owners.CreatedByOther(e.Path, m.Hash):
				// shared folder: whichever uninstall finds it empty removes it
				bk.Entries = append(bk.Entries, BackupEntry{Path: e.Path, Kind: KindDir, Action: ActionDelete, Index: -1})
			}
		case KindFile:
			switch {
			case !exists:
				bk.Entries = append(bk.Entries, BackupEntry{Path: e.Path, Kind: KindFile, Action: ActionDelete, Index: -1})
			case info.IsDir():
				return fail(errs.Newf(errs.IOError, "backup", dest, "a folder is in the way of file %s", e.Path))
			default:
				idx, err := pw.capture(dest, e.Path)
				if err != nil {
					return fail(err)
				}
				bk.Entries = append(bk.Entries, BackupEntry{Path: e.Path, Kind: KindFile, Action: ActionCopy, Index: idx})
				if env.Owners != nil {
					for _, h := range env.Owners.OwnersOf(e.Path, m.Hash) {
						if !overlaps[h] {
							overlaps[h] = true
							bk.Overlaps = append(bk.Overlaps, h)
						}
					}
				}
			}
		}

		if !progress.report(i+1, total) {
			return fail(errs.Abort("backup", m.Identity))
		}
	}

	data, err := m.manifestFor(bk).Encode()
	if err != nil {
		return fail(errs.IO("encode backup manifest", path, err))
	}
	if err := pw.finish(data); err != nil {
		pw.abandon()
		return nil, err
	}
	return bk, nil
}

// apply copies or extracts every source entry into the target.
func (m *Mod) apply(env Env, progress ProgressFunc, total int) error {
	src := m.source
	var zr *archive.Reader
	if src.IsArchive {
		r, err := archive.Open(env.Fs, src.Path)
		if err != nil {
			return err
		}
		defer r.Close()
		zr = r
	}

	offset := len(src.Entries)
	for i, e := range src.Entries {
		dest := filepath.Join(env.TargetDir, pathutil.FromSlash(e.Path))
		switch {
		case e.Kind == KindDir:
			if err := env.Fs.MkdirAll(dest, 0755); err != nil {
				return errs.IO("create directory", dest, err)
			}
		case zr != nil:
			if err := zr.Extract(e.Index, env.Fs, dest); err != nil {
				return err
			}
		default:
			from := m.sourceFile(e)
			if err := fsutil.CopyFile(env.Fs, from, dest); err != nil {
				return errs.IO("copy "+from+" to", dest, err)
			}
		}
		if !progress.report(offset+i+1, total) {
			return errs.Abort("install", m.Identity)
		}
	}
	return nil
}

// sourceFile resolves a directory source entry to its file on disk.
func (m *Mod) sourceFile(e SourceEntry) string {
	rel := e.Path
	if m.source.InstallRoot != "" {
		rel = pathutil.Join(m.source.InstallRoot, rel)
	}
	return filepath.Join(m.source.Path, pathutil.FromSlash(rel))
}

// undo reverts a partial install with the backup just captured and removes
// that backup.
func (m *Mod) undo(env Env, bk *Backup) error {
	if err := m.revert(env, bk, nil); err != nil {
		return err
	}
	return removePayload(env, bk)
}

// revert restores captured files then deletes added entries, walking delete
// records backward so folders are emptied before they are removed.
func (m *Mod) revert(env Env, bk *Backup, progress ProgressFunc) error {
	pr, err := openPayload(env.Fs, bk)
	if err != nil {
		return err
	}
	defer pr.close()

	copies, deletes := bk.Copies(), bk.Deletes()
	total := len(copies) + len(deletes)
	done := 0

	for _, e := range copies {
		if e.Kind == KindFile {
			dest := filepath.Join(env.TargetDir, pathutil.FromSlash(e.Path))
			if err := pr.restore(e, dest); err != nil {
				return err
			}
		}
		done++
		if !progress.report(done, total) {
			return errs.Abort("restore", m.Identity)
		}
	}

	for i := len(deletes) - 1; i >= 0; i-- {
		e := deletes[i]
		dest := filepath.Join(env.TargetDir, pathutil.FromSlash(e.Path))
		if e.Kind == KindDir {
			// another mod may still have files in there
			if fsutil.IsEmptyDir(env.Fs, dest) {
				if err := env.Fs.Remove(dest); err != nil {
					return errs.IO("remove directory", dest, err)
				}
			}
		} else if err := env.Fs.Remove(dest); err != nil && !os.IsNotExist(err) {
			return errs.IO("remove file", dest, err)
		}
		done++
		if !progress.report(done, total) {
			return errs.Abort("restore", m.Identity)
		}
	}
	return nil
}

func removePayload(env Env, bk *Backup) error {
	var err error
	if bk.IsArchive {
		err = env.Fs.Remove(bk.Path)
	} else {
		err = env.Fs.RemoveAll(bk.Path)
	}
	if err != nil && !os.IsNotExist(err) {
		return errs.IO("delete backup", bk.Path, err)
	}
	return nil
}

// Uninstall restores the target to its pre-install state from the Backup,
// deletes the backup payload and clears the Backup role. An aborted
// uninstall keeps the Backup so it can be run again.
func (m *Mod) Uninstall(env Env, progress ProgressFunc) error {
	if m.backup == nil {
		return errs.Newf(errs.NotFound, "uninstall", m.Identity, "mod has no backup")
	}
	bk, _, err := readBackup(env.Fs, m.backup.Path)
	if err != nil {
		return err
	}
	m.backup = bk

	log := m.log.With("identity", m.Identity, "target", env.TargetDir)
	log.Infow("Uninstalling mod", "copies", len(bk.Copies()), "deletes", len(bk.Deletes()))

	if err := m.revert(env, bk, progress); err != nil {
		log.Warnw("Restore failed", "error", err)
		return err
	}
	if err := removePayload(env, bk); err != nil {
		log.Warnw("Failed to delete backup payload", "error", err)
		return err
	}
	m.backup = nil
	log.Infow("Mod uninstalled")
	return nil
}

// DiscardBackup moves the backup payload to env.TrashDir without restoring
// anything, then clears the Backup role. A failed move is logged and the
// role is cleared anyway.
func (m *Mod) DiscardBackup(env Env) error {
	if m.backup == nil {
		return errs.Newf(errs.NotFound, "discard backup", m.Identity, "mod has no backup")
	}
	path := m.backup.Path
	m.backup = nil

	trashed, err := fsutil.MoveToTrash(env.Fs, path, env.TrashDir)
	if err != nil {
		m.log.Warnw("Failed to move backup to trash", "identity", m.Identity, "path", path, "error", err)
		return nil
	}
	m.log.Infow("Backup discarded", "identity", m.Identity, "trashed_to", trashed)
	return nil
}
