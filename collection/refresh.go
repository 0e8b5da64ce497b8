package collection

import (
	"os"
	"path/filepath"

	"mod-deployer/errs"
	"mod-deployer/fsutil"
	"mod-deployer/modpack"
	"mod-deployer/pathutil"
)

// RefreshLibrary resyncs the collection with the filesystem and reports
// whether anything changed. The first call on an empty collection also
// scans the backup directory; later calls only rescan the library.
func (c *Collection) RefreshLibrary() (bool, error) {
	if c.Locked() {
		return false, errs.Newf(errs.Locked, "refresh library", c.opts.LibraryDir, "an operation is running")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := false
	if len(c.units) == 0 {
		added, err := c.scanBackups()
		if err != nil {
			return false, err
		}
		changed = added > 0
	}

	libChanged, err := c.scanLibrary()
	if err != nil {
		return changed, err
	}
	if libChanged {
		changed = true
	}
	if c.purgeGhosts() {
		changed = true
	}
	if changed {
		c.sort()
		c.log.Infow("Library refreshed", "mods", len(c.units), "installed", len(c.installed()))
	}
	return changed, nil
}

// scanBackups adds a Backup-only mod for every readable backup payload.
func (c *Collection) scanBackups() (int, error) {
	infos, err := fsutil.ListDir(c.fs, c.opts.BackupDir, []string{modpack.BackupExt}, true)
	if err != nil {
		return 0, errs.Access("scan backups", c.opts.BackupDir, err)
	}
	added := 0
	for _, info := range infos {
		path := filepath.Join(c.opts.BackupDir, info.Name())
		if info.IsDir() && !fsutil.IsFile(c.fs, filepath.Join(path, modpack.BackupManifestName)) {
			continue
		}
		m := modpack.New(c.fs, c.log)
		if err := m.ParseBackup(path); err != nil {
			c.log.Warnw("Skipping unreadable backup", "path", path, "error", err)
			continue
		}
		if dup := c.installedHash(m.Hash); dup != nil {
			c.log.Warnw("Skipping duplicate backup",
				"path", path,
				"identity", m.Identity,
				"kept", dup.Backup().Path,
			)
			continue
		}
		c.units = append(c.units, m)
		added++
	}
	return added, nil
}

func (c *Collection) installedHash(hash uint64) *modpack.Mod {
	for _, m := range c.units {
		if m.HasBackup() && m.Hash == hash {
			return m
		}
	}
	return nil
}

// scanLibrary drops vanished sources, re-parses modified ones and attaches
// or creates mods for new library items.
func (c *Collection) scanLibrary() (bool, error) {
	infos, err := fsutil.ListDir(c.fs, c.opts.LibraryDir, []string{modpack.ArchiveExt}, c.opts.DevMode)
	if err != nil {
		return false, errs.Access("scan library", c.opts.LibraryDir, err)
	}
	present := make(map[string]os.FileInfo, len(infos))
	for _, info := range infos {
		present[filepath.Join(c.opts.LibraryDir, info.Name())] = info
	}

	changed := false
	claimed := map[string]bool{}
	for _, m := range c.units {
		src := m.Source()
		if src == nil {
			continue
		}
		info, ok := present[src.Path]
		if !ok {
			c.log.Infow("Source vanished from library", "identity", m.Identity, "path", src.Path)
			m.ClearSource()
			changed = true
			continue
		}
		claimed[src.Path] = true
		if info.ModTime().Equal(src.ModTime) {
			continue
		}
		if err := m.ParseSource(src.Path); err != nil {
			c.log.Warnw("Modified source no longer parses", "path", src.Path, "error", err)
			m.ClearSource()
		}
		changed = true
	}

	for _, info := range infos {
		path := filepath.Join(c.opts.LibraryDir, info.Name())
		if claimed[path] {
			continue
		}
		ident := info.Name()
		if !info.IsDir() {
			ident = pathutil.StripExt(ident)
		}
		if m := c.backupOnly(pathutil.Hash64(ident)); m != nil {
			if err := m.ParseSource(path); err != nil {
				c.log.Warnw("Skipping unreadable source", "path", path, "error", err)
				continue
			}
			c.log.Debugw("Source attached to backup", "identity", m.Identity, "path", path)
			changed = true
			continue
		}
		m := modpack.New(c.fs, c.log)
		if err := m.ParseSource(path); err != nil {
			c.log.Warnw("Skipping unreadable source", "path", path, "error", err)
			continue
		}
		if other := c.find(m.Identity, true); other != nil {
			c.log.Warnw("Two library items share an identity", "identity", m.Identity, "path", path, "other", other.Source().Path)
		}
		c.units = append(c.units, m)
		changed = true
	}
	return changed, nil
}

func (c *Collection) backupOnly(hash uint64) *modpack.Mod {
	for _, m := range c.units {
		if !m.HasSource() && m.HasBackup() && m.Hash == hash {
			return m
		}
	}
	return nil
}
