// Package collection owns the set of mods deployed to one target directory.
// It keeps that set in sync with the library and backup directories and
// computes dependency and overlap aware install and uninstall plans.
package collection

import (
	"path/filepath"
	"sync"
	"sync/atomic"

	"mod-deployer/errs"
	"mod-deployer/fsutil"
	"mod-deployer/modpack"
	"mod-deployer/pathutil"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Options locates the directories of a collection.
type Options struct {
	LibraryDir       string
	BackupDir        string
	TargetDir        string
	TrashDir         string
	CompressionLevel int // negative selects directory backups
	DevMode          bool
	SortMode         SortMode
}

// Collection is the ordered set of mods for one target.
type Collection struct {
	opts Options
	fs   afero.Fs
	log  *zap.SugaredLogger

	mu       sync.RWMutex
	units    []*modpack.Mod
	sortMode SortMode
	reverse  bool

	locked atomic.Bool
}

// New creates an empty collection. Call RefreshLibrary to populate it.
func New(opts Options, fs afero.Fs, log *zap.SugaredLogger) *Collection {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if opts.TrashDir == "" {
		opts.TrashDir = filepath.Join(opts.BackupDir, ".trash")
	}
	return &Collection{
		opts:     opts,
		fs:       fs,
		log:      log.With("target", opts.TargetDir),
		sortMode: opts.SortMode,
	}
}

// Options returns the collection's directories.
func (c *Collection) Options() Options { return c.opts }

// Lock marks the collection busy. Structural edits are refused until Unlock.
func (c *Collection) Lock() { c.locked.Store(true) }

// Unlock clears the busy mark.
func (c *Collection) Unlock() { c.locked.Store(false) }

// Locked reports whether an operation queue is working on the collection.
func (c *Collection) Locked() bool { return c.locked.Load() }

// Units returns a snapshot of the mods in display order.
func (c *Collection) Units() []*modpack.Mod {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*modpack.Mod, len(c.units))
	copy(out, c.units)
	return out
}

// Len returns the number of mods.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.units)
}

// Find returns the mod with the given identity, preferring one that has a
// Source. It returns nil when none matches.
func (c *Collection) Find(identity string) *modpack.Mod {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.find(identity, false)
}

func (c *Collection) find(identity string, needSource bool) *modpack.Mod {
	var fallback *modpack.Mod
	for _, m := range c.units {
		if m.Identity != identity {
			continue
		}
		if m.HasSource() {
			return m
		}
		if fallback == nil {
			fallback = m
		}
	}
	if needSource {
		return nil
	}
	return fallback
}

// FindHash returns the mod with the given hash, preferring an installed one.
func (c *Collection) FindHash(hash uint64) *modpack.Mod {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var fallback *modpack.Mod
	for _, m := range c.units {
		if m.Hash != hash {
			continue
		}
		if m.HasBackup() {
			return m
		}
		if fallback == nil {
			fallback = m
		}
	}
	return fallback
}

// Installed returns the mods that currently have a Backup.
func (c *Collection) Installed() []*modpack.Mod {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.installed()
}

func (c *Collection) installed() []*modpack.Mod {
	var out []*modpack.Mod
	for _, m := range c.units {
		if m.HasBackup() {
			out = append(out, m)
		}
	}
	return out
}

// findInstalled returns the installed mod with the given identity.
func (c *Collection) findInstalled(identity string) *modpack.Mod {
	for _, m := range c.units {
		if m.HasBackup() && m.Identity == identity {
			return m
		}
	}
	return nil
}

// OwnersOf returns the hashes of installed mods other than self that own
// entry in the target.
func (c *Collection) OwnersOf(entry string, self uint64) []uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key := pathutil.EntryKey(entry)
	var out []uint64
	for _, m := range c.units {
		if !m.HasBackup() || m.Hash == self {
			continue
		}
		for _, p := range m.InstalledFiles() {
			if pathutil.EntryKey(p) == key {
				out = append(out, m.Hash)
				break
			}
		}
	}
	return out
}

// CreatedByOther reports whether an installed mod other than self created
// the directory entry.
func (c *Collection) CreatedByOther(entry string, self uint64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key := pathutil.EntryKey(entry)
	for _, m := range c.units {
		if !m.HasBackup() || m.Hash == self {
			continue
		}
		for _, d := range m.CreatedDirs() {
			if pathutil.EntryKey(d) == key {
				return true
			}
		}
	}
	return false
}

// Env returns the deployment context handed to mod operations.
func (c *Collection) Env() modpack.Env {
	return modpack.Env{
		Fs:               c.fs,
		TargetDir:        c.opts.TargetDir,
		BackupDir:        c.opts.BackupDir,
		TrashDir:         c.opts.TrashDir,
		CompressionLevel: c.opts.CompressionLevel,
		Owners:           c,
	}
}

// CheckAccess verifies the library is readable and the target and backup
// roots are writable.
func (c *Collection) CheckAccess() error {
	if !fsutil.IsDir(c.fs, c.opts.LibraryDir) {
		return errs.Newf(errs.AccessError, "check library", c.opts.LibraryDir, "directory is missing")
	}
	if err := fsutil.CheckWritable(c.fs, c.opts.TargetDir); err != nil {
		return errs.Access("check target", c.opts.TargetDir, err)
	}
	if err := fsutil.CheckWritable(c.fs, c.opts.BackupDir); err != nil {
		return errs.Access("check backups", c.opts.BackupDir, err)
	}
	return nil
}

// Install deploys m into the target.
func (c *Collection) Install(m *modpack.Mod, progress modpack.ProgressFunc) error {
	if err := c.CheckAccess(); err != nil {
		return err
	}
	return m.Install(c.Env(), progress)
}

// Uninstall reverts m from the target.
func (c *Collection) Uninstall(m *modpack.Mod, progress modpack.ProgressFunc) error {
	if err := c.CheckAccess(); err != nil {
		return err
	}
	return m.Uninstall(c.Env(), progress)
}

// Discard throws m's backup away without restoring the target.
func (c *Collection) Discard(m *modpack.Mod) error {
	if err := c.CheckAccess(); err != nil {
		return err
	}
	return m.DiscardBackup(c.Env())
}

// PurgeGhosts removes every mod with neither Source nor Backup. It does
// nothing while the collection is locked.
func (c *Collection) PurgeGhosts() bool {
	if c.Locked() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purgeGhosts()
}

func (c *Collection) purgeGhosts() bool {
	kept := c.units[:0]
	changed := false
	for _, m := range c.units {
		if m.IsGhost() {
			c.log.Debugw("Removing ghost mod", "identity", m.Identity)
			changed = true
			continue
		}
		kept = append(kept, m)
	}
	for i := len(kept); i < len(c.units); i++ {
		c.units[i] = nil
	}
	c.units = kept
	return changed
}
