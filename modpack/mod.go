// Package modpack implements the mod entity: its installable Source payload,
// the Backup captured when it is installed, and the reversible install,
// uninstall and discard operations against a target directory.
package modpack

import (
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// EntryKind tells files from directories.
type EntryKind int

const (
	KindFile EntryKind = iota
	KindDir
)

func (k EntryKind) String() string {
	if k == KindDir {
		return "dir"
	}
	return "file"
}

// Action is what an uninstall does with a backup entry.
type Action int

const (
	// ActionCopy restores a captured file that existed before the install.
	ActionCopy Action = iota
	// ActionDelete removes an entry the install added.
	ActionDelete
)

func (a Action) String() string {
	if a == ActionDelete {
		return "delete"
	}
	return "copy"
}

// SourceEntry is one item of the installable tree, relative to the target.
type SourceEntry struct {
	Path  string
	Kind  EntryKind
	Index int // archive index, -1 for directory sources and implied folders
}

// Source is the installable payload side of a mod.
type Source struct {
	Path        string
	IsArchive   bool
	ModTime     time.Time
	InstallRoot string
	Entries     []SourceEntry
}

// BackupEntry is one recorded path of a backup.
type BackupEntry struct {
	Path   string
	Kind   EntryKind
	Action Action
	Index  int // archive index of the captured copy, -1 otherwise
}

// Backup is the captured pre-install state of the target.
type Backup struct {
	Path      string
	IsArchive bool
	Root      string
	Entries   []BackupEntry
	Overlaps  []uint64
}

// Copies returns the entries restored on uninstall, in record order.
func (b *Backup) Copies() []BackupEntry { return b.filter(ActionCopy) }

// Deletes returns the entries removed on uninstall, in record order.
func (b *Backup) Deletes() []BackupEntry { return b.filter(ActionDelete) }

func (b *Backup) filter(a Action) []BackupEntry {
	var out []BackupEntry
	for _, e := range b.Entries {
		if e.Action == a {
			out = append(out, e)
		}
	}
	return out
}

// Picture is an optional thumbnail shipped with a mod.
type Picture struct {
	Name   string
	Data   []byte
	Format string
	Width  int
	Height int
}

// ProgressFunc receives done/total steps and returns false to request
// cancellation. Cancellation is only observed between entries.
type ProgressFunc func(done, total int) bool

func (p ProgressFunc) report(done, total int) bool {
	if p == nil {
		return true
	}
	return p(done, total)
}

// Owners answers questions about the other installed mods of the same
// target. The collection provides it; a nil Owners means no other mod is
// installed.
type Owners interface {
	// OwnersOf returns the hashes of installed mods other than self whose
	// installed files include entry.
	OwnersOf(entry string, self uint64) []uint64
	// CreatedByOther reports whether an installed mod other than self
	// created the directory entry during its own install.
	CreatedByOther(entry string, self uint64) bool
}

// Env is the deployment context an install or uninstall runs in.
type Env struct {
	Fs               afero.Fs
	TargetDir        string
	BackupDir        string
	TrashDir         string
	CompressionLevel int // negative selects directory backups
	Owners           Owners
}

// Mod is one installable modification package. It can hold a Source, a
// Backup, or both; one with neither is a ghost.
type Mod struct {
	fs  afero.Fs
	log *zap.SugaredLogger

	Identity     string
	CoreName     string
	DisplayName  string
	Version      Version
	Hash         uint64
	Category     string
	Description  string
	Picture      *Picture
	Dependencies []string

	source *Source
	backup *Backup
}

// New creates an empty mod bound to a filesystem and a log sink.
func New(fs afero.Fs, log *zap.SugaredLogger) *Mod {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Mod{fs: fs, log: log}
}

// Source returns the Source role, or nil.
func (m *Mod) Source() *Source { return m.source }

// Backup returns the Backup role, or nil.
func (m *Mod) Backup() *Backup { return m.backup }

// HasSource reports whether the mod has an installable payload.
func (m *Mod) HasSource() bool { return m.source != nil }

// HasBackup reports whether the mod is installed.
func (m *Mod) HasBackup() bool { return m.backup != nil }

// IsGhost reports whether the mod has neither role and must be purged.
func (m *Mod) IsGhost() bool { return m.source == nil && m.backup == nil }

// IsArchive reports whether the source is an archive rather than a folder.
func (m *Mod) IsArchive() bool { return m.source != nil && m.source.IsArchive }

// ClearSource drops the Source role.
func (m *Mod) ClearSource() { m.source = nil }

// ClearBackup drops the Backup role without touching any file.
func (m *Mod) ClearBackup() { m.backup = nil }

// DependsOn reports whether identity is among the declared dependencies.
func (m *Mod) DependsOn(identity string) bool {
	for _, d := range m.Dependencies {
		if d == identity {
			return true
		}
	}
	return false
}

// HasOverlapHash reports whether this mod's backup captured files that
// belonged to the mod with the given hash.
func (m *Mod) HasOverlapHash(hash uint64) bool {
	if m.backup == nil {
		return false
	}
	for _, h := range m.backup.Overlaps {
		if h == hash {
			return true
		}
	}
	return false
}

// InstalledFiles returns the file paths this mod owns in the target: its
// backup records when installed, otherwise its source files.
func (m *Mod) InstalledFiles() []string {
	var out []string
	switch {
	case m.backup != nil:
		for _, e := range m.backup.Entries {
			if e.Kind == KindFile {
				out = append(out, e.Path)
			}
		}
	case m.source != nil:
		for _, e := range m.source.Entries {
			if e.Kind == KindFile {
				out = append(out, e.Path)
			}
		}
	}
	return out
}

// CreatedDirs returns the directories recorded for deletion in the backup.
func (m *Mod) CreatedDirs() []string {
	if m.backup == nil {
		return nil
	}
	var out []string
	for _, e := range m.backup.Entries {
		if e.Kind == KindDir && e.Action == ActionDelete {
			out = append(out, e.Path)
		}
	}
	return out
}

func (m *Mod) setIdentity(ident string, hash uint64) {
	core, version := ParseIdentity(ident)
	m.Identity = ident
	m.CoreName = core
	m.DisplayName = DisplayName(core)
	m.Version = ParseVersion(version)
	m.Hash = hash
}
