package collection

import (
	"fmt"
	"sort"
	"strings"

	"mod-deployer/modpack"
)

// SortMode selects the key mods are listed by.
type SortMode int

const (
	SortStatus SortMode = iota
	SortName
	SortVersion
	SortCategory
)

var sortModeNames = []string{"status", "name", "version", "category"}

func (s SortMode) String() string {
	if s < 0 || int(s) >= len(sortModeNames) {
		return fmt.Sprintf("SortMode(%d)", int(s))
	}
	return sortModeNames[s]
}

// ParseSortMode reads a sort mode name.
func ParseSortMode(s string) (SortMode, error) {
	for i, name := range sortModeNames {
		if strings.EqualFold(s, name) {
			return SortMode(i), nil
		}
	}
	return SortStatus, fmt.Errorf("unknown sort mode %q (want one of %s)", s, strings.Join(sortModeNames, ", "))
}

// SetSortMode sorts by mode. Selecting the current mode again flips the
// direction instead.
func (c *Collection) SetSortMode(mode SortMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if mode == c.sortMode {
		c.reverse = !c.reverse
	} else {
		c.sortMode = mode
		c.reverse = false
	}
	c.sort()
}

// SortMode returns the current sort key and direction.
func (c *Collection) SortMode() (SortMode, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sortMode, c.reverse
}

// Sort reorders the mods with the current sort mode.
func (c *Collection) Sort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sort()
}

func (c *Collection) sort() {
	mode, reverse := c.sortMode, c.reverse
	sort.SliceStable(c.units, func(i, j int) bool {
		r := compareMods(mode, c.units[i], c.units[j])
		if reverse {
			return r > 0
		}
		return r < 0
	})
}

func compareMods(mode SortMode, a, b *modpack.Mod) int {
	switch mode {
	case SortStatus:
		if r := statusRank(a) - statusRank(b); r != 0 {
			return r
		}
	case SortVersion:
		if r := a.Version.Compare(b.Version); r != 0 {
			return r
		}
	case SortCategory:
		if r := strings.Compare(strings.ToLower(a.Category), strings.ToLower(b.Category)); r != 0 {
			return r
		}
	}
	return compareNames(a, b)
}

// statusRank lists installed mods first, then backups without source, then
// mods available for install.
func statusRank(m *modpack.Mod) int {
	switch {
	case m.HasBackup() && m.HasSource():
		return 0
	case m.HasBackup():
		return 1
	}
	return 2
}

// compareNames is case-insensitive, then shorter first, then archives
// before directories.
func compareNames(a, b *modpack.Mod) int {
	if r := strings.Compare(strings.ToLower(a.Identity), strings.ToLower(b.Identity)); r != 0 {
		return r
	}
	if r := len(a.Identity) - len(b.Identity); r != 0 {
		return r
	}
	switch {
	case a.IsArchive() && !b.IsArchive():
		return -1
	case !a.IsArchive() && b.IsArchive():
		return 1
	}
	return strings.Compare(a.Identity, b.Identity)
}
