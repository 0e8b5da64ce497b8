package collection

import (
	"fmt"

	"mod-deployer/errs"
	"mod-deployer/modpack"
)

// InstallPlan is the ordered result of PrepareInstall.
type InstallPlan struct {
	// ToInstall lists dependencies before their dependents.
	ToInstall []*modpack.Mod
	// Overlaps are installed or earlier planned mods sharing a file with
	// a planned mod.
	Overlaps []*modpack.Mod
	// ExtraDependencies is ToInstall minus the selection.
	ExtraDependencies []*modpack.Mod
	// MissingIdentities are dependencies found nowhere in the library.
	MissingIdentities []string
}

// UninstallPlan is the ordered result of PrepareUninstall and
// PrepareCleanUninstall.
type UninstallPlan struct {
	// ToUninstall lists overlappers and dependents before the mod they
	// relate to.
	ToUninstall       []*modpack.Mod
	ExtraDependencies []*modpack.Mod
	Overlappers       []*modpack.Mod
	Dependents        []*modpack.Mod
}

// modSet is an insertion-ordered set keyed by mod hash.
type modSet struct {
	seen map[uint64]bool
	list []*modpack.Mod
}

func newModSet() *modSet { return &modSet{seen: map[uint64]bool{}} }

func (s *modSet) add(m *modpack.Mod) bool {
	if s.seen[m.Hash] {
		return false
	}
	s.seen[m.Hash] = true
	s.list = append(s.list, m)
	return true
}

func (s *modSet) has(m *modpack.Mod) bool { return s.seen[m.Hash] }

// PrepareInstall resolves the dependencies of the selected mods and detects
// file overlaps before anything is written. Dependencies that are already
// installed are satisfied and not planned again. Selected mods without a
// Source, or already installed, are ignored.
func (c *Collection) PrepareInstall(selection []*modpack.Mod) (InstallPlan, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var plan InstallPlan
	order := newModSet()
	selected := newModSet()
	missing := map[string]bool{}
	onStack := map[uint64]bool{}
	var stack []string

	var walk func(m *modpack.Mod) error
	walk = func(m *modpack.Mod) error {
		if order.has(m) {
			return nil
		}
		if onStack[m.Hash] {
			return errs.Cycle(append(append([]string{}, stack...), m.Identity))
		}
		onStack[m.Hash] = true
		stack = append(stack, m.Identity)
		for _, ident := range m.Dependencies {
			dep := c.find(ident, true)
			if dep == nil {
				if c.findInstalled(ident) == nil && !missing[ident] {
					missing[ident] = true
					plan.MissingIdentities = append(plan.MissingIdentities, ident)
				}
				continue
			}
			if dep.HasBackup() {
				continue
			}
			if err := walk(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		onStack[m.Hash] = false
		order.add(m)
		return nil
	}

	for _, m := range selection {
		if !m.HasSource() {
			c.log.Debugw("Ignoring selected mod without source", "identity", m.Identity)
			continue
		}
		if m.HasBackup() {
			c.log.Debugw("Ignoring selected mod that is already installed", "identity", m.Identity)
			continue
		}
		selected.add(m)
		if err := walk(m); err != nil {
			return InstallPlan{}, err
		}
	}
	plan.ToInstall = order.list
	for _, m := range plan.ToInstall {
		if !selected.has(m) {
			plan.ExtraDependencies = append(plan.ExtraDependencies, m)
		}
	}

	overlaps := newModSet()
	installed := c.installed()
	for i, m := range plan.ToInstall {
		fp, err := m.InstallFootprint(c.fs, c.opts.TargetDir)
		if err != nil {
			return InstallPlan{}, err
		}
		for _, other := range installed {
			if other.Hash != m.Hash && other.OverlapsInstalled(fp) {
				overlaps.add(other)
			}
		}
		for _, earlier := range plan.ToInstall[:i] {
			if earlier.OverlapsWith(fp) {
				overlaps.add(earlier)
			}
		}
	}
	plan.Overlaps = overlaps.list
	return plan, nil
}

// PrepareUninstall orders the selected installed mods after every installed
// mod that overlaps them or depends on them, recursively.
func (c *Collection) PrepareUninstall(selection []*modpack.Mod) (UninstallPlan, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.prepareUninstall(selection, nil)
}

// PrepareCleanUninstall is PrepareUninstall over the selection plus its
// installed dependencies that no other installed mod still needs.
func (c *Collection) PrepareCleanUninstall(selection []*modpack.Mod) (UninstallPlan, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sel := newModSet()
	for _, m := range selection {
		if m.HasBackup() {
			sel.add(m)
		}
	}

	// transitive installed dependencies of the selection
	deps := newModSet()
	var gather func(m *modpack.Mod)
	gather = func(m *modpack.Mod) {
		for _, ident := range m.Dependencies {
			dep := c.findInstalled(ident)
			if dep == nil || sel.has(dep) || !deps.add(dep) {
				continue
			}
			gather(dep)
		}
	}
	for _, m := range sel.list {
		gather(m)
	}

	// drop dependencies still needed from outside the removal set
	keep := map[uint64]bool{}
	for _, d := range deps.list {
		keep[d.Hash] = true
	}
	for {
		dropped := false
		for _, d := range deps.list {
			if !keep[d.Hash] {
				continue
			}
			for _, other := range c.installed() {
				if other.Hash == d.Hash || sel.has(other) || keep[other.Hash] {
					continue
				}
				if other.DependsOn(d.Identity) {
					keep[d.Hash] = false
					dropped = true
					break
				}
			}
		}
		if !dropped {
			break
		}
	}

	var extra []*modpack.Mod
	for _, d := range deps.list {
		if keep[d.Hash] {
			extra = append(extra, d)
		}
	}
	return c.prepareUninstall(append(sel.list, extra...), extra)
}

func (c *Collection) prepareUninstall(selection, extra []*modpack.Mod) (UninstallPlan, error) {
	plan := UninstallPlan{ExtraDependencies: extra}
	order := newModSet()
	overlappers := newModSet()
	dependents := newModSet()
	onStack := map[uint64]bool{}
	var stack []string
	var overwrote []bool // stack[i] was reached because it overwrote stack[i-1]
	installed := c.installed()

	var walk func(m *modpack.Mod, overlap bool) error
	walk = func(m *modpack.Mod, overlap bool) error {
		onStack[m.Hash] = true
		stack = append(stack, m.Identity)
		overwrote = append(overwrote, overlap)
		for _, other := range installed {
			if other.Hash == m.Hash || !other.HasOverlapHash(m.Hash) {
				continue
			}
			// mods reinstalled over each other can overlap both ways
			if onStack[other.Hash] || order.has(other) {
				continue
			}
			overlappers.add(other)
			if err := walk(other, true); err != nil {
				return err
			}
		}
		for _, other := range installed {
			if other.Hash == m.Hash || !other.DependsOn(m.Identity) {
				continue
			}
			if onStack[other.Hash] {
				return orderConflict(stack, overwrote, other.Identity)
			}
			if order.has(other) {
				continue
			}
			dependents.add(other)
			if err := walk(other, false); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		overwrote = overwrote[:len(overwrote)-1]
		onStack[m.Hash] = false
		order.add(m)
		return nil
	}

	for _, m := range selection {
		if !m.HasBackup() {
			c.log.Debugw("Ignoring selected mod that is not installed", "identity", m.Identity)
			continue
		}
		if order.has(m) {
			continue
		}
		if err := walk(m, false); err != nil {
			return UninstallPlan{}, err
		}
	}
	plan.ToUninstall = order.list
	plan.Overlappers = overlappers.list
	plan.Dependents = dependents.list
	return plan, nil
}

// orderConflict reports a dependent that must be uninstalled both before and
// after the mods on the walk stack. Without overlap edges in the loop it is a
// plain dependency cycle.
func orderConflict(stack []string, overwrote []bool, closing string) error {
	start := 0
	for i, ident := range stack {
		if ident == closing {
			start = i
		}
	}
	chain := append(append([]string{}, stack...), closing)
	viaOverlap := false
	for i := start + 1; i < len(stack); i++ {
		if overwrote[i] {
			viaOverlap = true
			chain[i] = fmt.Sprintf("%s (overwrote %s)", stack[i], stack[i-1])
		}
	}
	if !viaOverlap {
		return errs.Cycle(chain)
	}
	return errs.Newf(errs.CyclicDependency, "resolve uninstall order", "",
		"%s depends on a mod that overwrote its files, no uninstall order exists: %v", closing, chain)
}
