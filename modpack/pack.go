package modpack

import (
	"path/filepath"

	"mod-deployer/archive"
	"mod-deployer/errs"
	"mod-deployer/fsutil"
	"mod-deployer/pathutil"

	"github.com/spf13/afero"
)

// PackOptions describes the archive written by Pack.
type PackOptions struct {
	InstallRoot  string // defaults to the destination's base name
	Dependencies []string
	Category     string
	Description  string
	Picture      string // file on fs, stored at the archive root
	Level        int
}

// Pack writes the tree under dir as a mod archive at dest. The payload sits
// below the install root and modinfo.yaml is appended last.
func Pack(fs afero.Fs, dir, dest string, opts PackOptions, progress ProgressFunc) error {
	if !fsutil.IsDir(fs, dir) {
		return errs.Newf(errs.AccessError, "pack", dir, "not a directory")
	}
	if fsutil.Exists(fs, dest) {
		return errs.Newf(errs.IOError, "pack", dest, "destination already exists")
	}
	root := opts.InstallRoot
	if root == "" {
		root = pathutil.StripExt(dest)
	}
	if !pathutil.IsSafe(root) || pathutil.Clean(root) == "" {
		return errs.Newf(errs.ParseError, "pack", dest, "invalid install root %q", opts.InstallRoot)
	}

	root = pathutil.Clean(root)

	entries, err := fsutil.Walk(fs, dir)
	if err != nil {
		return errs.IO("list", dir, err)
	}

	sm := &SourceManifest{
		InstallRoot:  root,
		Dependencies: uniqueStrings(opts.Dependencies),
		Category:     opts.Category,
		Description:  normalizeNewlines(opts.Description),
	}
	if opts.Picture != "" {
		sm.Picture = filepath.Base(opts.Picture)
	}
	manifest, err := sm.Encode()
	if err != nil {
		return errs.IO("encode source manifest", dest, err)
	}

	w, err := archive.Create(fs, dest)
	if err != nil {
		return err
	}
	if err := w.AppendDir(root); err != nil {
		w.Abandon(fs)
		return err
	}
	for i, e := range entries {
		entry := pathutil.Join(root, e.Rel)
		if e.IsDir {
			err = w.AppendDir(entry)
		} else {
			err = w.AppendFile(fs, filepath.Join(dir, pathutil.FromSlash(e.Rel)), entry, opts.Level)
		}
		if err != nil {
			w.Abandon(fs)
			return err
		}
		if !progress.report(i+1, len(entries)) {
			w.Abandon(fs)
			return errs.Abort("pack", dest)
		}
	}
	if opts.Picture != "" {
		if err := w.AppendFile(fs, opts.Picture, sm.Picture, 0); err != nil {
			w.Abandon(fs)
			return err
		}
	}
	if err := w.AppendBytes(manifest, SourceManifestName, opts.Level); err != nil {
		w.Abandon(fs)
		return err
	}
	return w.Close()
}
