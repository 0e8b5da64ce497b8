// Package fsutil provides the filesystem operations the engine performs,
// expressed over afero so tests can run against an in-memory tree.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"mod-deployer/pathutil"

	"github.com/spf13/afero"
)

// Entry is one item found by a recursive listing.
type Entry struct {
	Rel   string // forward-slash path relative to the listing root
	IsDir bool
}

// Exists reports whether p exists.
func Exists(fs afero.Fs, p string) bool {
	_, err := fs.Stat(p)
	return err == nil
}

// IsDir reports whether p exists and is a directory.
func IsDir(fs afero.Fs, p string) bool {
	info, err := fs.Stat(p)
	return err == nil && info.IsDir()
}

// IsFile reports whether p exists and is a regular file.
func IsFile(fs afero.Fs, p string) bool {
	info, err := fs.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// IsEmptyDir reports whether p is a directory without children.
func IsEmptyDir(fs afero.Fs, p string) bool {
	if !IsDir(fs, p) {
		return false
	}
	empty, err := afero.IsEmpty(fs, p)
	return err == nil && empty
}

// ModTime returns the last write time of p.
func ModTime(fs afero.Fs, p string) (time.Time, error) {
	info, err := fs.Stat(p)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// ListDir lists the direct children of dir, sorted by name. When exts is
// non-empty only files with one of those extensions (case-insensitive, with
// leading dot) are returned; directories are included only when withDirs.
// Names starting with a dot are skipped.
func ListDir(fs afero.Fs, dir string, exts []string, withDirs bool) ([]os.FileInfo, error) {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, err
	}
	var out []os.FileInfo
	for _, info := range infos {
		if strings.HasPrefix(info.Name(), ".") {
			continue
		}
		if info.IsDir() {
			if withDirs {
				out = append(out, info)
			}
			continue
		}
		if len(exts) > 0 && !hasExt(info.Name(), exts) {
			continue
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

func hasExt(name string, exts []string) bool {
	ext := filepath.Ext(name)
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// Walk lists every file and directory below root, depth-first with parents
// before children. The root itself is not included.
func Walk(fs afero.Fs, root string) ([]Entry, error) {
	var out []Entry
	err := afero.Walk(fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		out = append(out, Entry{Rel: pathutil.Clean(rel), IsDir: info.IsDir()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return pathutil.CompareEntries(out[i].Rel, out[j].Rel) < 0
	})
	return out, nil
}

// CopyFile copies src to dst, creating dst's parent directories and
// replacing any existing file.
func CopyFile(fs afero.Fs, src, dst string) error {
	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	return WriteFrom(fs, dst, in)
}

// WriteFrom writes the content of r to dst, creating parent directories.
func WriteFrom(fs afero.Fs, dst string, r io.Reader) error {
	if err := fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// MoveToTrash moves p into trashDir under a time-stamped name so it can be
// recovered by hand. It returns the new location.
func MoveToTrash(fs afero.Fs, p, trashDir string) (string, error) {
	if err := fs.MkdirAll(trashDir, 0755); err != nil {
		return "", err
	}
	stamp := time.Now().Format("20060102-150405.000000000")
	dst := filepath.Join(trashDir, fmt.Sprintf("%s.%s", filepath.Base(p), stamp))
	if err := fs.Rename(p, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// CheckWritable verifies dir exists, is a directory and accepts new files.
func CheckWritable(fs afero.Fs, dir string) error {
	info, err := fs.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	tmp, err := afero.TempFile(fs, dir, ".write-check-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	tmp.Close()
	return fs.Remove(name)
}
