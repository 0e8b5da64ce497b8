// Package archive gives read and write access to zip containers stored on an
// afero filesystem. Entry paths are forward-slash relative paths; directory
// entries carry a trailing slash inside the container only.
package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mod-deployer/errs"
	"mod-deployer/fsutil"
	"mod-deployer/pathutil"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
)

// NotFound is returned by Locate when no entry matches.
const NotFound = -1

// Reader is an opened zip container.
type Reader struct {
	path string
	file afero.File
	zr   *zip.Reader
}

// Open loads the central directory of the zip at path.
func Open(fs afero.Fs, path string) (*Reader, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errs.Archive("open archive", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errs.Archive("open archive", path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, errs.Newf(errs.ArchiveError, "open archive", path, "is a directory")
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, errs.Archive("open archive", path, err)
	}
	return &Reader{path: path, file: f, zr: zr}, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Location returns the path the archive was opened from.
func (r *Reader) Location() string { return r.path }

// Count returns the number of entries.
func (r *Reader) Count() int { return len(r.zr.File) }

// Path returns the cleaned entry path at index i.
func (r *Reader) Path(i int) string {
	return pathutil.Clean(r.zr.File[i].Name)
}

// IsDir reports whether the entry at index i is a directory.
func (r *Reader) IsDir(i int) bool {
	f := r.zr.File[i]
	return strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir()
}

// Size returns the uncompressed size of the entry at index i.
func (r *Reader) Size(i int) int64 {
	return int64(r.zr.File[i].UncompressedSize64)
}

// Locate returns the index of the entry named p, or NotFound. An exact match
// wins over a case-insensitive one.
func (r *Reader) Locate(p string) int {
	p = pathutil.Clean(p)
	fold := NotFound
	for i := range r.zr.File {
		name := r.Path(i)
		if name == p {
			return i
		}
		if fold == NotFound && strings.EqualFold(name, p) {
			fold = i
		}
	}
	return fold
}

// LocateLast is Locate scanning from the end of the central directory, for
// entries conventionally appended last such as manifests.
func (r *Reader) LocateLast(p string) int {
	p = pathutil.Clean(p)
	for i := len(r.zr.File) - 1; i >= 0; i-- {
		if strings.EqualFold(r.Path(i), p) {
			return i
		}
	}
	return NotFound
}

// Open returns a reader over the content of entry i.
func (r *Reader) Open(i int) (io.ReadCloser, error) {
	if i < 0 || i >= len(r.zr.File) {
		return nil, errs.Newf(errs.ArchiveError, "open entry", r.path, "index %d out of range", i)
	}
	rc, err := r.zr.File[i].Open()
	if err != nil {
		return nil, errs.Archive("open entry", r.path+":"+r.zr.File[i].Name, err)
	}
	return rc, nil
}

// ReadAll returns the content of entry i.
func (r *Reader) ReadAll(i int) ([]byte, error) {
	rc, err := r.Open(i)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errs.Archive("read entry", r.path+":"+r.zr.File[i].Name, err)
	}
	return data, nil
}

// Extract writes entry i to dest on fs. Directory entries create dest.
func (r *Reader) Extract(i int, fs afero.Fs, dest string) error {
	if i < 0 || i >= len(r.zr.File) {
		return errs.Newf(errs.ArchiveError, "extract entry", r.path, "index %d out of range", i)
	}
	if r.IsDir(i) {
		if err := fs.MkdirAll(dest, 0755); err != nil {
			return errs.IO("create directory", dest, err)
		}
		return nil
	}
	rc, err := r.Open(i)
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := fsutil.WriteFrom(fs, dest, rc); err != nil {
		return errs.IO("extract "+r.zr.File[i].Name+" to", dest, err)
	}
	return nil
}

// ExtractPath is Extract addressed by entry path.
func (r *Reader) ExtractPath(p string, fs afero.Fs, dest string) error {
	i := r.Locate(p)
	if i == NotFound {
		return errs.Newf(errs.NotFound, "extract entry", r.path, "no entry %q", p)
	}
	return r.Extract(i, fs, dest)
}

// Writer builds a zip container. Entries can be appended until Close.
type Writer struct {
	path  string
	file  afero.File
	zw    *zip.Writer
	level int
	dirs  map[string]bool
}

// Create starts a new zip at path, replacing any existing file.
func Create(fs afero.Fs, path string) (*Writer, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errs.IO("create archive", path, err)
	}
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, errs.IO("create archive", path, err)
	}
	w := &Writer{path: path, file: f, zw: zip.NewWriter(f), level: flate.DefaultCompression, dirs: map[string]bool{}}
	// the compressor is resolved per entry so every append can pick its level
	w.zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, w.level)
	})
	return w, nil
}

func (w *Writer) header(entry string, level int) *zip.FileHeader {
	h := &zip.FileHeader{Name: entry, Modified: time.Now()}
	if level == 0 {
		h.Method = zip.Store
	} else {
		h.Method = zip.Deflate
		w.level = clampLevel(level)
	}
	return h
}

func clampLevel(level int) int {
	switch {
	case level < flate.HuffmanOnly:
		return flate.DefaultCompression
	case level > flate.BestCompression:
		return flate.BestCompression
	}
	return level
}

// AppendDir adds a directory entry. Repeated calls for the same path are
// ignored.
func (w *Writer) AppendDir(entry string) error {
	entry = pathutil.Clean(entry)
	if entry == "" || w.dirs[strings.ToLower(entry)] {
		return nil
	}
	w.dirs[strings.ToLower(entry)] = true
	if _, err := w.zw.CreateHeader(&zip.FileHeader{Name: entry + "/", Method: zip.Store, Modified: time.Now()}); err != nil {
		return errs.Archive("append directory "+entry+" to", w.path, err)
	}
	return nil
}

// AppendBytes adds data as entry, compressed at level (0 stores).
func (w *Writer) AppendBytes(data []byte, entry string, level int) error {
	entry = pathutil.Clean(entry)
	ew, err := w.zw.CreateHeader(w.header(entry, level))
	if err != nil {
		return errs.Archive("append "+entry+" to", w.path, err)
	}
	if _, err := ew.Write(data); err != nil {
		return errs.Archive("append "+entry+" to", w.path, err)
	}
	return nil
}

// AppendFile adds the file src from fs as entry, compressed at level.
func (w *Writer) AppendFile(fs afero.Fs, src, entry string, level int) error {
	entry = pathutil.Clean(entry)
	in, err := fs.Open(src)
	if err != nil {
		return errs.IO("read", src, err)
	}
	defer in.Close()
	ew, err := w.zw.CreateHeader(w.header(entry, level))
	if err != nil {
		return errs.Archive("append "+entry+" to", w.path, err)
	}
	if _, err := io.Copy(ew, in); err != nil {
		return errs.Archive(fmt.Sprintf("append %s (from %s) to", entry, src), w.path, err)
	}
	return nil
}

// Close writes the central directory and closes the file.
func (w *Writer) Close() error {
	zerr := w.zw.Close()
	ferr := w.file.Close()
	if zerr != nil {
		return errs.Archive("finalize archive", w.path, zerr)
	}
	if ferr != nil {
		return errs.IO("close archive", w.path, ferr)
	}
	return nil
}

// Abandon closes the writer and removes the partial file.
func (w *Writer) Abandon(fs afero.Fs) {
	_ = w.zw.Close()
	_ = w.file.Close()
	_ = fs.Remove(w.path)
}
