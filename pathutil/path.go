package pathutil

import (
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ToSlash converts a native or mixed path to forward slashes regardless of
// the host separator. Archive entries are always stored this way.
func ToSlash(p string) string {
	return strings.ReplaceAll(filepath.ToSlash(p), `\`, "/")
}

// FromSlash converts a forward-slash entry path to the host separator.
func FromSlash(p string) string {
	return filepath.FromSlash(p)
}

// Clean canonicalizes an entry path: forward slashes, no leading "/" or "./",
// no trailing "/". The root itself cleans to "".
func Clean(p string) string {
	p = ToSlash(p)
	if p == "" {
		return ""
	}
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}

// IsSafe reports whether an entry path stays inside its root once cleaned.
func IsSafe(p string) bool {
	p = ToSlash(p)
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return false
		}
	}
	return !strings.HasPrefix(p, "/") && !(len(p) > 1 && p[1] == ':')
}

// IsUnder reports whether entry lies strictly below root. Comparison is
// case-insensitive since mod archives are authored on case-insensitive hosts.
func IsUnder(entry, root string) bool {
	entry, root = Clean(entry), Clean(root)
	if root == "" {
		return entry != ""
	}
	if len(entry) <= len(root)+1 {
		return false
	}
	return strings.EqualFold(entry[:len(root)], root) && entry[len(root)] == '/'
}

// TrimRoot returns entry relative to root. It assumes IsUnder(entry, root).
func TrimRoot(entry, root string) string {
	entry, root = Clean(entry), Clean(root)
	if root == "" {
		return entry
	}
	return entry[len(root)+1:]
}

// Join joins entry path segments with forward slashes.
func Join(elem ...string) string {
	return Clean(path.Join(elem...))
}

// Parents returns every ancestor directory of entry, outermost first.
func Parents(entry string) []string {
	entry = Clean(entry)
	var out []string
	for i := 0; i < len(entry); i++ {
		if entry[i] == '/' {
			out = append(out, entry[:i])
		}
	}
	return out
}

// StripExt returns the base name of p without its extension.
func StripExt(p string) string {
	base := filepath.Base(FromSlash(ToSlash(p)))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// CompareEntries orders entry paths depth-first, left to right, with a
// directory always before its children.
func CompareEntries(a, b string) int {
	as, bs := strings.Split(a, "/"), strings.Split(b, "/")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := strings.Compare(as[i], bs[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	}
	return 0
}

// SortEntries sorts entry paths in place with CompareEntries.
func SortEntries(entries []string) {
	sort.SliceStable(entries, func(i, j int) bool {
		return CompareEntries(entries[i], entries[j]) < 0
	})
}

// EqualEntry compares two entry paths the way the target filesystem would.
func EqualEntry(a, b string) bool {
	return strings.EqualFold(Clean(a), Clean(b))
}

// EntryKey normalizes an entry path for use as a map key.
func EntryKey(p string) string {
	return strings.ToLower(Clean(p))
}
