package modpack

import (
	"regexp"
	"strconv"
	"strings"
)

// identRegex splits "Core Name_v1.2.3" style identities into name and
// version. The separator before the version may be a space, underscore,
// dash or dot, with an optional "v".
var identRegex = regexp.MustCompile(`^(.+?)[ _.\-]+[vV]?(\d+(?:\.\d+)*[a-z]?)$`)

// ParseIdentity splits an identity into its core name and version string.
// Identities without a trailing version return the whole identity as core.
func ParseIdentity(ident string) (core string, version string) {
	ident = strings.TrimSpace(ident)
	m := identRegex.FindStringSubmatch(ident)
	if m == nil {
		return ident, ""
	}
	return m[1], m[2]
}

// DisplayName turns a core name into a human readable label.
func DisplayName(core string) string {
	return strings.TrimSpace(strings.ReplaceAll(core, "_", " "))
}

// Version is a dotted numeric version with an optional one-letter suffix,
// as found at the end of mod file names.
type Version struct {
	Parts  []int
	Suffix string
	raw    string
}

// ParseVersion parses s. Unparsable input yields the zero Version, which
// sorts before every real version.
func ParseVersion(s string) Version {
	v := Version{raw: s}
	if s == "" {
		return v
	}
	if last := s[len(s)-1]; last >= 'a' && last <= 'z' {
		v.Suffix = string(last)
		s = s[:len(s)-1]
	}
	for _, p := range strings.Split(s, ".") {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{raw: v.raw}
		}
		v.Parts = append(v.Parts, n)
	}
	return v
}

// String returns the text the version was parsed from.
func (v Version) String() string { return v.raw }

// IsZero reports whether no version was found.
func (v Version) IsZero() bool { return len(v.Parts) == 0 }

// Compare returns -1, 0 or 1. Missing trailing parts count as zero, so
// 1.2 equals 1.2.0.
func (v Version) Compare(o Version) int {
	n := len(v.Parts)
	if len(o.Parts) > n {
		n = len(o.Parts)
	}
	for i := 0; i < n; i++ {
		a, b := part(v.Parts, i), part(o.Parts, i)
		if a != b {
			if a < b {
				return -1
			}
			return 1
		}
	}
	return strings.Compare(v.Suffix, o.Suffix)
}

func part(p []int, i int) int {
	if i < len(p) {
		return p[i]
	}
	return 0
}
