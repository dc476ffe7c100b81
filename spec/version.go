package spec

import "strings"

// A Version is one element of a version list: a plain version (1.2), an
// exact pin (=1.2), a range (1.2:1.4, :1.4, 1.2:, :), a git version
// (git.<ref> or a 40-character commit hash), or a git version pinned to a
// numeric version (git.v2=2.0). The textual form is kept as written so
// spec strings round-trip; comparisons are purely structural here and
// concrete ordering belongs to the concretizer.
type Version struct {
	raw string
}

func NewVersion(raw string) Version {
	return Version{raw: raw}
}

func (v Version) String() string {
	return v.raw
}

// IsRange reports whether the version is a range constraint.
func (v Version) IsRange() bool {
	return strings.Contains(v.raw, ":")
}

// IsGit reports whether the version refers to a git ref or commit.
func (v Version) IsGit() bool {
	ref := v.raw
	if eq := strings.IndexByte(ref, '='); eq > 0 {
		ref = ref[:eq]
	}
	if strings.HasPrefix(ref, "git.") {
		return true
	}
	return isGitHash(ref)
}

func isGitHash(s string) bool {
	if len(s) != 40 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

// A VersionList is an ordered list of version constraints, as written
// after "@" in a spec string.
type VersionList struct {
	items []Version
}

// ParseVersionList splits a comma-separated version list. The input is
// the raw text after "@" with surrounding whitespace already removed by
// the tokenizer.
func ParseVersionList(text string) VersionList {
	var list VersionList
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		list.items = append(list.items, NewVersion(part))
	}
	return list
}

func (l VersionList) Empty() bool {
	return len(l.items) == 0
}

func (l VersionList) Versions() []Version {
	return l.items
}

func (l VersionList) String() string {
	parts := make([]string, len(l.items))
	for i, v := range l.items {
		parts[i] = v.String()
	}
	return strings.Join(parts, ",")
}

func (l VersionList) Equal(other VersionList) bool {
	if len(l.items) != len(other.items) {
		return false
	}
	for i := range l.items {
		if l.items[i].raw != other.items[i].raw {
			return false
		}
	}
	return true
}

// HasGit reports whether any element refers to a git ref or commit.
func (l VersionList) HasGit() bool {
	for _, v := range l.items {
		if v.IsGit() {
			return true
		}
	}
	return false
}

// Intersect narrows the receiver to the constraints shared with other.
// An empty list is unconstrained and adopts the other side. Returns
// false when the two lists have no common element.
func (l *VersionList) Intersect(other VersionList) bool {
	if other.Empty() {
		return true
	}
	if l.Empty() {
		l.items = append([]Version(nil), other.items...)
		return true
	}
	seen := make(map[string]bool, len(other.items))
	for _, v := range other.items {
		seen[v.raw] = true
	}
	var common []Version
	for _, v := range l.items {
		if seen[v.raw] {
			common = append(common, v)
		}
	}
	if len(common) == 0 {
		return false
	}
	l.items = common
	return true
}
