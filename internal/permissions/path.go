package permissions

import (
	"sort"
	"strconv"
	"strings"
)

// Wildcard matches a single path segment, or the remainder of the path when
// it is the final segment of a grant.
const Wildcard = "*"

const separator = "/"

// Path joins segments into a scoped permission path. Integer segments are
// formatted in base 10.
func Path(segments ...any) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		switch v := s.(type) {
		case string:
			parts = append(parts, strings.Trim(v, separator))
		case int64:
			parts = append(parts, strconv.FormatInt(v, 10))
		case int:
			parts = append(parts, strconv.Itoa(v))
		}
	}
	return strings.Join(parts, separator)
}

// Scoped paths used by the ban panel.

func BanRepeal(banID int64) string { return Path("adm/mship/ban", banID, "repeal") }

func BanModify(banID int64) string { return Path("adm/mship/ban", banID, "modify") }

func AccountNoteCreate(accountID int64) string {
	return Path("adm/mship/account", accountID, "note/create")
}

func AccountBansView(accountID int64) string {
	return Path("adm/mship/account", accountID, "bans")
}

// Set is the collection of path patterns granted to an account.
type Set struct {
	grants map[string]struct{}
}

// NewSet returns a Set holding the given grants. Empty patterns are ignored.
func NewSet(grants ...string) Set {
	s := Set{grants: make(map[string]struct{}, len(grants))}
	for _, g := range grants {
		s = s.Add(g)
	}
	return s
}

// Add returns s with pattern granted.
func (s Set) Add(pattern string) Set {
	pattern = strings.Trim(strings.TrimSpace(pattern), separator)
	if pattern == "" {
		return s
	}
	if s.grants == nil {
		s.grants = make(map[string]struct{})
	}
	s.grants[pattern] = struct{}{}
	return s
}

// Union returns a new Set with the grants of both sets.
func (s Set) Union(other Set) Set {
	out := NewSet(s.Grants()...)
	for g := range other.grants {
		out = out.Add(g)
	}
	return out
}

// Has reports whether any grant in s matches path.
func (s Set) Has(path string) bool {
	path = strings.Trim(path, separator)
	if path == "" {
		return false
	}
	if _, ok := s.grants[path]; ok {
		return true
	}
	target := strings.Split(path, separator)
	for g := range s.grants {
		if match(strings.Split(g, separator), target) {
			return true
		}
	}
	return false
}

// Len returns the number of distinct grants.
func (s Set) Len() int { return len(s.grants) }

// Grants returns the granted patterns in sorted order.
func (s Set) Grants() []string {
	out := make([]string, 0, len(s.grants))
	for g := range s.grants {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// String returns the grants joined by " | ", or "NONE".
func (s Set) String() string {
	if len(s.grants) == 0 {
		return "NONE"
	}
	return strings.Join(s.Grants(), " | ")
}

func match(pattern, target []string) bool {
	for i, seg := range pattern {
		if seg == Wildcard && i == len(pattern)-1 {
			return len(target) > i
		}
		if i >= len(target) {
			return false
		}
		if seg != Wildcard && seg != target[i] {
			return false
		}
	}
	return len(pattern) == len(target)
}
