package columns

import (
	"strconv"
	"strings"
)

// HeaderSet is the ordered list of column names, one per capture group.
type HeaderSet []string

// Resolve names each group of expr. A name declared in the pattern wins,
// then a non-empty override at the same position, then "Col i".
func Resolve(expr *Expression, overrides []string) HeaderSet {
	if expr == nil {
		return HeaderSet{}
	}
	names := expr.GroupNames()
	headers := make(HeaderSet, len(names))
	for i, name := range names {
		switch {
		case name != "":
			headers[i] = name
		case i < len(overrides) && strings.TrimSpace(overrides[i]) != "":
			headers[i] = strings.TrimSpace(overrides[i])
		default:
			headers[i] = DefaultName(i)
		}
	}
	return headers
}

// DefaultName is the label of the zero-based column idx when nothing else
// names it.
func DefaultName(idx int) string {
	return "Col " + strconv.Itoa(idx+1)
}

// ParseNames splits a comma-separated list of column names. Entries are
// trimmed but kept when empty so positions line up with groups.
func ParseNames(list string) []string {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	parts := strings.Split(list, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// Clone returns a copy that does not share storage with h.
func (h HeaderSet) Clone() HeaderSet {
	out := make(HeaderSet, len(h))
	copy(out, h)
	return out
}
