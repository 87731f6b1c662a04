package aggregate

import (
	"fmt"
	"sort"
	"strings"
)

// Direction controls the layering of drawn circles
type Direction string

const (
	// Ascending draws low counts first so high counts end up on top
	Ascending Direction = "lh"
	// Descending draws high counts first so low counts end up on top
	Descending Direction = "hl"
)

// ParseDirection accepts "lh" or "hl" in any case
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(s)); d {
	case Ascending, Descending:
		return d, nil
	}
	return "", fmt.Errorf("sortorder: must be either lh or hl, got %q", s)
}

// Order returns entries sorted by count in the given direction.
// The sort is stable, so equal counts keep their input order.
// The input slice is left untouched.
func Order(entries []Entry, dir Direction) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)

	if dir == Ascending {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Count < out[j].Count })
	} else {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	}
	return out
}
