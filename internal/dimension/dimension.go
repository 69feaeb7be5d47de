// Package dimension models the three nested categorical axes of the slot
// plan (e.g. day, room, time) and the flat, offset-addressed list they are
// stored in.
//
// The persisted layout is a single ordered list of name lists:
//
//	index 0:                the level-1 category names (N entries)
//	index 1+i:              the level-2 axis for level-1 index i
//	index 1+N+i:            the level-3 axis for level-1 index i
//
// This offset arithmetic is the only addressing scheme into the list and
// must be applied exactly; every accessor here bounds-checks before
// indexing.
package dimension

import (
	"fmt"
	"strings"
)

// Set is the offset-addressed list of axis name lists. The zero value (or
// an empty slice) is a valid set with no level-1 categories.
type Set [][]string

// New builds a Set from per-level inputs. level2Lists[i] and level3Lists[i]
// belong to level1[i]; both may be shorter than level1, in which case the
// missing axes are empty.
//
// Level-1 entries whose name trims to "" are dropped together with their
// sub-axes. At most maxLevel1 categories are kept (maxLevel1 <= 0 means no
// limit). Axis names inside the kept lists are trimmed, with empty lines
// removed.
func New(level1 []string, level2Lists, level3Lists [][]string, maxLevel1 int) Set {
	names := make([]string, 0, len(level1))
	l2 := make([][]string, 0, len(level1))
	l3 := make([][]string, 0, len(level1))

	for i, name := range level1 {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if maxLevel1 > 0 && len(names) >= maxLevel1 {
			break
		}
		names = append(names, name)
		l2 = append(l2, cleanList(pick(level2Lists, i)))
		l3 = append(l3, cleanList(pick(level3Lists, i)))
	}

	// Assemble the offset-addressed layout: level-1 list first, then all
	// level-2 axes, then all level-3 axes.
	set := make(Set, 0, 1+2*len(names))
	set = append(set, names)
	set = append(set, l2...)
	set = append(set, l3...)
	return set
}

func pick(lists [][]string, i int) []string {
	if i < len(lists) {
		return lists[i]
	}
	return nil
}

func cleanList(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}

// SplitLines turns a newline-separated textarea block into a clean name
// list: lines are trimmed, empty lines dropped, and lines equal to the
// form's placeholder hint text discarded as if empty.
func SplitLines(block, placeholder string) []string {
	lines := strings.Split(block, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || line == placeholder {
			continue
		}
		out = append(out, line)
	}
	return out
}

// Level1 returns the level-1 category names. An empty set has none.
func (s Set) Level1() []string {
	if len(s) == 0 {
		return nil
	}
	return s[0]
}

// Level2Axis returns the level-2 axis names for the given level-1 index,
// stored at offset 1+i.
func (s Set) Level2Axis(level1Index int) ([]string, error) {
	if err := s.checkLevel1(level1Index); err != nil {
		return nil, err
	}
	return s[1+level1Index], nil
}

// Level3Axis returns the level-3 axis names for the given level-1 index,
// stored at offset 1+len(level1)+i.
func (s Set) Level3Axis(level1Index int) ([]string, error) {
	if err := s.checkLevel1(level1Index); err != nil {
		return nil, err
	}
	return s[1+len(s[0])+level1Index], nil
}

// Level2Index resolves a level-2 display name to its index within the axis
// of the given level-1 category.
func (s Set) Level2Index(level1Index int, name string) (int, error) {
	axis, err := s.Level2Axis(level1Index)
	if err != nil {
		return 0, err
	}
	return indexOf(axis, name, "level-2", level1Index)
}

// Level3Index resolves a level-3 display name to its index within the axis
// of the given level-1 category.
func (s Set) Level3Index(level1Index int, name string) (int, error) {
	axis, err := s.Level3Axis(level1Index)
	if err != nil {
		return 0, err
	}
	return indexOf(axis, name, "level-3", level1Index)
}

func indexOf(axis []string, name, level string, level1Index int) (int, error) {
	for i, n := range axis {
		if n == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("dimension: no %s axis entry %q under level-1 index %d", level, name, level1Index)
}

func (s Set) checkLevel1(i int) error {
	if len(s) == 0 {
		return fmt.Errorf("dimension: empty set, level-1 index %d out of range", i)
	}
	n := len(s[0])
	if i < 0 || i >= n {
		return fmt.Errorf("dimension: level-1 index %d out of range [0,%d)", i, n)
	}
	// A well-formed set always carries 1+2*N lists; guard against a
	// hand-edited database file that truncated the layout.
	if len(s) < 1+2*n {
		return fmt.Errorf("dimension: malformed set, have %d lists, need %d", len(s), 1+2*n)
	}
	return nil
}

// Clone returns a deep copy, used for consistent read snapshots.
func (s Set) Clone() Set {
	if s == nil {
		return nil
	}
	out := make(Set, len(s))
	for i, list := range s {
		out[i] = append([]string(nil), list...)
	}
	return out
}
