// Package grid implements the sparse 3-level schedule mapping from
// (level-1, level-2, level-3) axis indices to contribution ids.
package grid

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNotScheduled is returned by Swap when one of the ids does not appear
// anywhere in the grid.
var ErrNotScheduled = errors.New("grid: contribution not scheduled")

// swapSentinel stands in for the first id during a swap. Contribution ids
// are stringified non-negative integers, so "-1" can never collide with a
// real id.
const swapSentinel = "-1"

// Grid is the sparse triple-indexed mapping. Absence of a path means "no
// contribution scheduled for that slot". Int-keyed maps marshal to the
// stringified-index nested JSON object of the persisted document.
type Grid map[int]map[int]map[int]string

// Assign stores (or silently overwrites) the contribution id at the given
// index triple, creating intermediate levels as needed.
//
// Nothing here prevents the same id from being assigned to several slots;
// the admin UI only offers unscheduled contributions, and Swap stays
// correct even in the duplicated case.
func (g Grid) Assign(l1, l2, l3 int, id string) {
	byL2, ok := g[l1]
	if !ok {
		byL2 = map[int]map[int]string{}
		g[l1] = byL2
	}
	byL3, ok := byL2[l2]
	if !ok {
		byL3 = map[int]string{}
		byL2[l2] = byL3
	}
	byL3[l3] = id
}

// Lookup returns the contribution id at the given triple, if any.
func (g Grid) Lookup(l1, l2, l3 int) (string, bool) {
	id, ok := g[l1][l2][l3]
	return id, ok
}

// ScheduledIDs returns the set of contribution ids appearing anywhere in
// the grid.
func (g Grid) ScheduledIDs() map[string]struct{} {
	ids := map[string]struct{}{}
	for _, byL2 := range g {
		for _, byL3 := range byL2 {
			for _, id := range byL3 {
				ids[id] = struct{}{}
			}
		}
	}
	return ids
}

// Unscheduled returns the ids from allIDs that do not appear in the grid,
// preserving the input order. This drives the scheduling UI's candidate
// picker.
func (g Grid) Unscheduled(allIDs []string) []string {
	scheduled := g.ScheduledIDs()
	out := make([]string, 0, len(allIDs))
	for _, id := range allIDs {
		if _, ok := scheduled[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// Swap exchanges every occurrence of idA with idB and vice versa. Both ids
// must currently be scheduled, otherwise ErrNotScheduled is returned and
// the grid is left untouched.
//
// The swap goes through a sentinel: A -> sentinel, B -> A, sentinel -> B.
// A direct two-step replace would rewrite the slots already turned into B
// during the first pass; the sentinel keeps the swap correct even when an
// id occupies several slots.
func (g Grid) Swap(idA, idB string) error {
	scheduled := g.ScheduledIDs()
	if _, ok := scheduled[idA]; !ok {
		return fmt.Errorf("%w: %q", ErrNotScheduled, idA)
	}
	if _, ok := scheduled[idB]; !ok {
		return fmt.Errorf("%w: %q", ErrNotScheduled, idB)
	}

	g.replaceAll(idA, swapSentinel)
	g.replaceAll(idB, idA)
	g.replaceAll(swapSentinel, idB)
	return nil
}

func (g Grid) replaceAll(from, to string) {
	for _, byL2 := range g {
		for _, byL3 := range byL2 {
			for l3, id := range byL3 {
				if id == from {
					byL3[l3] = to
				}
			}
		}
	}
}

// Parallel is a contribution scheduled in another level-2 track at the same
// level-3 slot as the "next" one.
type Parallel struct {
	Level2Index  int
	Contribution string
}

// NextAndParallel finds the upcoming contribution in the given track.
//
// Among the level-3 slots scheduled under (l1, l2), the "next" slot is the
// one whose *name* is the lexicographically smallest name strictly greater
// than now. Raw string comparison is only meaningful for uniformly
// zero-padded labels such as "09:00"; that is the documented convention
// for time-like level-3 axes.
//
// The second return value lists contributions occupying the identical
// level-3 index in the other level-2 tracks of the same level-1 category,
// ordered by track index.
func (g Grid) NextAndParallel(l1, l2 int, level3Names []string, now string) (next string, nextIndex int, parallel []Parallel, ok bool) {
	nextIndex = -1
	for l3, id := range g[l1][l2] {
		if l3 < 0 || l3 >= len(level3Names) {
			continue
		}
		name := level3Names[l3]
		if name <= now {
			continue
		}
		if nextIndex == -1 || name < level3Names[nextIndex] {
			nextIndex = l3
			next = id
		}
	}
	if nextIndex == -1 {
		return "", -1, nil, false
	}

	tracks := make([]int, 0, len(g[l1]))
	for track := range g[l1] {
		if track != l2 {
			tracks = append(tracks, track)
		}
	}
	sort.Ints(tracks)
	for _, track := range tracks {
		if id, found := g[l1][track][nextIndex]; found {
			parallel = append(parallel, Parallel{Level2Index: track, Contribution: id})
		}
	}
	return next, nextIndex, parallel, true
}

// Clone returns a deep copy, used for consistent read snapshots.
func (g Grid) Clone() Grid {
	out := make(Grid, len(g))
	for l1, byL2 := range g {
		outL2 := make(map[int]map[int]string, len(byL2))
		for l2, byL3 := range byL2 {
			outL3 := make(map[int]string, len(byL3))
			for l3, id := range byL3 {
				outL3[l3] = id
			}
			outL2[l2] = outL3
		}
		out[l1] = outL2
	}
	return out
}
