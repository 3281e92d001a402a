// Package hierarchy computes the denormalized lineage of the unit tree: the
// ancestors, direct children and all subordinates of every unit, derived from
// child -> parent links.
package hierarchy

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrCycle is returned when the parent links do not form a forest.
	ErrCycle = errors.New("unit hierarchy contains a cycle")
	// ErrUnknownParent is returned when a unit points at a parent that does not exist.
	ErrUnknownParent = errors.New("parent unit does not exist")
)

// Lineage holds the derived lists of one unit.
type Lineage struct {
	// ParentUICs runs from the immediate parent up to the root.
	ParentUICs []string
	// ChildUICs are the direct children, sorted.
	ChildUICs []string
	// SubordinateUICs are all descendants in breadth-first order.
	SubordinateUICs []string
	Level           int
}

// Equal reports whether two lineages hold the same lists in the same order.
func (l Lineage) Equal(o Lineage) bool {
	return l.Level == o.Level &&
		equalStrings(l.ParentUICs, o.ParentUICs) &&
		equalStrings(l.ChildUICs, o.ChildUICs) &&
		equalStrings(l.SubordinateUICs, o.SubordinateUICs)
}

// Tree is an immutable view over child -> parent links. An empty parent means root.
type Tree struct {
	parents  map[string]string
	children map[string][]string
}

// New validates the links and indexes children.
func New(parents map[string]string) (*Tree, error) {
	t := &Tree{
		parents:  make(map[string]string, len(parents)),
		children: make(map[string][]string),
	}

	for uic, parent := range parents {
		if parent != "" {
			if _, ok := parents[parent]; !ok {
				return nil, fmt.Errorf("%w: %s (parent of %s)", ErrUnknownParent, parent, uic)
			}
			t.children[parent] = append(t.children[parent], uic)
		}
		t.parents[uic] = parent
	}

	for parent := range t.children {
		sort.Strings(t.children[parent])
	}

	if err := t.checkAcyclic(); err != nil {
		return nil, err
	}

	return t, nil
}

func (t *Tree) checkAcyclic() error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(t.parents))

	for start := range t.parents {
		var path []string
		uic := start
		for uic != "" && state[uic] != done {
			if state[uic] == visiting {
				return fmt.Errorf("%w at %s", ErrCycle, uic)
			}
			state[uic] = visiting
			path = append(path, uic)
			uic = t.parents[uic]
		}
		for _, p := range path {
			state[p] = done
		}
	}
	return nil
}

// Contains reports whether uic is part of the tree.
func (t *Tree) Contains(uic string) bool {
	_, ok := t.parents[uic]
	return ok
}

// Parent returns the immediate parent, empty for roots.
func (t *Tree) Parent(uic string) string {
	return t.parents[uic]
}

// Ancestors returns the parents of uic from nearest to root.
func (t *Tree) Ancestors(uic string) []string {
	ancestors := []string{}
	for p := t.parents[uic]; p != ""; p = t.parents[p] {
		ancestors = append(ancestors, p)
	}
	return ancestors
}

// Children returns the direct children of uic, sorted.
func (t *Tree) Children(uic string) []string {
	return append([]string{}, t.children[uic]...)
}

// Subordinates returns every descendant of uic, breadth first.
func (t *Tree) Subordinates(uic string) []string {
	subordinates := []string{}
	queue := append([]string{}, t.children[uic]...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		subordinates = append(subordinates, next)
		queue = append(queue, t.children[next]...)
	}
	return subordinates
}

// IsDescendant reports whether candidate sits somewhere below uic.
func (t *Tree) IsDescendant(uic, candidate string) bool {
	for p := t.parents[candidate]; p != ""; p = t.parents[p] {
		if p == uic {
			return true
		}
	}
	return false
}

// Lineage computes the derived lists for one unit.
func (t *Tree) Lineage(uic string) Lineage {
	ancestors := t.Ancestors(uic)
	return Lineage{
		ParentUICs:      ancestors,
		ChildUICs:       t.Children(uic),
		SubordinateUICs: t.Subordinates(uic),
		Level:           len(ancestors),
	}
}

// All computes the lineage of every unit.
func (t *Tree) All() map[string]Lineage {
	out := make(map[string]Lineage, len(t.parents))
	for uic := range t.parents {
		out[uic] = t.Lineage(uic)
	}
	return out
}

// ValidateReparent checks that uic may move under newParent. An empty newParent
// detaches the unit into a root.
func ValidateReparent(t *Tree, uic, newParent string) error {
	if newParent == "" {
		return nil
	}
	if newParent == uic {
		return fmt.Errorf("%w: %s cannot be its own parent", ErrCycle, uic)
	}
	if !t.Contains(newParent) {
		return fmt.Errorf("%w: %s", ErrUnknownParent, newParent)
	}
	if t.IsDescendant(uic, newParent) {
		return fmt.Errorf("%w: %s is subordinate to %s", ErrCycle, newParent, uic)
	}
	return nil
}

// Changed returns the sorted UICs whose fresh lineage differs from the stored one,
// including units missing from stored.
func Changed(stored, fresh map[string]Lineage) []string {
	var changed []string
	for uic, lineage := range fresh {
		old, ok := stored[uic]
		if !ok || !old.Equal(lineage) {
			changed = append(changed, uic)
		}
	}
	sort.Strings(changed)
	return changed
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
