package hierarchy

import (
	"errors"
	"reflect"
	"testing"
)

// DIV -> BDE -> {BN2, BN1}; BN1 -> {CO_B, CO_A}; BN2 -> CO_C; OTHER is a second root
func sampleTree(t *testing.T) *Tree {
	t.Helper()
	tree, err := New(map[string]string{
		"DIV":   "",
		"BDE":   "DIV",
		"BN1":   "BDE",
		"BN2":   "BDE",
		"CO_A":  "BN1",
		"CO_B":  "BN1",
		"CO_C":  "BN2",
		"OTHER": "",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tree
}

func TestLineage(t *testing.T) {
	tree := sampleTree(t)

	tests := []struct {
		uic  string
		want Lineage
	}{
		{"DIV", Lineage{
			ParentUICs:      []string{},
			ChildUICs:       []string{"BDE"},
			SubordinateUICs: []string{"BDE", "BN1", "BN2", "CO_A", "CO_B", "CO_C"},
			Level:           0,
		}},
		{"BN1", Lineage{
			ParentUICs:      []string{"BDE", "DIV"},
			ChildUICs:       []string{"CO_A", "CO_B"},
			SubordinateUICs: []string{"CO_A", "CO_B"},
			Level:           2,
		}},
		{"CO_C", Lineage{
			ParentUICs:      []string{"BN2", "BDE", "DIV"},
			ChildUICs:       []string{},
			SubordinateUICs: []string{},
			Level:           3,
		}},
	}

	for _, tt := range tests {
		got := tree.Lineage(tt.uic)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Lineage(%s) = %+v, want %+v", tt.uic, got, tt.want)
		}
	}
}

func TestAllMatchesPerUnitLineage(t *testing.T) {
	tree := sampleTree(t)
	all := tree.All()
	if len(all) != 8 {
		t.Fatalf("expected 8 lineages, got %d", len(all))
	}
	for uic, l := range all {
		if !l.Equal(tree.Lineage(uic)) {
			t.Errorf("lineage of %s differs", uic)
		}
	}
}

func TestNewRejectsBadLinks(t *testing.T) {
	if _, err := New(map[string]string{"A": "B", "B": "C", "C": "A"}); !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
	if _, err := New(map[string]string{"A": "A"}); !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle for a self loop, got %v", err)
	}
	if _, err := New(map[string]string{"A": "MISSING"}); !errors.Is(err, ErrUnknownParent) {
		t.Fatalf("expected ErrUnknownParent, got %v", err)
	}
}

func TestValidateReparent(t *testing.T) {
	tree := sampleTree(t)

	if err := ValidateReparent(tree, "BN1", "OTHER"); err != nil {
		t.Fatalf("moving under another root should be allowed: %v", err)
	}
	if err := ValidateReparent(tree, "BN1", ""); err != nil {
		t.Fatalf("detaching should be allowed: %v", err)
	}
	if err := ValidateReparent(tree, "BDE", "CO_A"); !errors.Is(err, ErrCycle) {
		t.Fatalf("moving under a descendant should fail, got %v", err)
	}
	if err := ValidateReparent(tree, "BDE", "BDE"); !errors.Is(err, ErrCycle) {
		t.Fatalf("moving under itself should fail, got %v", err)
	}
	if err := ValidateReparent(tree, "BDE", "NOPE"); !errors.Is(err, ErrUnknownParent) {
		t.Fatalf("unknown parent should fail, got %v", err)
	}
}

func TestChanged(t *testing.T) {
	before := sampleTree(t).All()

	moved, err := New(map[string]string{
		"DIV":   "",
		"BDE":   "DIV",
		"BN1":   "OTHER",
		"BN2":   "BDE",
		"CO_A":  "BN1",
		"CO_B":  "BN1",
		"CO_C":  "BN2",
		"OTHER": "",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got := Changed(before, moved.All())
	want := []string{"BDE", "BN1", "CO_A", "CO_B", "DIV", "OTHER"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Changed = %v, want %v", got, want)
	}

	if changed := Changed(before, before); len(changed) != 0 {
		t.Fatalf("identical lineages should not change, got %v", changed)
	}
}

func TestSubordinatesAreBreadthFirst(t *testing.T) {
	tree, err := New(map[string]string{
		"R":  "",
		"B":  "R",
		"A":  "R",
		"B1": "B",
		"A1": "A",
		"A2": "A1",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := []string{"A", "B", "A1", "B1", "A2"}
	if got := tree.Subordinates("R"); !reflect.DeepEqual(got, want) {
		t.Fatalf("Subordinates = %v, want %v", got, want)
	}
	if !tree.IsDescendant("R", "A2") || tree.IsDescendant("B", "A2") {
		t.Fatalf("IsDescendant mismatch")
	}
}
