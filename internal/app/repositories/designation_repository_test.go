package repositories

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/Masterminds/squirrel"
)

func TestDesignationRepository_ListQuery(t *testing.T) {
	repo := NewDesignationRepository(nil)

	sql, args, err := repo.listQuery(squirrel.Eq{"sd.soldier_id": []string{"1000000003", "1000000004"}, "sd.designation_removed": false}).ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	for _, want := range []string{
		"FROM soldier_designations sd JOIN designations d ON d.id = sd.designation_id",
		"sd.designation_removed = $1",
		"sd.soldier_id IN ($2,$3)",
		"ORDER BY sd.start_date DESC, sd.id",
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("sql %q does not contain %q", sql, want)
		}
	}
	if want := []interface{}{false, "1000000003", "1000000004"}; !reflect.DeepEqual(args, want) {
		t.Errorf("args = %v, want %v", args, want)
	}
}

func TestDesignationRepository_EmptyInputSkipsQuery(t *testing.T) {
	repo := NewDesignationRepository(nil)

	bySoldier, err := repo.ListForSoldiers(context.Background(), nil)
	if err != nil || len(bySoldier) != 0 {
		t.Errorf("ListForSoldiers = %v, %v", bySoldier, err)
	}
	byUnit, err := repo.ListForUnits(context.Background(), []string{})
	if err != nil || len(byUnit) != 0 {
		t.Errorf("ListForUnits = %v, %v", byUnit, err)
	}
}
