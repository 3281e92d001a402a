package services

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/pkg/apperrors"
)

const unitImportCSV = `uic,short_name,display_name,echelon,parent_uic
WEEEE0,B-CO,,co,WDDDD0
WARNGB,ARNG,,,
WGGGG0,1-GD,,BN,WARNGB
WRRRR0,USARC,,,
WSSSS0,1-RES,,BN,wrrrr0
bad!,x,,,
WFFFF0,C-CO,,CO,WZZZZ0
WBBBB0,1-BN,First Battalion,BN,WCCCC0
`

func newUnitLoader(w *world) UnitLoaderService {
	rebuilder := NewHierarchyRebuilder(w.units, &fakeClock{}, w.publisher, testLogger)
	return NewUnitLoaderService(w.tx, w.units, rebuilder, testLogger)
}

func TestImportUnits(t *testing.T) {
	w := newWorld()
	res, err := newUnitLoader(w).Import(context.Background(), strings.NewReader(unitImportCSV), "units.csv")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Created != 6 || res.Updated != 1 || res.Linked != 3 || res.GuardUnits != 1 || res.ReserveUnit != 1 {
		t.Errorf("result = %+v", res)
	}

	reasons := map[string]string{}
	for _, s := range res.Skipped {
		reasons[s.UIC] = s.Reason
	}
	want := map[string]string{
		"BAD!":   "invalid uic",
		"WFFFF0": "parent unit does not exist",
		"WBBBB0": "parent would create a cycle",
	}
	if !reflect.DeepEqual(reasons, want) {
		t.Errorf("skipped = %v", reasons)
	}

	company := w.units.units["WEEEE0"]
	if company.Echelon != "CO" || company.DisplayName != "B-CO" || !reflect.DeepEqual(company.ParentUICs, []string{"WDDDD0", "WAAAA0"}) {
		t.Errorf("company = %+v", company)
	}
	if w.units.units["WGGGG0"].Compo != models.CompoGuard || w.units.units["WSSSS0"].Compo != models.CompoReserve {
		t.Errorf("components not applied")
	}
	battalion := w.units.units["WBBBB0"]
	if battalion.DisplayName != "First Battalion" || *battalion.ParentUIC != "WAAAA0" {
		t.Errorf("battalion = %+v", battalion)
	}
	if w.tx.calls != 1 || len(w.publisher.keys()) != 1 {
		t.Errorf("tx calls %d, published %v", w.tx.calls, w.publisher.keys())
	}
}

func TestImportUnitsRequiresUICColumn(t *testing.T) {
	w := newWorld()
	_, err := newUnitLoader(w).Import(context.Background(), strings.NewReader("short_name\nA-CO\n"), "units.csv")
	if msg, _ := apperrors.MessageOf(err); !errors.Is(err, apperrors.ErrBadRequest) || msg != "Import file must have a uic column." {
		t.Fatalf("err = %v", err)
	}
	if w.tx.calls != 0 {
		t.Errorf("no transaction expected")
	}
}
