package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/ai2c/amap/internal/pkg/apperrors"
	"github.com/ai2c/amap/internal/pkg/hierarchy"
	"github.com/ai2c/amap/internal/pkg/report"
	"github.com/ai2c/amap/internal/pkg/validation"
	"github.com/rs/zerolog"
)

// Roots whose subordinates take the Guard and Reserve components
const (
	GuardRootUIC         = "WARNGB"
	ReserveRootShortName = "USARC"
)

// UnitLoaderService imports units from a CSV or XLSX file
type UnitLoaderService interface {
	Import(ctx context.Context, r io.Reader, filename string) (*dto.UnitImportResult, error)
}

type unitLoaderServiceImpl struct {
	tx        Transactor
	units     UnitStore
	hierarchy *HierarchyRebuilder
	logger    zerolog.Logger
}

// NewUnitLoaderService creates a new UnitLoaderService
func NewUnitLoaderService(tx Transactor, units UnitStore, rebuilder *HierarchyRebuilder, logger zerolog.Logger) UnitLoaderService {
	return &unitLoaderServiceImpl{
		tx:        tx,
		units:     units,
		hierarchy: rebuilder,
		logger:    logger,
	}
}

// Import upserts unit attributes, then links parents and rebuilds the hierarchy,
// all in one transaction
func (s *unitLoaderServiceImpl) Import(ctx context.Context, r io.Reader, filename string) (*dto.UnitImportResult, error) {
	rows, err := report.ReadUnitRows(r, filename)
	if err != nil {
		if errors.Is(err, report.ErrMissingUICColumn) {
			return nil, apperrors.NewBadRequestError("Import file must have a uic column.")
		}
		return nil, apperrors.NewBadRequestError(err.Error())
	}

	result := &dto.UnitImportResult{Skipped: []dto.SkippedRow{}}
	var changed []string
	var logicalTime int64

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.units.LockHierarchy(ctx); err != nil {
			return err
		}

		valid := make([]report.UnitRow, 0, len(rows))
		for _, row := range rows {
			if !validation.IsUIC(row.UIC) {
				result.Skipped = append(result.Skipped, dto.SkippedRow{Line: row.Line, UIC: row.UIC, Reason: "invalid uic"})
				continue
			}
			created, err := s.upsert(ctx, row)
			if err != nil {
				return fmt.Errorf("line %d: %w", row.Line, err)
			}
			if created {
				result.Created++
			} else {
				result.Updated++
			}
			valid = append(valid, row)
		}

		links, err := s.units.ParentLinks(ctx)
		if err != nil {
			return err
		}

		for _, row := range valid {
			parent := row.ParentUIC
			if parent != "" {
				if _, ok := links[parent]; !ok {
					result.Skipped = append(result.Skipped, dto.SkippedRow{Line: row.Line, UIC: row.UIC, Reason: "parent unit does not exist"})
					continue
				}
				if createsCycle(links, row.UIC, parent) {
					result.Skipped = append(result.Skipped, dto.SkippedRow{Line: row.Line, UIC: row.UIC, Reason: "parent would create a cycle"})
					continue
				}
			}
			if links[row.UIC] == parent {
				continue
			}

			var parentPtr *string
			if parent != "" {
				p := parent
				parentPtr = &p
			}
			if err := s.units.SetParent(ctx, row.UIC, parentPtr); err != nil {
				return err
			}
			links[row.UIC] = parent
			result.Linked++
		}

		changed, logicalTime, err = s.hierarchy.rebuildFrom(ctx, links)
		if err != nil {
			return err
		}

		result.GuardUnits, result.ReserveUnit, err = s.applyComponents(ctx, links)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.hierarchy.Announce(ctx, changed, logicalTime)

	s.logger.Info().
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("linked", result.Linked).
		Int("skipped", len(result.Skipped)).
		Msg("Unit import finished")
	return result, nil
}

func (s *unitLoaderServiceImpl) upsert(ctx context.Context, row report.UnitRow) (bool, error) {
	unit, err := s.units.GetByUIC(ctx, row.UIC)
	created := false
	if err != nil {
		if !errors.Is(err, apperrors.ErrResourceNotFound) {
			return false, err
		}
		unit = &models.Unit{UIC: row.UIC, StartDate: models.DefaultUnitStartDate}
		created = true
	}

	if row.ShortName != "" {
		unit.ShortName = row.ShortName
	}
	if unit.ShortName == "" {
		unit.ShortName = row.UIC
	}
	if row.DisplayName != "" {
		unit.DisplayName = row.DisplayName
	}
	if unit.DisplayName == "" {
		unit.DisplayName = unit.ShortName
	}
	if row.Echelon != "" {
		unit.Echelon = row.Echelon
	}
	if unit.Echelon == models.EchelonState {
		state := strings.Fields(unit.ShortName)[0]
		unit.State = &state
	}
	if unit.IsTaskForce() {
		unit.Compo = models.CompoTaskForce
	} else {
		unit.Compo = models.CompoActive
	}

	if created {
		return true, s.units.Create(ctx, unit)
	}
	return false, s.units.UpdateAttributes(ctx, unit)
}

// applyComponents marks the subordinates of the Guard and Reserve roots
func (s *unitLoaderServiceImpl) applyComponents(ctx context.Context, links map[string]string) (int64, int64, error) {
	tree, err := hierarchy.New(links)
	if err != nil {
		return 0, 0, err
	}

	var guard, reserve int64
	if tree.Contains(GuardRootUIC) {
		guard, err = s.units.SetCompo(ctx, tree.Subordinates(GuardRootUIC), models.CompoGuard)
		if err != nil {
			return 0, 0, err
		}
	}

	usarc, err := s.units.FindByShortName(ctx, ReserveRootShortName)
	switch {
	case err == nil:
		reserve, err = s.units.SetCompo(ctx, tree.Subordinates(usarc.UIC), models.CompoReserve)
		if err != nil {
			return 0, 0, err
		}
	case !errors.Is(err, apperrors.ErrResourceNotFound):
		return 0, 0, err
	}
	return guard, reserve, nil
}

// createsCycle reports whether linking uic under parent would close a loop
func createsCycle(links map[string]string, uic, parent string) bool {
	for p, steps := parent, 0; p != "" && steps <= len(links); p, steps = links[p], steps+1 {
		if p == uic {
			return true
		}
	}
	return false
}
