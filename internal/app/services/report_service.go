package services

import (
	"context"
	"time"

	"github.com/ai2c/amap/internal/app/auth"
	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/ai2c/amap/internal/pkg/helpers"
	"github.com/ai2c/amap/internal/pkg/report"
	"github.com/rs/zerolog"
)

// ReportService defines the interface for tabular reports
type ReportService interface {
	UnitSummary(ctx context.Context, requesterID, uic string) (*dto.UnitSummaryResponse, error)
}

type reportServiceImpl struct {
	soldiers SoldierStore
	units    UnitStore
	flags    FlagStore
	authz    *auth.AuthorizationService
	logger   zerolog.Logger
	now      func() time.Time
}

// NewReportService creates a new ReportService
func NewReportService(soldiers SoldierStore, units UnitStore, flags FlagStore, authz *auth.AuthorizationService, logger zerolog.Logger) ReportService {
	return &reportServiceImpl{
		soldiers: soldiers,
		units:    units,
		flags:    flags,
		authz:    authz,
		logger:   logger,
		now:      time.Now,
	}
}

// UnitSummary counts the AMTP maintainers of a unit and its subordinates by unit,
// primary MOS and reporting ML
func (s *reportServiceImpl) UnitSummary(ctx context.Context, requesterID, uic string) (*dto.UnitSummaryResponse, error) {
	if _, err := s.soldiers.GetByID(ctx, requesterID); err != nil {
		return nil, err
	}
	unit, err := s.units.GetByUIC(ctx, uic)
	if err != nil {
		return nil, err
	}
	if err := s.authz.RequireUnitRole(ctx, requesterID, unit); err != nil {
		return nil, err
	}

	scope := unit.SubordinateUnitHierarchy(true)
	rows, err := s.soldiers.ListMaintainers(ctx, scope)
	if err != nil {
		return nil, err
	}
	units, err := s.units.GetMany(ctx, scope)
	if err != nil {
		return nil, err
	}
	chains := make(map[string][]string, len(units))
	var chainUICs []string
	for _, u := range units {
		chains[u.UIC] = unitChain(u)
		chainUICs = append(chainUICs, chains[u.UIC]...)
	}

	var soldierIDs []string
	for _, r := range rows {
		if r.AMTP {
			soldierIDs = append(soldierIDs, r.Soldier.UserID)
		}
	}
	ownFlags, err := s.flags.ListForSoldiers(ctx, soldierIDs)
	if err != nil {
		return nil, err
	}
	unitFlags, err := s.flags.ListForUnits(ctx, dedupe(chainUICs))
	if err != nil {
		return nil, err
	}
	bySoldier := make(map[string][]*models.SoldierFlag)
	for _, f := range ownFlags {
		if f.SoldierID != nil {
			bySoldier[*f.SoldierID] = append(bySoldier[*f.SoldierID], f)
		}
	}
	byUnit := make(map[string][]*models.SoldierFlag)
	for _, f := range unitFlags {
		if f.UnitUIC != nil && f.SoldierID == nil {
			byUnit[*f.UnitUIC] = append(byUnit[*f.UnitUIC], f)
		}
	}

	today := s.now()
	stats := make([]report.SoldierStat, 0, len(soldierIDs))
	for _, r := range rows {
		if !r.AMTP {
			continue
		}
		flags := append([]*models.SoldierFlag{}, bySoldier[r.Soldier.UserID]...)
		for _, c := range chains[r.Soldier.UnitUIC] {
			flags = append(flags, byUnit[c]...)
		}
		stats = append(stats, report.SoldierStat{
			UnitShortName: r.UnitShortName,
			PrimaryMOS:    helpers.StringOrEmpty(r.Soldier.PrimaryMOS),
			ReportingML:   helpers.StringOrEmpty(r.Soldier.ReportingML),
			Availability:  string(models.PrevailingAvailability(flags, today)),
		})
	}

	s.logger.Debug().Str("uic", uic).Int("soldiers", len(stats)).Msg("Unit summary built")
	return &dto.UnitSummaryResponse{
		UIC:     unit.UIC,
		Columns: report.UnitSummaryHeader,
		Rows:    report.BuildUnitSummary(stats),
	}, nil
}
