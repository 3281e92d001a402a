package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/ai2c/amap/internal/app/repositories"
	"github.com/ai2c/amap/internal/pkg/events"
	"github.com/ai2c/amap/internal/pkg/validation"
	"github.com/rs/zerolog"
)

// OfficerMaintainerMOS replaces 15B for officers
const OfficerMaintainerMOS = "15B-O"

// SoldierETLService defines the interface for the soldier transform
type SoldierETLService interface {
	TransformSoldiers(ctx context.Context) (*dto.SoldierETLResult, error)
}

// SoldierPlacement names where new soldiers land
type SoldierPlacement struct {
	TransientUIC   string
	OnboardingUICs []string
}

type soldierETLServiceImpl struct {
	tx        Transactor
	raw       RawSource
	soldiers  SoldierStore
	units     UnitStore
	publisher events.Publisher
	placement SoldierPlacement
	logger    zerolog.Logger
}

// NewSoldierETLService creates a new SoldierETLService. raw may be nil when no staging
// database is configured.
func NewSoldierETLService(
	tx Transactor,
	raw RawSource,
	soldiers SoldierStore,
	units UnitStore,
	publisher events.Publisher,
	placement SoldierPlacement,
	logger zerolog.Logger,
) SoldierETLService {
	return &soldierETLServiceImpl{
		tx:        tx,
		raw:       raw,
		soldiers:  soldiers,
		units:     units,
		publisher: publisher,
		placement: placement,
		logger:    logger,
	}
}

// TransformSoldiers creates accounts for new soldiers and moves soldiers held in the
// transient unit into onboarding units
func (s *soldierETLServiceImpl) TransformSoldiers(ctx context.Context) (*dto.SoldierETLResult, error) {
	if s.raw == nil {
		return nil, ErrNoRawSource
	}
	records, err := s.raw.Soldiers(ctx)
	if err != nil {
		return nil, err
	}

	transient, err := s.units.GetByUIC(ctx, s.placement.TransientUIC)
	if err != nil {
		return nil, fmt.Errorf("transient unit %s: %w", s.placement.TransientUIC, err)
	}
	onboarding, err := s.onboardingSet(ctx)
	if err != nil {
		return nil, err
	}
	mosCodes, err := s.soldiers.ListMOS(ctx, repositories.MOSKindAll)
	if err != nil {
		return nil, err
	}
	knownMOS := make(map[string]bool, len(mosCodes))
	for _, m := range mosCodes {
		knownMOS[m.MOS] = true
	}

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.EDIPI)
	}
	existing, err := s.soldiers.GetMany(ctx, dedupe(ids))
	if err != nil {
		return nil, err
	}

	result := &dto.SoldierETLResult{}
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		for _, r := range records {
			if !validation.IsDoDID(r.EDIPI) || r.FirstName == nil || r.LastName == nil {
				result.Skipped++
				continue
			}
			rawUIC := ""
			if r.UIC != nil {
				rawUIC = *r.UIC
			}

			current, ok := existing[r.EDIPI]
			if !ok {
				soldier := s.newSoldier(r, knownMOS, result)
				soldier.UnitUIC = transient.UIC
				if onboarding[rawUIC] {
					soldier.UnitUIC = rawUIC
				}
				if err := s.soldiers.Create(ctx, soldier); err != nil {
					return err
				}
				existing[r.EDIPI] = soldier
				result.Created++
				continue
			}

			if rank := upper(r.Rank); rank != "" && rank != current.Rank {
				current.Rank = rank
				if err := s.soldiers.Update(ctx, current); err != nil {
					return err
				}
				result.Updated++
			}
			if current.UnitUIC == transient.UIC && onboarding[rawUIC] {
				if err := s.soldiers.SetUnit(ctx, current.UserID, rawUIC); err != nil {
					return err
				}
				current.UnitUIC = rawUIC
				result.MovedFromHold++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Message = fmt.Sprintf("Created %d new accounts; moved %d into onboarding units", result.Created, result.MovedFromHold)
	s.publisher.Publish(ctx, events.ETLCompleted, map[string]interface{}{
		"job":    "soldiers",
		"result": result,
	})
	s.logger.Info().
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("moved", result.MovedFromHold).
		Int("skipped", result.Skipped).
		Int("unknownMOS", result.UnknownMOS).
		Msg("Soldier transform finished")
	return result, nil
}

func (s *soldierETLServiceImpl) newSoldier(r *models.RawSoldier, knownMOS map[string]bool, result *dto.SoldierETLResult) *models.Soldier {
	rank := upper(r.Rank)
	soldier := &models.Soldier{
		UserID:    r.EDIPI,
		Rank:      rank,
		FirstName: strings.TrimSpace(*r.FirstName),
		LastName:  strings.TrimSpace(*r.LastName),
		DoDEmail:  r.DoDEmail,
	}

	if mos := upper(r.PrimaryMOS); mos != "" {
		if mos == "15B" && models.IsOfficer(rank) {
			mos = OfficerMaintainerMOS
		}
		if knownMOS[mos] {
			soldier.PrimaryMOS = &mos
			soldier.IsMaintainer = models.IsMaintainerMOS(mos)
		} else {
			result.UnknownMOS++
		}
	}
	if r.BirthMonth != nil {
		if month, ok := models.MonthAbbreviation(*r.BirthMonth); ok {
			soldier.BirthMonth = &month
		}
	}
	return soldier
}

// onboardingSet is every onboarding unit with its subordinates
func (s *soldierETLServiceImpl) onboardingSet(ctx context.Context) (map[string]bool, error) {
	units, err := s.units.GetMany(ctx, s.placement.OnboardingUICs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool)
	for _, u := range units {
		for _, uic := range u.SubordinateUnitHierarchy(true) {
			out[uic] = true
		}
	}
	return out, nil
}

func upper(s *string) string {
	if s == nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(*s))
}
