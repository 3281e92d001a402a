package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ai2c/amap/internal/app/auth"
	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/ai2c/amap/internal/pkg/apperrors"
	"github.com/ai2c/amap/internal/pkg/helpers"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Messages returned by event operations
const (
	MsgEventSaved   = "Da7817 Event Record Saved"
	MsgEventUpdated = "DA-7817 Event Record Updated Successfully"
	MsgEventDeleted = "DA-7817 Deleted Successfully"
)

// FormService defines the interface for form lookups and DA 7817 events
type FormService interface {
	Lookups(ctx context.Context, table string) ([]*models.Lookup, error)
	TCSLocations(ctx context.Context) ([]*models.TCSLocation, error)
	Tasks(ctx context.Context) ([]*models.Task, error)
	AddEvent(ctx context.Context, requesterID string, req *dto.EventRequest) (*dto.EventSaved, error)
	GetEvent(ctx context.Context, id int64) (*models.Event, error)
	UpdateEvent(ctx context.Context, requesterID string, id int64, req *dto.UpdateEventRequest) (string, error)
	DeleteEvent(ctx context.Context, requesterID string, id int64) (string, error)
	ListByUser(ctx context.Context, requesterID, userID string) ([]dto.EventView, error)
	MassTraining(ctx context.Context, requesterID string, req *dto.MassTrainingRequest) (*dto.MassTrainingResult, error)
}

type formServiceImpl struct {
	tx        Transactor
	events    EventStore
	soldiers  SoldierStore
	units     UnitStore
	documents DocumentStore
	authz     *auth.AuthorizationService
	logger    zerolog.Logger
}

// NewFormService creates a new FormService
func NewFormService(
	tx Transactor,
	events EventStore,
	soldiers SoldierStore,
	units UnitStore,
	documents DocumentStore,
	authz *auth.AuthorizationService,
	logger zerolog.Logger,
) FormService {
	return &formServiceImpl{
		tx:        tx,
		events:    events,
		soldiers:  soldiers,
		units:     units,
		documents: documents,
		authz:     authz,
		logger:    logger,
	}
}

// Lookups lists one of the typed lookup tables
func (s *formServiceImpl) Lookups(ctx context.Context, table string) ([]*models.Lookup, error) {
	return s.events.ListLookup(ctx, table)
}

// TCSLocations lists training center locations
func (s *formServiceImpl) TCSLocations(ctx context.Context) ([]*models.TCSLocation, error) {
	return s.events.ListTCSLocations(ctx)
}

// Tasks lists every gradable task
func (s *formServiceImpl) Tasks(ctx context.Context) ([]*models.Task, error) {
	return s.events.ListTasks(ctx, nil)
}

// AddEvent records a DA 7817 event for a soldier
func (s *formServiceImpl) AddEvent(ctx context.Context, requesterID string, req *dto.EventRequest) (*dto.EventSaved, error) {
	if _, err := s.soldiers.GetByID(ctx, requesterID); err != nil {
		return nil, err
	}
	soldier, err := s.soldiers.GetByID(ctx, req.SoldierID)
	if err != nil {
		return nil, err
	}
	date, err := helpers.ParseISODate(req.Date)
	if err != nil {
		return nil, apperrors.NewValidationError("date", "Invalid date format. Please use YYYY-MM-DD.")
	}

	event := &models.Event{
		SoldierID:        soldier.UserID,
		Date:             date,
		EventType:        req.EventType,
		TotalMxHours:     req.TotalMxHours,
		Comment:          req.Comment,
		MaintenanceLevel: req.MaintenanceLevel,
		RecordedBy:       helpers.StringPtr(requesterID),
		AttachedDA4856:   req.AttachedDA4856,
	}
	if req.GoNoGo != nil {
		g := models.GoNoGo(*req.GoNoGo)
		event.GoNoGo = &g
	}
	if err := s.resolveEventFields(ctx, event, req); err != nil {
		return nil, err
	}
	tasks, err := s.eventTasks(ctx, req.Tasks)
	if err != nil {
		return nil, err
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.events.Create(ctx, event); err != nil {
			return err
		}
		if err := s.events.ReplaceTasks(ctx, event.ID, tasks); err != nil {
			return err
		}
		return s.refreshReportingML(ctx, soldier.UserID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("eventID", event.ID).Str("soldierID", soldier.UserID).Str("by", requesterID).Msg("DA 7817 event recorded")
	return &dto.EventSaved{Message: MsgEventSaved, ID: event.ID}, nil
}

// resolveEventFields checks every referenced row of a new event
func (s *formServiceImpl) resolveEventFields(ctx context.Context, event *models.Event, req *dto.EventRequest) error {
	if err := s.requireLookup(ctx, models.LookupEventTypes, &req.EventType, apperrors.MsgEventTypeNotFound); err != nil {
		return err
	}
	if _, err := s.units.GetByUIC(ctx, req.UIC); err != nil {
		return err
	}
	event.UIC = req.UIC

	if err := s.requireLookup(ctx, models.LookupTrainingTypes, req.TrainingType, apperrors.MsgTrainingTypeNotFound); err != nil {
		return err
	}
	if err := s.requireLookup(ctx, models.LookupEvaluationTypes, req.EvaluationType, apperrors.MsgEvalTypeNotFound); err != nil {
		return err
	}
	if err := s.requireLookup(ctx, models.LookupAwardTypes, req.AwardType, apperrors.MsgAwardTypeNotFound); err != nil {
		return err
	}
	if err := s.requireTCSLocation(ctx, req.TCSLocation); err != nil {
		return err
	}
	event.TrainingType = nonEmpty(req.TrainingType)
	event.EvaluationType = nonEmpty(req.EvaluationType)
	event.AwardType = nonEmpty(req.AwardType)
	event.TCSLocation = nonEmpty(req.TCSLocation)

	if models.KeepsGainingUnit(req.EventType) && nonEmpty(req.GainingUnit) != nil {
		if _, err := s.units.GetByUIC(ctx, *req.GainingUnit); err != nil {
			return err
		}
		event.GainingUnit = req.GainingUnit
	}
	if mos := nonEmpty(req.MOS); mos != nil {
		if err := s.requireMOS(ctx, *mos); err != nil {
			return err
		}
		event.MOS = mos
	}
	return s.requireCounseling(ctx, req.AttachedDA4856)
}

// GetEvent returns a non-deleted event
func (s *formServiceImpl) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	return s.events.GetByID(ctx, id)
}

// UpdateEvent applies the given fields. Invalid dates, unknown gaining units and negative
// hours are skipped and reported through a partial update error after the rest is saved.
func (s *formServiceImpl) UpdateEvent(ctx context.Context, requesterID string, id int64, req *dto.UpdateEventRequest) (string, error) {
	if _, err := s.soldiers.GetByID(ctx, requesterID); err != nil {
		return "", err
	}
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	var failed []string
	if req.Date != nil {
		if d, err := helpers.ParseISODate(*req.Date); err != nil {
			failed = append(failed, "date")
		} else {
			event.Date = d
		}
	}
	if req.UIC != nil {
		if _, err := s.units.GetByUIC(ctx, *req.UIC); err != nil {
			return "", err
		}
		event.UIC = *req.UIC
	}
	if req.EventType != nil {
		if err := s.requireLookup(ctx, models.LookupEventTypes, req.EventType, apperrors.MsgEventTypeNotFound); err != nil {
			return "", err
		}
		event.EventType = *req.EventType
	}
	if nonEmpty(req.TrainingType) != nil {
		if err := s.requireLookup(ctx, models.LookupTrainingTypes, req.TrainingType, apperrors.MsgTrainingTypeNotFound); err != nil {
			return "", err
		}
		event.TrainingType = req.TrainingType
	}
	if nonEmpty(req.EvaluationType) != nil {
		if err := s.requireLookup(ctx, models.LookupEvaluationTypes, req.EvaluationType, apperrors.MsgEvalTypeNotFound); err != nil {
			return "", err
		}
		event.EvaluationType = req.EvaluationType
	}
	if nonEmpty(req.AwardType) != nil {
		if err := s.requireLookup(ctx, models.LookupAwardTypes, req.AwardType, apperrors.MsgAwardTypeNotFound); err != nil {
			return "", err
		}
		event.AwardType = req.AwardType
	}
	if nonEmpty(req.TCSLocation) != nil {
		if err := s.requireTCSLocation(ctx, req.TCSLocation); err != nil {
			return "", err
		}
		event.TCSLocation = req.TCSLocation
	}
	if nonEmpty(req.GainingUnit) != nil {
		exists, err := s.units.Exists(ctx, *req.GainingUnit)
		if err != nil {
			return "", err
		}
		if exists {
			event.GainingUnit = req.GainingUnit
		} else {
			failed = append(failed, "gaining_unit")
		}
	}
	if req.GoNoGo != nil {
		g := models.GoNoGo(*req.GoNoGo)
		event.GoNoGo = &g
	}
	if req.TotalMxHours != nil {
		if *req.TotalMxHours < 0 {
			failed = append(failed, "total_mx_hours")
		} else {
			event.TotalMxHours = *req.TotalMxHours
		}
	}
	if req.Comment != nil {
		event.Comment = req.Comment
	}
	if req.MaintenanceLevel != nil {
		event.MaintenanceLevel = req.MaintenanceLevel
	}
	if req.MOS != nil {
		if err := s.requireMOS(ctx, *req.MOS); err != nil {
			return "", err
		}
		event.MOS = req.MOS
	}
	if req.AttachedDA4856 != nil {
		if err := s.requireCounseling(ctx, req.AttachedDA4856); err != nil {
			return "", err
		}
		event.AttachedDA4856 = req.AttachedDA4856
	}

	var tasks []models.EventTask
	if req.Tasks != nil {
		if tasks, err = s.eventTasks(ctx, *req.Tasks); err != nil {
			return "", err
		}
	}
	event.RecordedBy = helpers.StringPtr(requesterID)

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.events.Update(ctx, event); err != nil {
			return err
		}
		if req.Tasks != nil {
			if err := s.events.ReplaceTasks(ctx, event.ID, tasks); err != nil {
				return err
			}
		}
		return s.refreshReportingML(ctx, event.SoldierID)
	})
	if err != nil {
		return "", err
	}

	if len(failed) > 0 {
		s.logger.Warn().Int64("eventID", id).Strs("failed", failed).Msg("DA 7817 event partially updated")
		return "", apperrors.NewPartialUpdateError(
			fmt.Sprintf("DA-7817 form %d only received partial updates; fields [%s] were not successful.", event.ID, strings.Join(failed, ", ")),
			failed,
		)
	}
	return MsgEventUpdated, nil
}

// DeleteEvent soft deletes an event and drops its tasks
func (s *formServiceImpl) DeleteEvent(ctx context.Context, requesterID string, id int64) (string, error) {
	if _, err := s.soldiers.GetByID(ctx, requesterID); err != nil {
		return "", err
	}
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	event.EventDeleted = true

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.events.Update(ctx, event); err != nil {
			return err
		}
		if err := s.events.ReplaceTasks(ctx, event.ID, nil); err != nil {
			return err
		}
		return s.refreshReportingML(ctx, event.SoldierID)
	})
	if err != nil {
		return "", err
	}
	s.logger.Info().Int64("eventID", id).Str("by", requesterID).Msg("DA 7817 event deleted")
	return MsgEventDeleted, nil
}

// ListByUser returns a soldier's events newest first
func (s *formServiceImpl) ListByUser(ctx context.Context, requesterID, userID string) ([]dto.EventView, error) {
	if _, err := s.soldiers.GetByID(ctx, requesterID); err != nil {
		return nil, err
	}
	soldier, err := s.soldiers.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.RequireSoldierAccess(ctx, requesterID, soldier); err != nil {
		return nil, err
	}

	events, err := s.events.ListBySoldier(ctx, soldier.UserID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(events))
	var recorders []string
	for _, e := range events {
		ids = append(ids, e.ID)
		if e.RecordedBy != nil {
			recorders = append(recorders, *e.RecordedBy)
		}
	}
	tasks, err := s.events.TasksFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	withDocs, err := s.events.EventsWithDocuments(ctx, ids)
	if err != nil {
		return nil, err
	}
	recordedBy, err := s.soldiers.GetMany(ctx, dedupe(recorders))
	if err != nil {
		return nil, err
	}

	views := make([]dto.EventView, 0, len(events))
	for _, e := range events {
		v := dto.EventView{
			Event:           *e,
			Date:            eventDate(e.Date),
			RecordedByName:  e.RecordedByLegacy,
			Tasks:           tasks[e.ID],
			HasAssociations: e.AttachedDA4856 != nil || withDocs[e.ID],
		}
		if e.RecordedBy != nil {
			if r := recordedBy[*e.RecordedBy]; r != nil {
				v.RecordedByName = helpers.StringPtr(r.NameAndRank())
			}
		}
		if v.Tasks == nil {
			v.Tasks = []models.EventTask{}
		}
		views = append(views, v)
	}
	return views, nil
}

// MassTraining records the same training for many soldiers under one mass entry key.
// Soldiers that cannot be recorded are reported without failing the others.
func (s *formServiceImpl) MassTraining(ctx context.Context, requesterID string, req *dto.MassTrainingRequest) (*dto.MassTrainingResult, error) {
	if _, err := s.soldiers.GetByID(ctx, requesterID); err != nil {
		return nil, err
	}
	date, err := helpers.ParseISODate(req.Date)
	if err != nil {
		return nil, apperrors.NewValidationError("date", "Invalid date format. Please use YYYY-MM-DD.")
	}

	template := &models.Event{
		Date:         date,
		EventType:    req.EventType,
		TotalMxHours: req.TotalMxHours,
		Comment:      req.Comment,
		RecordedBy:   helpers.StringPtr(requesterID),
		MassEntryKey: helpers.StringPtr(massEntryKey()),
	}
	if req.GoNoGo != nil {
		g := models.GoNoGo(*req.GoNoGo)
		template.GoNoGo = &g
	}
	if err := s.resolveEventFields(ctx, template, &dto.EventRequest{
		UIC:            req.UIC,
		EventType:      req.EventType,
		TrainingType:   req.TrainingType,
		EvaluationType: req.EvaluationType,
	}); err != nil {
		return nil, err
	}
	tasks, err := s.eventTasks(ctx, req.Tasks)
	if err != nil {
		return nil, err
	}

	result := &dto.MassTrainingResult{MassEntryKey: *template.MassEntryKey, Errors: []dto.MassEntryError{}}
	for _, id := range dedupe(req.SoldierIDs) {
		if err := s.recordFor(ctx, requesterID, id, template, tasks); err != nil {
			msg, ok := apperrors.MessageOf(err)
			if !ok {
				msg = "Could not record event."
				s.logger.Error().Err(err).Str("soldierID", id).Msg("Mass training entry failed")
			}
			result.Errors = append(result.Errors, dto.MassEntryError{SoldierID: id, Error: msg})
			continue
		}
		result.SuccessCount++
	}
	s.logger.Info().
		Str("massEntryKey", result.MassEntryKey).
		Int("recorded", result.SuccessCount).
		Int("failed", len(result.Errors)).
		Msg("Mass training recorded")
	return result, nil
}

func (s *formServiceImpl) recordFor(ctx context.Context, requesterID, soldierID string, template *models.Event, tasks []models.EventTask) error {
	soldier, err := s.soldiers.GetByID(ctx, soldierID)
	if err != nil {
		return err
	}
	if err := s.authz.RequireSoldierAccess(ctx, requesterID, soldier); err != nil {
		return err
	}
	event := *template
	event.SoldierID = soldier.UserID
	return s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.events.Create(ctx, &event); err != nil {
			return err
		}
		if err := s.events.ReplaceTasks(ctx, event.ID, tasks); err != nil {
			return err
		}
		return s.refreshReportingML(ctx, soldier.UserID)
	})
}

func (s *formServiceImpl) requireLookup(ctx context.Context, table string, value *string, notFound string) error {
	if value == nil || *value == "" {
		if table == models.LookupEventTypes {
			return apperrors.NewResourceNotFoundError(notFound)
		}
		return nil
	}
	ok, err := s.events.LookupExists(ctx, table, *value)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewResourceNotFoundError(notFound)
	}
	return nil
}

func (s *formServiceImpl) requireTCSLocation(ctx context.Context, abbreviation *string) error {
	if nonEmpty(abbreviation) == nil {
		return nil
	}
	locations, err := s.events.ListTCSLocations(ctx)
	if err != nil {
		return err
	}
	for _, l := range locations {
		if l.Abbreviation == *abbreviation {
			return nil
		}
	}
	return apperrors.NewResourceNotFoundError(apperrors.MsgTCSLocationNotFound)
}

func (s *formServiceImpl) requireMOS(ctx context.Context, mos string) error {
	ok, err := s.soldiers.MOSExists(ctx, mos)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewResourceNotFoundError(apperrors.MsgMOSNotFound)
	}
	return nil
}

func (s *formServiceImpl) requireCounseling(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	_, err := s.documents.GetCounseling(ctx, *id)
	return err
}

// eventTasks resolves graded task numbers; an unknown number is a 404
func (s *formServiceImpl) eventTasks(ctx context.Context, reqs []dto.EventTaskRequest) ([]models.EventTask, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	numbers := make([]string, 0, len(reqs))
	for _, r := range reqs {
		numbers = append(numbers, r.TaskNumber)
	}
	known, err := s.events.ListTasks(ctx, dedupe(numbers))
	if err != nil {
		return nil, err
	}
	titles := make(map[string]string, len(known))
	for _, t := range known {
		titles[t.TaskNumber] = t.TaskTitle
	}

	out := make([]models.EventTask, 0, len(reqs))
	for _, r := range reqs {
		title, ok := titles[r.TaskNumber]
		if !ok {
			return nil, apperrors.NewResourceNotFoundError(apperrors.MsgTaskNotFound)
		}
		out = append(out, models.EventTask{TaskNumber: r.TaskNumber, TaskTitle: title, GoNoGo: models.GoNoGo(r.GoNoGo)})
	}
	return out, nil
}

// refreshReportingML sets the soldier's reporting ML from the latest event having one
func (s *formServiceImpl) refreshReportingML(ctx context.Context, soldierID string) error {
	ml, err := s.events.LatestMaintenanceLevel(ctx, soldierID)
	if err != nil {
		return err
	}
	return s.soldiers.SetReportingML(ctx, soldierID, ml)
}

func massEntryKey() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

// eventDate formats an event date for display
func eventDate(t time.Time) string {
	return t.Format("01/02/2006")
}
