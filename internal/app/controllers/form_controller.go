package controllers

import (
	"net/http"

	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/ai2c/amap/internal/app/services"
	"github.com/ai2c/amap/internal/middleware"
	"github.com/gin-gonic/gin"
)

// FormController handles DA 7817 events and their lookups
type FormController struct {
	formService services.FormService
}

// NewFormController creates a new FormController
func NewFormController(formService services.FormService) *FormController {
	return &FormController{
		formService: formService,
	}
}

func (c *FormController) lookups(ctx *gin.Context, table string) {
	rows, err := c.formService.Lookups(ctx.Request.Context(), table)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, rows, "")
}

// AwardTypes lists award types
// @Summary Award types
// @Tags forms
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.Lookup}
// @Router /forms/award_types [get]
func (c *FormController) AwardTypes(ctx *gin.Context) {
	c.lookups(ctx, models.LookupAwardTypes)
}

// EventTypes lists event types
// @Summary Event types
// @Tags forms
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.Lookup}
// @Router /forms/event_types [get]
func (c *FormController) EventTypes(ctx *gin.Context) {
	c.lookups(ctx, models.LookupEventTypes)
}

// TrainingTypes lists training types
// @Summary Training types
// @Tags forms
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.Lookup}
// @Router /forms/training_types [get]
func (c *FormController) TrainingTypes(ctx *gin.Context) {
	c.lookups(ctx, models.LookupTrainingTypes)
}

// EvaluationTypes lists evaluation types
// @Summary Evaluation types
// @Tags forms
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.Lookup}
// @Router /forms/evaluation_types [get]
func (c *FormController) EvaluationTypes(ctx *gin.Context) {
	c.lookups(ctx, models.LookupEvaluationTypes)
}

// TCSLocations lists TCS locations
// @Summary TCS locations
// @Tags forms
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.TCSLocation}
// @Router /forms/tcs_locations [get]
func (c *FormController) TCSLocations(ctx *gin.Context) {
	locations, err := c.formService.TCSLocations(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, locations, "")
}

// Tasks lists the tasks an event can grade
// @Summary Tasks
// @Tags forms
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.Task}
// @Router /forms/tasks [get]
func (c *FormController) Tasks(ctx *gin.Context) {
	tasks, err := c.formService.Tasks(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, tasks, "")
}

// AddEvent records a DA 7817 event
// @Summary Add event
// @Tags forms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.EventRequest true "Event"
// @Success 201 {object} dto.APIResponse{data=dto.EventSaved}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /forms/events [post]
func (c *FormController) AddEvent(ctx *gin.Context) {
	var req dto.EventRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	saved, err := c.formService.AddEvent(ctx.Request.Context(), middleware.UserID(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, saved, saved.Message)
}

// GetEvent returns an event
// @Summary Get event
// @Tags forms
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Success 200 {object} dto.APIResponse{data=models.Event}
// @Failure 404 {object} dto.ErrorResponse
// @Router /forms/events/{id} [get]
func (c *FormController) GetEvent(ctx *gin.Context) {
	id, ok := paramInt64(ctx, "id", "Event")
	if !ok {
		return
	}

	event, err := c.formService.GetEvent(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, event, "")
}

// UpdateEvent partially updates an event
// @Summary Update event
// @Description Fields that fail validation are skipped and reported with status 206
// @Tags forms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Param request body dto.UpdateEventRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.MessageResponse}
// @Success 206 {object} dto.ErrorResponse "Some fields were not updated"
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /forms/events/{id} [put]
func (c *FormController) UpdateEvent(ctx *gin.Context) {
	id, ok := paramInt64(ctx, "id", "Event")
	if !ok {
		return
	}
	var req dto.UpdateEventRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	message, err := c.formService.UpdateEvent(ctx.Request.Context(), middleware.UserID(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, dto.MessageResponse{Message: message}, message)
}

// DeleteEvent soft deletes an event
// @Summary Delete event
// @Tags forms
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Success 200 {object} dto.APIResponse{data=dto.MessageResponse}
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /forms/events/{id} [delete]
func (c *FormController) DeleteEvent(ctx *gin.Context) {
	id, ok := paramInt64(ctx, "id", "Event")
	if !ok {
		return
	}

	message, err := c.formService.DeleteEvent(ctx.Request.Context(), middleware.UserID(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, dto.MessageResponse{Message: message}, message)
}

// ListUserEvents lists a soldier's events newest first
// @Summary Events of a soldier
// @Tags forms
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "Soldier EDIPI"
// @Success 200 {object} dto.APIResponse{data=[]dto.EventView}
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /forms/events/user/{user_id} [get]
func (c *FormController) ListUserEvents(ctx *gin.Context) {
	events, err := c.formService.ListByUser(ctx.Request.Context(), middleware.UserID(ctx), ctx.Param("user_id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, events, "")
}

// MassTraining records one training event for many soldiers
// @Summary Mass training entry
// @Description Soldiers that cannot be recorded are listed in errors; the others are saved
// @Tags forms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.MassTrainingRequest true "Training"
// @Success 201 {object} dto.APIResponse{data=dto.MassTrainingResult}
// @Failure 400 {object} dto.ErrorResponse
// @Router /forms/events/mass_training [post]
func (c *FormController) MassTraining(ctx *gin.Context) {
	var req dto.MassTrainingRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	result, err := c.formService.MassTraining(ctx.Request.Context(), middleware.UserID(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, result, "Mass training recorded")
}
