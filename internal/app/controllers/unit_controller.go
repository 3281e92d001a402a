package controllers

import (
	"net/http"

	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/ai2c/amap/internal/app/services"
	"github.com/ai2c/amap/internal/middleware"
	"github.com/ai2c/amap/internal/pkg/helpers"
	"github.com/gin-gonic/gin"
)

// UnitController handles unit and hierarchy operations
type UnitController struct {
	unitService services.UnitService
}

// NewUnitController creates a new UnitController
func NewUnitController(unitService services.UnitService) *UnitController {
	return &UnitController{
		unitService: unitService,
	}
}

// ListUnits lists units with filters
// @Summary List units
// @Description Lists units filtered by hierarchy, role, echelon, component, state or name
// @Tags units
// @Produce json
// @Security BearerAuth
// @Param top_level_uic query string false "Only this unit and its subordinates"
// @Param role query string false "Only units where the requester holds this access level" Enums(Viewer, Recorder, Manager, Evaluator)
// @Param echelon query string false "Echelon"
// @Param compo query string false "Component"
// @Param state query string false "State"
// @Param search query string false "Short or display name contains"
// @Param sort_by query string false "Sort column" Enums(uic, short_name, display_name, echelon, level)
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Unit does not exist."
// @Router /units [get]
func (c *UnitController) ListUnits(ctx *gin.Context) {
	var req dto.UnitListRequest
	if !middleware.BindQuery(ctx, &req) {
		return
	}
	req.Page, req.Size = helpers.ParsePaginationParams(ctx)

	units, err := c.unitService.ListUnits(ctx.Request.Context(), middleware.UserID(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, units, "")
}

// ListTaskForces lists generated task force units
// @Summary List task forces
// @Tags units
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Router /units/task-forces [get]
func (c *UnitController) ListTaskForces(ctx *gin.Context) {
	page, size := helpers.ParsePaginationParams(ctx)
	units, err := c.unitService.ListTaskForces(ctx.Request.Context(), page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, units, "")
}

// GetUnit retrieves a unit
// @Summary Get unit
// @Tags units
// @Produce json
// @Security BearerAuth
// @Param uic path string true "Unit UIC"
// @Success 200 {object} dto.APIResponse{data=models.Unit}
// @Failure 401 {object} dto.ErrorResponse "Requesting user does not have a user role for this unit."
// @Failure 404 {object} dto.ErrorResponse "Unit does not exist."
// @Router /units/{uic} [get]
func (c *UnitController) GetUnit(ctx *gin.Context) {
	unit, err := c.unitService.GetUnit(ctx.Request.Context(), middleware.UserID(ctx), ctx.Param("uic"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, unit, "")
}

// GetHierarchy returns a unit with its parent and children
// @Summary Get unit hierarchy
// @Tags units
// @Produce json
// @Security BearerAuth
// @Param uic path string true "Unit UIC"
// @Success 200 {object} dto.APIResponse{data=dto.UnitHierarchyResponse}
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /units/{uic}/hierarchy [get]
func (c *UnitController) GetHierarchy(ctx *gin.Context) {
	hierarchy, err := c.unitService.GetHierarchy(ctx.Request.Context(), middleware.UserID(ctx), ctx.Param("uic"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, hierarchy, "")
}

// CreateTaskForce creates a task force with a generated UIC
// @Summary Create task force
// @Tags units
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateTaskForceRequest true "Task force"
// @Success 201 {object} dto.APIResponse{data=models.Unit}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /units [post]
func (c *UnitController) CreateTaskForce(ctx *gin.Context) {
	var req dto.CreateTaskForceRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	unit, err := c.unitService.CreateTaskForce(ctx.Request.Context(), middleware.UserID(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, unit, "Task force created")
}

// UpdateUnit updates unit attributes and parent
// @Summary Update unit
// @Description Changing parent_uic recomputes the hierarchy of every affected unit
// @Tags units
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uic path string true "Unit UIC"
// @Param request body dto.UpdateUnitRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=models.Unit}
// @Failure 400 {object} dto.ErrorResponse "A unit cannot be placed under itself or one of its subordinates."
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /units/{uic} [put]
func (c *UnitController) UpdateUnit(ctx *gin.Context) {
	var req dto.UpdateUnitRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	unit, err := c.unitService.UpdateUnit(ctx.Request.Context(), middleware.UserID(ctx), ctx.Param("uic"), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, unit, "Unit updated")
}

// UnitSoldiers lists the soldiers of each requested unit
// @Summary Soldiers of units
// @Tags units
// @Produce json
// @Security BearerAuth
// @Param uics query []string true "Unit UICs" collectionFormat(multi)
// @Success 200 {object} dto.APIResponse{data=[]dto.UnitSoldiersResponse}
// @Failure 400 {object} dto.ErrorResponse "At least one uic is required."
// @Router /units/soldiers [get]
func (c *UnitController) UnitSoldiers(ctx *gin.Context) {
	resp, err := c.unitService.UnitSoldiers(ctx.Request.Context(), middleware.UserID(ctx), ctx.QueryArray("uics"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, resp, "")
}

// RebuildHierarchy recomputes the derived lists of every unit
// @Summary Rebuild unit hierarchy
// @Tags units
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]string} "UICs whose lists changed"
// @Failure 403 {object} dto.ErrorResponse
// @Router /units/rebuild [post]
func (c *UnitController) RebuildHierarchy(ctx *gin.Context) {
	changed, err := c.unitService.RebuildHierarchy(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, changed, "Unit hierarchy rebuilt")
}
