package controllers

import (
	"net/http"
	"strconv"

	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/ai2c/amap/internal/app/services"
	"github.com/ai2c/amap/internal/middleware"
	"github.com/gin-gonic/gin"
)

// DesignationController handles soldier designations
type DesignationController struct {
	designationService services.DesignationService
}

// NewDesignationController creates a new DesignationController
func NewDesignationController(designationService services.DesignationService) *DesignationController {
	return &DesignationController{
		designationService: designationService,
	}
}

// ListTypes lists the designations a soldier can hold
// @Summary List designation types
// @Tags designations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.Designation}
// @Failure 401 {object} dto.ErrorResponse
// @Router /designations/types [get]
func (c *DesignationController) ListTypes(ctx *gin.Context) {
	types, err := c.designationService.ListTypes(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, types, "")
}

// ListDesignations lists the designations of a soldier
// @Summary List soldier designations
// @Description user_id ALL lists every designation in the requester's managed units
// @Tags designations
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "Soldier EDIPI or ALL"
// @Param current query bool false "Only designations active today"
// @Success 200 {object} dto.APIResponse{data=[]dto.DesignationView}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /designations/soldier/{user_id} [get]
func (c *DesignationController) ListDesignations(ctx *gin.Context) {
	current := false
	if raw := ctx.Query("current"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(ctx, "current must be true or false")
			return
		}
		current = parsed
	}

	views, err := c.designationService.ListDesignations(ctx.Request.Context(), middleware.UserID(ctx), ctx.Param("user_id"), current)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, views, "")
}

// CreateDesignation gives a soldier a designation
// @Summary Create soldier designation
// @Tags designations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateDesignationRequest true "Designation"
// @Success 201 {object} dto.APIResponse{data=dto.DesignationResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /designations [post]
func (c *DesignationController) CreateDesignation(ctx *gin.Context) {
	var req dto.CreateDesignationRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.designationService.CreateDesignation(ctx.Request.Context(), middleware.UserID(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, resp, resp.Message)
}

// RemoveDesignation removes a designation from the soldier's record
// @Summary Remove soldier designation
// @Tags designations
// @Produce json
// @Security BearerAuth
// @Param id path int true "Soldier designation ID"
// @Success 200 {object} dto.APIResponse{data=dto.DesignationResponse}
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /designations/{id} [delete]
func (c *DesignationController) RemoveDesignation(ctx *gin.Context) {
	id, ok := paramInt64(ctx, "id", "Designation")
	if !ok {
		return
	}

	resp, err := c.designationService.RemoveDesignation(ctx.Request.Context(), middleware.UserID(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, resp, resp.Message)
}
