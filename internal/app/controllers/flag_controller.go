package controllers

import (
	"net/http"

	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/ai2c/amap/internal/app/services"
	"github.com/ai2c/amap/internal/middleware"
	"github.com/gin-gonic/gin"
)

// FlagController handles soldier and unit flags
type FlagController struct {
	flagService services.FlagService
}

// NewFlagController creates a new FlagController
func NewFlagController(flagService services.FlagService) *FlagController {
	return &FlagController{
		flagService: flagService,
	}
}

// ListFlags lists a soldier's own flags and the flags of their unit
// @Summary List flags of a soldier
// @Tags flags
// @Produce json
// @Security BearerAuth
// @Param soldier_id path string true "Soldier EDIPI"
// @Success 200 {object} dto.APIResponse{data=dto.SoldierFlagsResponse}
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /flags/soldier/{soldier_id} [get]
func (c *FlagController) ListFlags(ctx *gin.Context) {
	flags, err := c.flagService.ListFlags(ctx.Request.Context(), middleware.UserID(ctx), ctx.Param("soldier_id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, flags, "")
}

// CreateFlag flags a soldier or a unit
// @Summary Create flag
// @Description At least one of soldier_id or unit_uic; soldier_id wins when both are set
// @Tags flags
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateFlagRequest true "Flag"
// @Success 201 {object} dto.APIResponse{data=models.SoldierFlag}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /flags [post]
func (c *FlagController) CreateFlag(ctx *gin.Context) {
	var req dto.CreateFlagRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	flag, err := c.flagService.CreateFlag(ctx.Request.Context(), middleware.UserID(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, flag, "Flag(s) successfully created")
}

// UpdateFlag changes a flag
// @Summary Update flag
// @Tags flags
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Flag ID"
// @Param request body dto.UpdateFlagRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=models.SoldierFlag}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /flags/{id} [put]
func (c *FlagController) UpdateFlag(ctx *gin.Context) {
	id, ok := paramInt64(ctx, "id", "Flag")
	if !ok {
		return
	}
	var req dto.UpdateFlagRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	flag, err := c.flagService.UpdateFlag(ctx.Request.Context(), middleware.UserID(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, flag, "Flag updated")
}

// DeleteFlag soft deletes a flag
// @Summary Delete flag
// @Tags flags
// @Produce json
// @Security BearerAuth
// @Param id path int true "Flag ID"
// @Success 200 {object} dto.APIResponse{data=dto.MessageResponse}
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /flags/{id} [delete]
func (c *FlagController) DeleteFlag(ctx *gin.Context) {
	id, ok := paramInt64(ctx, "id", "Flag")
	if !ok {
		return
	}

	message, err := c.flagService.DeleteFlag(ctx.Request.Context(), middleware.UserID(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, dto.MessageResponse{Message: message}, message)
}
