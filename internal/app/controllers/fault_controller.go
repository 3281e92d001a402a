package controllers

import (
	"net/http"

	"github.com/ai2c/amap/internal/app/services"
	"github.com/ai2c/amap/internal/middleware"
	"github.com/gin-gonic/gin"
)

// FaultController serves maintenance fault history
type FaultController struct {
	faultService services.FaultService
}

// NewFaultController creates a new FaultController
func NewFaultController(faultService services.FaultService) *FaultController {
	return &FaultController{
		faultService: faultService,
	}
}

// StatusCodes lists fault status codes with their descriptions
// @Summary Fault status codes
// @Tags faults
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.CodeOption}
// @Router /faults/status_codes [get]
func (c *FaultController) StatusCodes(ctx *gin.Context) {
	respond(ctx, http.StatusOK, c.faultService.StatusCodes(), "")
}

// GetFault returns a fault with its actions
// @Summary Get fault
// @Tags faults
// @Produce json
// @Security BearerAuth
// @Param fault_id path string true "Fault ID"
// @Success 200 {object} dto.APIResponse{data=dto.FaultDetailResponse}
// @Failure 404 {object} dto.ErrorResponse "Fault does not exist."
// @Router /faults/{fault_id} [get]
func (c *FaultController) GetFault(ctx *gin.Context) {
	fault, err := c.faultService.GetFault(ctx.Request.Context(), ctx.Param("fault_id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, fault, "")
}

// SoldierHistory lists every fault action a soldier worked on
// @Summary Fault history of a soldier
// @Tags faults
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "Soldier EDIPI"
// @Success 200 {object} dto.APIResponse{data=[]dto.SoldierFaultHistoryRow}
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /faults/soldier/{user_id}/history [get]
func (c *FaultController) SoldierHistory(ctx *gin.Context) {
	rows, err := c.faultService.SoldierHistory(ctx.Request.Context(), middleware.UserID(ctx), ctx.Param("user_id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, rows, "")
}

// SoldierFaultIDs lists the faults a soldier worked on
// @Summary Fault IDs of a soldier
// @Tags faults
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "Soldier EDIPI"
// @Success 200 {object} dto.APIResponse{data=[]string}
// @Router /faults/soldier/{user_id}/ids [get]
func (c *FaultController) SoldierFaultIDs(ctx *gin.Context) {
	ids, err := c.faultService.SoldierFaultIDs(ctx.Request.Context(), middleware.UserID(ctx), ctx.Param("user_id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, ids, "")
}

// SoldierWUCs lists the work unit codes a soldier worked on
// @Summary Work unit codes of a soldier
// @Tags faults
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "Soldier EDIPI"
// @Success 200 {object} dto.APIResponse{data=[]string}
// @Router /faults/soldier/{user_id}/wucs [get]
func (c *FaultController) SoldierWUCs(ctx *gin.Context) {
	wucs, err := c.faultService.SoldierWUCs(ctx.Request.Context(), middleware.UserID(ctx), ctx.Param("user_id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, wucs, "")
}

// MaintainerFaults lists a maintainer's faults discovered in a date window
// @Summary Faults of a maintainer in a window
// @Tags faults
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "Soldier EDIPI"
// @Param start path string true "Window start" example(2024-01-01)
// @Param end path string true "Window end" example(2024-01-31)
// @Success 200 {object} dto.APIResponse{data=dto.MaintainerFaultsResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /faults/maintainer/{user_id}/{start}/{end} [get]
func (c *FaultController) MaintainerFaults(ctx *gin.Context) {
	resp, err := c.faultService.MaintainerFaults(ctx.Request.Context(), middleware.UserID(ctx),
		ctx.Param("user_id"), ctx.Param("start"), ctx.Param("end"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, resp, "")
}
