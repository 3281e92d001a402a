package controllers

import (
	"net/http"

	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/ai2c/amap/internal/app/services"
	"github.com/ai2c/amap/internal/middleware"
	"github.com/gin-gonic/gin"
)

// RequestController handles permission and transfer requests and user roles
type RequestController struct {
	requestService services.RequestService
}

// NewRequestController creates a new RequestController
func NewRequestController(requestService services.RequestService) *RequestController {
	return &RequestController{
		requestService: requestService,
	}
}

// CreatePermissionRequest asks for an access level on a unit
// @Summary Request a unit role
// @Tags requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreatePermissionRequest true "Requested role"
// @Success 201 {object} dto.APIResponse{data=models.UserRequest}
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /requests/permission [post]
func (c *RequestController) CreatePermissionRequest(ctx *gin.Context) {
	var req dto.CreatePermissionRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	created, err := c.requestService.CreatePermissionRequest(ctx.Request.Context(), middleware.UserID(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, created, "Permission request created")
}

// ListPermissionRequests lists pending permission requests of managed units
// @Summary List permission requests
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.UnitPermissionRequests}
// @Router /requests/permission [get]
func (c *RequestController) ListPermissionRequests(ctx *gin.Context) {
	requests, err := c.requestService.ListPermissionRequests(ctx.Request.Context(), middleware.UserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, requests, "")
}

// AdjudicatePermissions approves or denies permission requests
// @Summary Adjudicate permission requests
// @Tags requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.AdjudicateRequest true "Decision"
// @Success 200 {object} dto.APIResponse{data=dto.MessageResponse}
// @Failure 400 {object} dto.ErrorResponse "request_ids cannot be empty"
// @Failure 404 {object} dto.ErrorResponse
// @Router /requests/permission/adjudicate [put]
func (c *RequestController) AdjudicatePermissions(ctx *gin.Context) {
	var req dto.AdjudicateRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	message, err := c.requestService.AdjudicatePermissions(ctx.Request.Context(), middleware.UserID(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, dto.MessageResponse{Message: message}, message)
}

// CreateTransferRequest asks to move a soldier into a gaining unit
// @Summary Request a soldier transfer
// @Tags requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateTransferRequest true "Transfer"
// @Success 201 {object} dto.APIResponse{data=models.SoldierTransferRequest}
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /requests/transfer [post]
func (c *RequestController) CreateTransferRequest(ctx *gin.Context) {
	var req dto.CreateTransferRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	created, err := c.requestService.CreateTransferRequest(ctx.Request.Context(), middleware.UserID(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, created, "Transfer request created")
}

// ListTransferRequests lists received and sent transfer requests
// @Summary List transfer requests
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.TransferRequestsResponse}
// @Router /requests/transfer [get]
func (c *RequestController) ListTransferRequests(ctx *gin.Context) {
	requests, err := c.requestService.ListTransferRequests(ctx.Request.Context(), middleware.UserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, requests, "")
}

// AdjudicateTransfers approves or denies transfer requests
// @Summary Adjudicate transfer requests
// @Tags requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.AdjudicateRequest true "Decision"
// @Success 200 {object} dto.APIResponse{data=dto.MessageResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /requests/transfer/adjudicate [put]
func (c *RequestController) AdjudicateTransfers(ctx *gin.Context) {
	var req dto.AdjudicateRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	message, err := c.requestService.AdjudicateTransfers(ctx.Request.Context(), middleware.UserID(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, dto.MessageResponse{Message: message}, message)
}

// Counts counts pending requests over managed units
// @Summary Pending request counts
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.RequestCountsResponse}
// @Router /requests/counts [get]
func (c *RequestController) Counts(ctx *gin.Context) {
	counts, err := c.requestService.Counts(ctx.Request.Context(), middleware.UserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, counts, "")
}

// UserRoles lists the roles of a soldier
// @Summary Roles of a soldier
// @Tags roles
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "Soldier EDIPI"
// @Success 200 {object} dto.APIResponse{data=[]dto.RoleView}
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /roles/{user_id} [get]
func (c *RequestController) UserRoles(ctx *gin.Context) {
	roles, err := c.requestService.UserRoles(ctx.Request.Context(), middleware.UserID(ctx), ctx.Param("user_id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, roles, "")
}

// DeleteRole removes a role
// @Summary Delete role
// @Tags roles
// @Produce json
// @Security BearerAuth
// @Param id path int true "Role ID"
// @Success 200 {object} dto.APIResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /roles/{id} [delete]
func (c *RequestController) DeleteRole(ctx *gin.Context) {
	id, ok := paramInt64(ctx, "id", "Role")
	if !ok {
		return
	}

	if err := c.requestService.DeleteRole(ctx.Request.Context(), middleware.UserID(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, nil, "Role deleted")
}
