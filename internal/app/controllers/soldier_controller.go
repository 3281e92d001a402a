package controllers

import (
	"net/http"

	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/ai2c/amap/internal/app/services"
	"github.com/ai2c/amap/internal/middleware"
	"github.com/gin-gonic/gin"
)

// SoldierController handles soldier profiles and logins
type SoldierController struct {
	soldierService services.SoldierService
}

// NewSoldierController creates a new SoldierController
func NewSoldierController(soldierService services.SoldierService) *SoldierController {
	return &SoldierController{
		soldierService: soldierService,
	}
}

// Login records a login and returns the requesting user with their unit roles
// @Summary Who am I
// @Description Returns {user_id, new_user: true} for users without a profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.LoginResponse}
// @Failure 400 {object} dto.ErrorResponse "No user ID in header."
// @Router /login [get]
func (c *SoldierController) Login(ctx *gin.Context) {
	resp, err := c.soldierService.Login(ctx.Request.Context(), middleware.UserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, resp, "")
}

// CreateSoldier registers the requesting user
// @Summary Create own profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateSoldierRequest true "Profile"
// @Success 201 {object} dto.APIResponse{data=dto.SoldierDetailResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Unit does not exist."
// @Failure 409 {object} dto.ErrorResponse
// @Router /users [post]
func (c *SoldierController) CreateSoldier(ctx *gin.Context) {
	var req dto.CreateSoldierRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	soldier, err := c.soldierService.CreateSoldier(ctx.Request.Context(), middleware.UserID(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, soldier, "User created")
}

// GetSoldier returns a soldier's details
// @Summary Get soldier details
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "Soldier EDIPI"
// @Success 200 {object} dto.APIResponse{data=dto.SoldierDetailResponse}
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Soldier does not exist."
// @Router /users/{user_id} [get]
func (c *SoldierController) GetSoldier(ctx *gin.Context) {
	soldier, err := c.soldierService.GetSoldierDetails(ctx.Request.Context(), middleware.UserID(ctx), ctx.Param("user_id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, soldier, "")
}

// UpdateSoldier updates the requesting user's profile
// @Summary Update own profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "Soldier EDIPI"
// @Param request body dto.UpdateSoldierRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.SoldierDetailResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid Unit specified in request body."
// @Failure 401 {object} dto.ErrorResponse "Cannot update another user's profile."
// @Router /users/{user_id} [put]
func (c *SoldierController) UpdateSoldier(ctx *gin.Context) {
	var req dto.UpdateSoldierRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	soldier, err := c.soldierService.UpdateSoldier(ctx.Request.Context(), middleware.UserID(ctx), ctx.Param("user_id"), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, soldier, "User updated")
}

// ListMOS lists MOS codes of a kind
// @Summary List MOS codes
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param type path string true "Kind" Enums(all, amtp, ictl, amtp_or_ictl)
// @Success 200 {object} dto.APIResponse{data=[]models.MOSCode}
// @Failure 400 {object} dto.ErrorResponse
// @Router /users/mos_codes/{type} [get]
func (c *SoldierController) ListMOS(ctx *gin.Context) {
	codes, err := c.soldierService.ListMOS(ctx.Request.Context(), ctx.Param("type"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, codes, "")
}

// ElevatedRoles lists the units a soldier holds each access level on
// @Summary Elevated roles of a soldier
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "Soldier EDIPI"
// @Success 200 {object} dto.APIResponse{data=dto.ElevatedRolesResponse}
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /users/elevated_roles/{user_id} [get]
func (c *SoldierController) ElevatedRoles(ctx *gin.Context) {
	roles, err := c.soldierService.ElevatedRoles(ctx.Request.Context(), middleware.UserID(ctx), ctx.Param("user_id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, roles, "")
}
