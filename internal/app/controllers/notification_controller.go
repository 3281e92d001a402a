package controllers

import (
	"net/http"

	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/ai2c/amap/internal/app/services"
	"github.com/ai2c/amap/internal/middleware"
	"github.com/gin-gonic/gin"
)

// NotificationController handles the requester's notifications and announcements
type NotificationController struct {
	notificationService services.NotificationService
}

// NewNotificationController creates a new NotificationController
func NewNotificationController(notificationService services.NotificationService) *NotificationController {
	return &NotificationController{
		notificationService: notificationService,
	}
}

// ListNotifications lists the requester's notifications newest first
// @Summary List notifications
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.NotificationView}
// @Router /notifications [get]
func (c *NotificationController) ListNotifications(ctx *gin.Context) {
	notifications, err := c.notificationService.List(ctx.Request.Context(), middleware.UserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, notifications, "")
}

// MarkRead marks one or all of the requester's notifications read
// @Summary Mark notifications read
// @Tags notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.MarkReadRequest true "notification_id or read_all"
// @Success 200 {object} dto.APIResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /notifications/read [put]
func (c *NotificationController) MarkRead(ctx *gin.Context) {
	var req dto.MarkReadRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	if err := c.notificationService.MarkRead(ctx.Request.Context(), middleware.UserID(ctx), req.NotificationID, req.ReadAll); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, nil, "Notifications marked as read")
}

// Announce broadcasts a release, announcement or bugfix notification
// @Summary Broadcast announcement
// @Tags notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.AnnouncementRequest true "Announcement"
// @Success 201 {object} dto.APIResponse{data=dto.AnnouncementResult}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /notifications/announcements [post]
func (c *NotificationController) Announce(ctx *gin.Context) {
	var req dto.AnnouncementRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	result, err := c.notificationService.Announce(ctx.Request.Context(), middleware.UserID(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, result, "Announcement sent")
}
