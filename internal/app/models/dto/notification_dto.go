package dto

import "time"

// NotificationView is a notification delivered to the requester
type NotificationView struct {
	ID               int64     `json:"id"`
	NotificationID   int64     `json:"notification_id"`
	NotificationType string    `json:"notification_type" example:"AccessRequest"`
	ShortDisplay     string    `json:"short_display"`
	VerboseDisplay   string    `json:"verbose_display"`
	URL              *string   `json:"url"`
	DateGenerated    time.Time `json:"date_generated"`
	NotificationRead bool      `json:"notification_read"`
}

// MarkReadRequest marks one or all notifications of the requester read
type MarkReadRequest struct {
	NotificationID *int64 `json:"notification_id"`
	ReadAll        bool   `json:"read_all"`
}

// AnnouncementRequest broadcasts a notification to an audience
type AnnouncementRequest struct {
	Type      string  `json:"notification_type" binding:"required,oneof=Release Announcement Bugfix" example:"Release"`
	Audience  string  `json:"audience" binding:"required,oneof=soldier all managers recorders" example:"all"`
	SoldierID *string `json:"soldier_id" binding:"omitempty,dodid"`
	Title     string  `json:"title" binding:"required,max=128" example:"2.4.0"`
	Body      string  `json:"body" binding:"required"`
	URL       *string `json:"url" binding:"omitempty,url"`
}

// AnnouncementResult reports how many soldiers received a broadcast
type AnnouncementResult struct {
	NotificationID int64 `json:"notification_id"`
	Recipients     int   `json:"recipients"`
}
