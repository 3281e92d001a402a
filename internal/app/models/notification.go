package models

import "time"

// NotificationType identifies the kind of notification
type NotificationType string

const (
	NotificationAccessRequest   NotificationType = "AccessRequest"
	NotificationTransferRequest NotificationType = "TransferRequest"
	NotificationApprovedDenied  NotificationType = "ApprovedDenied"
	NotificationRelease         NotificationType = "Release"
	NotificationAnnouncement    NotificationType = "Announcement"
	NotificationBugfix          NotificationType = "Bugfix"
)

// IsBroadcast reports whether admins may publish the type to an audience
func (t NotificationType) IsBroadcast() bool {
	return t == NotificationRelease || t == NotificationAnnouncement || t == NotificationBugfix
}

// Audience of a broadcast notification
type Audience string

const (
	AudienceSoldier   Audience = "soldier"
	AudienceAll       Audience = "all"
	AudienceManagers  Audience = "managers"
	AudienceRecorders Audience = "recorders"
)

// Request descriptions used in approved/denied notifications
const (
	RequestTypePermission = "Permission Request"
	RequestTypeTransfer   = "Transfer Request"
)

// Notification is a message with denormalized display strings
type Notification struct {
	ID                int64            `json:"id" db:"id"`
	NotificationType  NotificationType `json:"notification_type" db:"notification_type"`
	ShortDisplay      string           `json:"short_display" db:"short_display"`
	VerboseDisplay    string           `json:"verbose_display" db:"verbose_display"`
	URL               *string          `json:"url" db:"url"`
	AccessRequestID   *int64           `json:"access_request_id,omitempty" db:"access_request_id"`
	TransferRequestID *int64           `json:"transfer_request_id,omitempty" db:"transfer_request_id"`
	DateGenerated     time.Time        `json:"date_generated" db:"date_generated"`
}

// SoldierNotification delivers a notification to one soldier
type SoldierNotification struct {
	ID               int64         `json:"id" db:"id"`
	SoldierID        string        `json:"soldier_id" db:"soldier_id"`
	NotificationID   int64         `json:"notification_id" db:"notification_id"`
	NotificationRead bool          `json:"notification_read" db:"notification_read"`
	Notification     *Notification `json:"notification,omitempty"`
}
