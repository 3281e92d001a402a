package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ai2c/amap/internal/app/auth"
	"github.com/ai2c/amap/internal/app/models"
	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/ai2c/amap/internal/pkg/apperrors"
	"github.com/ai2c/amap/internal/pkg/email"
	"github.com/ai2c/amap/internal/pkg/events"
	"github.com/ai2c/amap/internal/pkg/websocket"
	"github.com/rs/zerolog"
)

// Pusher delivers live messages to connected users
type Pusher interface {
	Push(userID string, msg *websocket.Message)
}

// Delivery is a stored notification waiting to be pushed once its transaction commits
type Delivery struct {
	Notification *models.Notification
	// Recipients maps soldier id to the soldier notification id
	Recipients map[string]int64
}

// NotificationService defines the interface for notification operations
type NotificationService interface {
	List(ctx context.Context, userID string) ([]dto.NotificationView, error)
	MarkRead(ctx context.Context, userID string, notificationID *int64, readAll bool) error
	Announce(ctx context.Context, requesterID string, req *dto.AnnouncementRequest) (*dto.AnnouncementResult, error)
	// Store writes the notification and one delivery per recipient. Call it inside
	// the transaction that produced the notification, then Dispatch after commit.
	Store(ctx context.Context, n *models.Notification, recipients []string) (*Delivery, error)
	Dispatch(ctx context.Context, deliveries ...*Delivery)
}

type notificationServiceImpl struct {
	tx            Transactor
	notifications NotificationStore
	soldiers      SoldierStore
	roles         RoleStore
	authz         *auth.AuthorizationService
	pusher        Pusher
	mailer        email.EmailService
	publisher     events.Publisher
	logger        zerolog.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	tx Transactor,
	notifications NotificationStore,
	soldiers SoldierStore,
	roles RoleStore,
	authz *auth.AuthorizationService,
	pusher Pusher,
	mailer email.EmailService,
	publisher events.Publisher,
	logger zerolog.Logger,
) NotificationService {
	return &notificationServiceImpl{
		tx:            tx,
		notifications: notifications,
		soldiers:      soldiers,
		roles:         roles,
		authz:         authz,
		pusher:        pusher,
		mailer:        mailer,
		publisher:     publisher,
		logger:        logger,
	}
}

// List returns the user's notifications newest first
func (s *notificationServiceImpl) List(ctx context.Context, userID string) ([]dto.NotificationView, error) {
	delivered, err := s.notifications.ListForSoldier(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]dto.NotificationView, 0, len(delivered))
	for _, sn := range delivered {
		views = append(views, notificationView(sn.ID, sn.Notification, sn.NotificationRead))
	}
	return views, nil
}

// MarkRead marks one notification of the user, or all of them, read
func (s *notificationServiceImpl) MarkRead(ctx context.Context, userID string, notificationID *int64, readAll bool) error {
	if readAll {
		n, err := s.notifications.MarkAllRead(ctx, userID)
		if err != nil {
			return err
		}
		s.logger.Debug().Str("userID", userID).Int64("count", n).Msg("Notifications marked read")
		return nil
	}
	if notificationID == nil {
		return apperrors.NewBadRequestError("notification_id is required unless read_all is set.")
	}
	return s.notifications.MarkRead(ctx, userID, *notificationID)
}

// Announce broadcasts a release note, announcement or bugfix to an audience
func (s *notificationServiceImpl) Announce(ctx context.Context, requesterID string, req *dto.AnnouncementRequest) (*dto.AnnouncementResult, error) {
	admin, err := s.authz.IsAdmin(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if !admin {
		return nil, apperrors.NewForbiddenError("Only admins can publish announcements.")
	}

	n := BroadcastNotification(models.NotificationType(req.Type), req.Title, req.Body, req.URL)
	if !n.NotificationType.IsBroadcast() {
		return nil, apperrors.NewBadRequestError("Notification type cannot be broadcast.")
	}

	recipients, err := s.audience(ctx, models.Audience(req.Audience), req.SoldierID)
	if err != nil {
		return nil, err
	}

	var delivery *Delivery
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		var storeErr error
		delivery, storeErr = s.Store(ctx, n, recipients)
		return storeErr
	})
	if err != nil {
		return nil, err
	}
	s.Dispatch(ctx, delivery)

	s.logger.Info().
		Str("type", req.Type).
		Str("audience", req.Audience).
		Int("recipients", len(delivery.Recipients)).
		Msg("Announcement published")
	return &dto.AnnouncementResult{NotificationID: n.ID, Recipients: len(delivery.Recipients)}, nil
}

func (s *notificationServiceImpl) audience(ctx context.Context, audience models.Audience, soldierID *string) ([]string, error) {
	switch audience {
	case models.AudienceSoldier:
		if soldierID == nil {
			return nil, apperrors.NewBadRequestError("soldier_id is required for a single soldier audience.")
		}
		soldier, err := s.soldiers.GetByID(ctx, *soldierID)
		if err != nil {
			return nil, err
		}
		return []string{soldier.UserID}, nil
	case models.AudienceAll:
		soldiers, err := s.soldiers.ListWithLogin(ctx)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(soldiers))
		for _, soldier := range soldiers {
			ids = append(ids, soldier.UserID)
		}
		return ids, nil
	case models.AudienceManagers:
		return s.roles.UserIDsWithLevels(ctx, []models.AccessLevel{models.AccessManager})
	case models.AudienceRecorders:
		return s.roles.UserIDsWithLevels(ctx, []models.AccessLevel{models.AccessRecorder, models.AccessEvaluator, models.AccessManager})
	}
	return nil, apperrors.NewBadRequestError(fmt.Sprintf("Unknown audience %q.", audience))
}

// Store writes the notification and its deliveries
func (s *notificationServiceImpl) Store(ctx context.Context, n *models.Notification, recipients []string) (*Delivery, error) {
	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, err
	}
	delivered, err := s.notifications.Deliver(ctx, n.ID, dedupe(recipients))
	if err != nil {
		return nil, err
	}
	return &Delivery{Notification: n, Recipients: delivered}, nil
}

// Dispatch pushes to live connections, emails opted-in recipients and publishes
// a domain event. Failures are logged, never returned.
func (s *notificationServiceImpl) Dispatch(ctx context.Context, deliveries ...*Delivery) {
	for _, d := range deliveries {
		if d == nil || len(d.Recipients) == 0 {
			continue
		}

		ids := make([]string, 0, len(d.Recipients))
		for soldierID, deliveryID := range d.Recipients {
			ids = append(ids, soldierID)
			view := notificationView(deliveryID, d.Notification, false)
			s.pusher.Push(soldierID, &websocket.Message{Type: "notification", Payload: view})
		}

		s.email(ctx, d.Notification, ids)

		s.publisher.Publish(ctx, events.NotificationCreated, map[string]interface{}{
			"notification_id":   d.Notification.ID,
			"notification_type": d.Notification.NotificationType,
			"recipients":        len(ids),
		})
	}
}

func (s *notificationServiceImpl) email(ctx context.Context, n *models.Notification, ids []string) {
	soldiers, err := s.soldiers.GetMany(ctx, ids)
	if err != nil {
		s.logger.Error().Err(err).Int64("notificationID", n.ID).Msg("Failed to load notification recipients for email")
		return
	}
	for _, soldier := range soldiers {
		if !soldier.ReceiveEmails || soldier.DoDEmail == nil || *soldier.DoDEmail == "" {
			continue
		}
		if err := s.mailer.SendNotificationEmail(*soldier.DoDEmail, soldier.NameAndRank(), n.ShortDisplay, n.VerboseDisplay); err != nil {
			s.logger.Warn().Err(err).Str("userID", soldier.UserID).Msg("Failed to email notification")
		}
	}
}

func notificationView(deliveryID int64, n *models.Notification, read bool) dto.NotificationView {
	return dto.NotificationView{
		ID:               deliveryID,
		NotificationID:   n.ID,
		NotificationType: string(n.NotificationType),
		ShortDisplay:     n.ShortDisplay,
		VerboseDisplay:   n.VerboseDisplay,
		URL:              n.URL,
		DateGenerated:    n.DateGenerated,
		NotificationRead: read,
	}
}

// AccessRequestNotification tells managers a user asked for a role on a unit
func AccessRequestNotification(requester *models.Soldier, requesterUnit, unit *models.Unit, level models.AccessLevel, requestID int64) *models.Notification {
	return &models.Notification{
		NotificationType: models.NotificationAccessRequest,
		ShortDisplay:     fmt.Sprintf("%s requests %s access", requester.NameAndRank(), level),
		VerboseDisplay: fmt.Sprintf("%s (%s) requests %s role for %s",
			requester.NameAndRank(), requesterUnit.DisplayName, level, unit.DisplayName),
		AccessRequestID: &requestID,
	}
}

// TransferRequestNotification tells managers a unit asked for one of their soldiers
func TransferRequestNotification(requester *models.Soldier, requesterUnit *models.Unit, soldier *models.Soldier, soldierUnit, gaining *models.Unit, requestID int64) *models.Notification {
	return &models.Notification{
		NotificationType: models.NotificationTransferRequest,
		ShortDisplay:     fmt.Sprintf("%s requests %s", gaining.ShortName, soldier.NameAndRank()),
		VerboseDisplay: fmt.Sprintf("%s (%s) requests %s be released from %s and transferred into %s",
			requester.NameAndRank(), requesterUnit.DisplayName, soldier.NameAndRank(), soldierUnit.DisplayName, gaining.DisplayName),
		TransferRequestID: &requestID,
	}
}

// ApprovedDeniedNotification tells a requester how their request was adjudicated
func ApprovedDeniedNotification(requestType, action string, approved bool) *models.Notification {
	return &models.Notification{
		NotificationType: models.NotificationApprovedDenied,
		ShortDisplay:     fmt.Sprintf("%s %s", requestType, outcome(approved)),
		VerboseDisplay:   fmt.Sprintf("Your %s for %s has been %s", requestType, action, outcome(approved)),
	}
}

// BroadcastNotification builds a release, announcement or bugfix notification
func BroadcastNotification(t models.NotificationType, title, body string, url *string) *models.Notification {
	short := strings.TrimSpace(title)
	if t == models.NotificationRelease {
		short = "A-MAP Version " + short
	}
	return &models.Notification{
		NotificationType: t,
		ShortDisplay:     short,
		VerboseDisplay:   body,
		URL:              url,
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
