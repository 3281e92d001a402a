package websocket

import (
	"context"

	"github.com/rs/zerolog"
)

// NotificationReader marks notifications of a user as read
type NotificationReader interface {
	MarkRead(ctx context.Context, userID string, notificationID *int64, readAll bool) error
}

// MessageHandler applies read receipts sent over the socket
type MessageHandler struct {
	reader NotificationReader
	logger zerolog.Logger
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(reader NotificationReader, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		reader: reader,
		logger: logger,
	}
}

// HandleClientMessage implements InboundHandler
func (h *MessageHandler) HandleClientMessage(ctx context.Context, userID string, msg ClientMessage) {
	var err error
	switch msg.Type {
	case "mark_read":
		id := msg.NotificationID
		err = h.reader.MarkRead(ctx, userID, &id, false)
	case "mark_all_read":
		err = h.reader.MarkRead(ctx, userID, nil, true)
	default:
		h.logger.Debug().Str("userID", userID).Str("type", msg.Type).Msg("Ignoring unknown client message")
		return
	}

	if err != nil {
		h.logger.Warn().Err(err).Str("userID", userID).Str("type", msg.Type).Msg("Failed to apply read receipt")
	}
}
