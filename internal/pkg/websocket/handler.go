package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Handler upgrades authenticated requests into hub clients
type Handler struct {
	hub     *Hub
	inbound InboundHandler
	logger  zerolog.Logger
}

// NewHandler creates a new WebSocket handler. inbound may be nil.
func NewHandler(hub *Hub, inbound InboundHandler, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:     hub,
		inbound: inbound,
		logger:  logger,
	}
}

// HandleConnection godoc
// @Summary Open the notification stream
// @Description Upgrades the connection to a WebSocket that receives notifications for the requesting user
// @Tags notifications
// @Security BearerAuth
// @Success 101 {string} string "Switching Protocols to WebSocket"
// @Failure 400 {object} dto.ErrorResponse "No user ID in header."
// @Router /notifications/ws [get]
func (h *Handler) HandleConnection(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "No user ID in header.",
		})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Str("userID", userID).Msg("Failed to upgrade connection to WebSocket")
		return
	}

	client := &Client{
		hub:        h.hub,
		conn:       conn,
		send:       make(chan []byte, sendBufferSize),
		userID:     userID,
		remoteAddr: conn.RemoteAddr().String(),
		inbound:    h.inbound,
		logger:     h.logger,
	}
	if !client.hub.addClient(client) {
		h.logger.Warn().Str("userID", userID).Msg("WebSocket hub stopped, closing connection")
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
