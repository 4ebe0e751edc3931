package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/PratikDhanave/realtime-relay/internal/auth"
	"github.com/PratikDhanave/realtime-relay/internal/models"
)

// webhookAck is the literal body of every webhook response.
const webhookAck = "Webhook received"

// Publisher broadcasts an event to every connected client.
type Publisher interface {
	PublishAll(e models.Event)
}

// RegisterWebhookRoutes registers the backend notification endpoints.
//
// Each endpoint copies one or two fields from the JSON body into a broadcast
// and always answers 200 "Webhook received". A body that does not decode is
// treated as empty, so the broadcast carries null fields. Duplicate deliveries
// are broadcast again.
func RegisterWebhookRoutes(r gin.IRoutes, bus Publisher, logger zerolog.Logger) {
	log := logger.With().Str("component", "webhook").Logger()

	r.POST("/update-messages", func(c *gin.Context) {
		var req models.UpdateMessagesWebhook
		bindLenient(c, &req, log)
		relay(c, bus, log, models.UpdatedMessages{Messages: req.Messages, ConversationID: req.ConversationID})
	})

	r.POST("/newMessage", func(c *gin.Context) {
		var req models.NewMessageWebhook
		bindLenient(c, &req, log)
		relay(c, bus, log, models.NewMessage{Message: req.Message, ConversationID: req.ConversationID})
	})

	r.POST("/update-conversations", func(c *gin.Context) {
		var req models.UpdateConversationsWebhook
		bindLenient(c, &req, log)
		relay(c, bus, log, models.UpdatedConversations{Conversations: req.Conversations})
	})

	r.POST("/send-notification", func(c *gin.Context) {
		var req models.SendNotificationWebhook
		bindLenient(c, &req, log)
		relay(c, bus, log, models.Notification{Notification: req.Notification, UserEmail: req.UserEmail})
	})

	r.POST("/refreshCalendar", func(c *gin.Context) {
		relay(c, bus, log, models.RefreshCalendar{})
	})

	r.POST("/refreshConversations", func(c *gin.Context) {
		relay(c, bus, log, models.RefreshConversations{})
	})
}

// bindLenient decodes the body into dst, resetting it on failure.
func bindLenient[T any](c *gin.Context, dst *T, log zerolog.Logger) {
	if err := c.ShouldBindJSON(dst); err != nil {
		log.Warn().Err(err).Str("path", c.FullPath()).Msg("Webhook body did not decode, forwarding empty fields.")
		var zero T
		*dst = zero
	}
}

func relay(c *gin.Context, bus Publisher, log zerolog.Logger, e models.Event) {
	bus.PublishAll(e)
	log.Info().Str("event", string(e.Name())).Str("caller", auth.Caller(c)).Msg("Relayed via webhook.")
	c.String(http.StatusOK, webhookAck)
}
