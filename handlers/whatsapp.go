package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"courtbook/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MessageRouter handles one decoded chat message.
type MessageRouter interface {
	Handle(ctx context.Context, msg models.InboundMessage) error
}

// WhatsAppHandler serves the chat webhook.
type WhatsAppHandler struct {
	Router      MessageRouter
	VerifyToken string
	Timeout     time.Duration
}

func NewWhatsAppHandler(router MessageRouter, verifyToken string, timeout time.Duration) *WhatsAppHandler {
	return &WhatsAppHandler{Router: router, VerifyToken: verifyToken, Timeout: timeout}
}

// VerifyWebhook echoes hub.challenge when hub.verify_token matches.
func (h *WhatsAppHandler) VerifyWebhook(c *gin.Context) {
	logger := getLogger(c)
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "" || h.VerifyToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.VerifyToken)) != 1 {
		logger.Warn("Webhook verification failed", zap.String("mode", mode))
		c.Status(http.StatusForbidden)
		return
	}
	logger.Info("Webhook verified")
	c.String(http.StatusOK, challenge)
}

// ReceiveWebhook routes every message in the body and always acknowledges,
// so the channel does not redeliver on our failures.
func (h *WhatsAppHandler) ReceiveWebhook(c *gin.Context) {
	logger := getLogger(c)

	body, err := c.GetRawData()
	if err != nil {
		logger.Warn("Failed to read webhook body", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	msgs, err := DecodeInbound(body)
	if err != nil {
		logger.Warn("Unrecognized webhook payload", zap.Error(err), zap.Int("bytes", len(body)))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	if len(msgs) == 0 {
		logger.Debug("Webhook carried no user message")
	}

	for _, msg := range msgs {
		h.route(c.Request.Context(), logger, msg)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *WhatsAppHandler) route(parent context.Context, logger *zap.Logger, msg models.InboundMessage) {
	// Finish the unit of work even if the caller hangs up.
	ctx := context.WithoutCancel(parent)
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}
	if err := h.Router.Handle(ctx, msg); err != nil {
		logger.Error("Inbound message failed",
			zap.String("phone", msg.From), zap.String("messageId", msg.MessageID), zap.Error(err))
	}
}
