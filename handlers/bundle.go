// File: courtbook/handlers/bundle.go
package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups the endpoint handlers routes are registered with.
type HandlerBundle struct {
	// Chat webhook
	VerifyWebhookHandler  gin.HandlerFunc
	ReceiveWebhookHandler gin.HandlerFunc

	// Payment webhook
	PaymentWebhookHandler gin.HandlerFunc
}

// NewHandlerBundle wires the handler methods into a bundle.
func NewHandlerBundle(wa *WhatsAppHandler, pay *PaymentHandler) *HandlerBundle {
	return &HandlerBundle{
		VerifyWebhookHandler:  wa.VerifyWebhook,
		ReceiveWebhookHandler: wa.ReceiveWebhook,
		PaymentWebhookHandler: pay.PaymentWebhook,
	}
}
