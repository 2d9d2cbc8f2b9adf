package handlers

import (
	"context"
	"net/http"
	"time"

	"courtbook/models"
	"courtbook/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PaymentReconciler applies one raw payment callback.
type PaymentReconciler interface {
	OnPaymentEvent(ctx context.Context, body []byte, header http.Header) (models.PaymentOutcome, error)
}

// PaymentHandler serves the payment provider webhook.
type PaymentHandler struct {
	Reconciler PaymentReconciler
	Timeout    time.Duration
}

func NewPaymentHandler(reconciler PaymentReconciler, timeout time.Duration) *PaymentHandler {
	return &PaymentHandler{Reconciler: reconciler, Timeout: timeout}
}

// PaymentWebhook answers 400 for a bad signature, 500 when the event could
// not be applied (the provider retries), and 200 with the outcome otherwise.
func (h *PaymentHandler) PaymentWebhook(c *gin.Context) {
	logger := getLogger(c)

	body, err := c.GetRawData()
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Unreadable body", err.Error())
		return
	}

	// A provider hanging up must not abort a half-applied event.
	ctx := context.WithoutCancel(c.Request.Context())
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}
	outcome, err := h.Reconciler.OnPaymentEvent(ctx, body, c.Request.Header)
	switch {
	case outcome == models.OutcomeRejected:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	case err != nil:
		logger.Error("Payment callback failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "payment event not applied"})
		return
	}

	logger.Info("Payment callback handled", zap.String("outcome", string(outcome)))
	c.JSON(http.StatusOK, gin.H{"status": "ok", "outcome": outcome})
}
