package routes

import (
	"net/http"
	"time"

	"courtbook/config"
	"courtbook/handlers"
	"courtbook/middleware"
	"courtbook/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterWebhookRoutes registers the chat channel endpoints. The Cloud API
// path and the legacy relay path share handlers.
func RegisterWebhookRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	limit := middleware.RateLimitMiddleware(config.AppConfig.MaxRequestsPerMin)
	for _, path := range []string{"/webhook", "/whatsapp/webhook"} {
		r.GET(path, hb.VerifyWebhookHandler)
		r.POST(path, limit, hb.ReceiveWebhookHandler)
	}
}

// RegisterPaymentRoutes registers the payment provider callback.
func RegisterPaymentRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/payments")
	{
		api.POST("/webhook", hb.PaymentWebhookHandler)
	}
	r.POST("/razorpay/webhook", hb.PaymentWebhookHandler)
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		status := utils.GetHealthStatus()
		code := http.StatusOK
		if !status.Healthy() {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": http.StatusText(code), "checks": status, "message": "Hi, I'm " + config.AppConfig.BrandName})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Hub-Signature-256", "X-Razorpay-Signature", "Stripe-Signature"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r)
	RegisterWebhookRoutes(r, hb)
	RegisterPaymentRoutes(r, hb)
}
