package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"courtbook/handlers"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRegisterRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	called := map[string]int{}
	stub := func(name string) gin.HandlerFunc {
		return func(c *gin.Context) {
			called[name]++
			c.Status(http.StatusOK)
		}
	}
	hb := &handlers.HandlerBundle{
		VerifyWebhookHandler:  stub("verify"),
		ReceiveWebhookHandler: stub("receive"),
		PaymentWebhookHandler: stub("payment"),
	}
	r := gin.New()
	RegisterRoutes(r, hb)

	requests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/webhook"},
		{http.MethodGet, "/whatsapp/webhook"},
		{http.MethodPost, "/webhook"},
		{http.MethodPost, "/whatsapp/webhook"},
		{http.MethodPost, "/payments/webhook"},
		{http.MethodPost, "/razorpay/webhook"},
	}
	for _, rq := range requests {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(rq.method, rq.path, nil))
		assert.Equal(t, http.StatusOK, w.Code, rq.method+" "+rq.path)
	}
	assert.Equal(t, map[string]int{"verify": 2, "receive": 2, "payment": 2}, called)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
