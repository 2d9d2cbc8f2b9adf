package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"courtbook/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRouter struct {
	mu       sync.Mutex
	messages []models.InboundMessage
	err      error
	deadline bool
}

func (f *fakeRouter) Handle(ctx context.Context, msg models.InboundMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	_, f.deadline = ctx.Deadline()
	return f.err
}

func newWhatsAppEngine(router MessageRouter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewWhatsAppHandler(router, "s3cret", 5*time.Second)
	r := gin.New()
	r.GET("/webhook", h.VerifyWebhook)
	r.POST("/webhook", h.ReceiveWebhook)
	return r
}

func TestVerifyWebhook(t *testing.T) {
	r := newWhatsAppEngine(&fakeRouter{})

	tests := []struct {
		name     string
		query    string
		wantCode int
		wantBody string
	}{
		{"matching token", "hub.mode=subscribe&hub.verify_token=s3cret&hub.challenge=12345", http.StatusOK, "12345"},
		{"wrong token", "hub.mode=subscribe&hub.verify_token=nope&hub.challenge=12345", http.StatusForbidden, ""},
		{"missing mode", "hub.verify_token=s3cret&hub.challenge=12345", http.StatusForbidden, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/webhook?"+tt.query, nil)
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestReceiveWebhookRoutesMessages(t *testing.T) {
	router := &fakeRouter{}
	r := newWhatsAppEngine(router)

	body := `{"entry":[{"changes":[{"value":{"messages":[
		{"from":"919800000001","id":"wamid.1","type":"text","text":{"body":"start"}},
		{"from":"919800000001","id":"wamid.2","type":"interactive","interactive":{"list_reply":{"id":"activity_padel","title":"Padel"}}}]}}]}]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	require.Len(t, router.messages, 2)
	assert.Equal(t, "start", router.messages[0].Text)
	assert.Equal(t, "activity_padel", router.messages[1].ReplyID)
	assert.True(t, router.deadline)
}

func TestReceiveWebhookAlwaysAcknowledges(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		routed int
	}{
		{"router failure", `{"message":{"from":"919800000001","id":"m.1","text":{"body":"hi"}}}`, errors.New("boom"), 1},
		{"malformed body", `{"entry":`, nil, 0},
		{"status only", `{"entry":[{"changes":[{"value":{"statuses":[{"status":"read"}]}}]}]}`, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := &fakeRouter{err: tt.err}
			r := newWhatsAppEngine(router)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(tt.body))
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
			assert.Len(t, router.messages, tt.routed)
		})
	}
}
