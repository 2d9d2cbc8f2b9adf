package utils

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestIsKindSeesThroughWrapping(t *testing.T) {
	base := errors.New("timeout")
	err := fmt.Errorf("create link: %w", NewAppError(KindExternalUnavailable, "payment provider", base))

	assert.True(t, IsKind(err, KindExternalUnavailable))
	assert.False(t, IsKind(err, KindSlotConflict))
	assert.False(t, IsKind(base, KindExternalUnavailable))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "create link: external_unavailable: payment provider: timeout", err.Error())
}

func TestErrorHandlerRecoversPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal Server Error")
}

func TestHealthStatusHealthy(t *testing.T) {
	yes, no := true, false
	assert.True(t, HealthStatus{}.Healthy())
	assert.True(t, HealthStatus{Mongo: &yes, Redis: &yes}.Healthy())
	assert.False(t, HealthStatus{Mongo: &yes, Redis: &no}.Healthy())
	assert.False(t, HealthStatus{Mongo: &no}.Healthy())
}
