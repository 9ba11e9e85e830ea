package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestAccessLogConfig_TagsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)

	r := gin.New()
	r.Use(func(ctx *gin.Context) {
		ctx.Set(RequestIDKey, "req-1")
		ctx.Next()
	})
	r.Use(ginzap.GinzapWithConfig(zap.New(core), AccessLogConfig()))
	r.GET("/ping", func(ctx *gin.Context) { ctx.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields[RequestIDKey])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
}
