package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestHandler(t *testing.T) {
	tests := []struct {
		name     string
		ping     PingFunc
		status   int
		database string
	}{
		{"healthy", func(context.Context) error { return nil }, http.StatusOK, "ok"},
		{"database down", func(context.Context) error { return errors.New("connection refused") }, http.StatusServiceUnavailable, "unreachable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/health", Handler(tt.ping))

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.status, w.Code)

			var resp Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.database, resp.Database)
			assert.Equal(t, "healthconsultant", resp.Service)
		})
	}
}

func TestPingHandler(t *testing.T) {
	router := gin.New()
	router.GET("/ping", PingHandler)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
}
