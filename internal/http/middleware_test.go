package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/clubhouse/internal/logging"
)

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	var seen string
	router.GET("/", func(c *gin.Context) {
		seen = GetRequestID(c)
		c.Status(http.StatusNoContent)
	})

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Len(t, seen, 36)
	assert.Equal(t, seen, second.Header().Get(RequestIDHeader))
	assert.NotEqual(t, first.Header().Get(RequestIDHeader), second.Header().Get(RequestIDHeader))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithOutput(&buf, "info", "json")

	router := gin.New()
	router.Use(RequestID(), RequestLogger(logger))
	router.GET("/fail", func(c *gin.Context) {
		_ = c.Error(errors.New("store unavailable"))
		c.Status(http.StatusInternalServerError)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/fail", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "/fail", entry["path"])
	assert.Equal(t, float64(http.StatusInternalServerError), entry["status"])
	assert.Equal(t, rr.Header().Get(RequestIDHeader), entry["request_id"])
	assert.Contains(t, entry["error"], "store unavailable")
}

func TestErrorPages(t *testing.T) {
	router := gin.New()
	router.SetHTMLTemplate(template.Must(template.New("error.html").Parse(`error page {{.RequestID}}`)))
	router.Use(ErrorPages())
	router.GET("/status-only", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})
	router.GET("/written", func(c *gin.Context) {
		c.String(http.StatusInternalServerError, "custom body")
	})
	router.GET("/ok", func(c *gin.Context) {
		c.String(http.StatusOK, "fine")
	})

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/status-only", http.StatusInternalServerError, "error page"},
		{"/written", http.StatusInternalServerError, "custom body"},
		{"/ok", http.StatusOK, "fine"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, rr.Code)
			assert.True(t, strings.HasPrefix(rr.Body.String(), tt.body), rr.Body.String())
		})
	}
}
