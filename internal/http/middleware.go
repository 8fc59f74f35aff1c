package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// ContextKeyRequestID holds the per-request identifier.
	ContextKeyRequestID = "request_id"

	RequestIDHeader = "X-Request-ID"
)

// RequestID assigns every request a UUID and echoes it in the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.New().String()
		c.Set(ContextKeyRequestID, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the identifier set by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}

// RequestLogger writes one logrus entry per request. Errors attached with
// c.Error are included, and the level follows the response status.
func RequestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"request_id": GetRequestID(c),
			"method":     c.Request.Method,
			"path":       path,
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("error", c.Errors.String())
		}

		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Info("request handled")
		}
	}
}

// ErrorPages renders the generic error page when a handler set status 500
// without writing a body. Internal details stay in the log.
func ErrorPages() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || c.Writer.Status() != http.StatusInternalServerError {
			return
		}
		renderInternalError(c)
	}
}

// recoverToErrorPage turns a panic into the generic error page.
func recoverToErrorPage(c *gin.Context, recovered any) {
	_ = c.Error(fmt.Errorf("panic: %v", recovered))
	c.Status(http.StatusInternalServerError)
	c.Abort()
}

func renderInternalError(c *gin.Context) {
	if wantsJSON(c) {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:     "internal server error",
			RequestID: GetRequestID(c),
		})
		return
	}
	c.HTML(http.StatusInternalServerError, "error.html", pageData(c, "Error"))
}
