// internal/middleware/logging.go
package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/gemstore-backend/internal/models"
)

const maxAuditBody = 64 << 10

var sensitiveFields = []string{"password", "token", "secret"}

// AuditLogMiddleware persists every mutating request. Multipart bodies are
// not recorded and credential fields are redacted.
func AuditLogMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead ||
			c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		var requestBody []byte
		if c.Request.Body != nil && strings.HasPrefix(c.ContentType(), "application/json") {
			requestBody, _ = io.ReadAll(io.LimitReader(c.Request.Body, maxAuditBody))
			c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(requestBody), c.Request.Body))
		}

		c.Next()

		var userUUID *uuid.UUID
		if uid, ok := c.Get("user_id"); ok {
			if s, ok := uid.(string); ok {
				if parsed, err := uuid.Parse(s); err == nil {
					userUUID = &parsed
				}
			}
		}

		var requestData map[string]interface{}
		if len(requestBody) > 0 {
			if err := json.Unmarshal(requestBody, &requestData); err == nil {
				redact(requestData)
			}
		}

		auditLog := &models.AuditLog{
			UserID:       userUUID,
			Action:       c.Request.Method + " " + routeOrPath(c),
			ResourceType: extractResourceType(c.Request.URL.Path),
			NewValues:    models.JSONB(requestData),
			StatusCode:   c.Writer.Status(),
			IPAddress:    c.ClientIP(),
			UserAgent:    c.Request.UserAgent(),
		}

		if resourceID := extractResourceID(c.Request.URL.Path); resourceID != nil {
			auditLog.ResourceID = resourceID
		}

		go func() {
			if err := db.Create(auditLog).Error; err != nil {
				logrus.WithError(err).Error("Failed to create audit log")
			}
		}()
	}
}

func redact(data map[string]interface{}) {
	for key, value := range data {
		lower := strings.ToLower(key)
		for _, field := range sensitiveFields {
			if strings.Contains(lower, field) {
				data[key] = "[REDACTED]"
				break
			}
		}
		if nested, ok := value.(map[string]interface{}); ok {
			redact(nested)
		}
	}
}

func routeOrPath(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return c.Request.URL.Path
}

func extractResourceType(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 3 && parts[0] == "v1" && parts[1] == "admin" {
		return parts[2]
	}
	if len(parts) >= 2 && parts[0] == "v1" {
		return parts[1]
	}
	if len(parts) >= 1 && parts[0] != "" {
		return parts[0]
	}
	return "unknown"
}

func extractResourceID(path string) *uuid.UUID {
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if parsed, err := uuid.Parse(part); err == nil {
			return &parsed
		}
	}
	return nil
}

// RequestLogger writes one structured line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := logrus.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"duration":   time.Since(start).Milliseconds(),
			"ip":         c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		})
		if userID, ok := c.Get("user_id"); ok {
			entry = entry.WithField("user_id", userID)
		}
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("Request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request processed")
		}
	}
}
