package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stockyard-ci/stockyard/pkg/logger"
	"github.com/tidwall/gjson"
)

const auditBodyLimit = 2000

var sensitiveKeys = []string{"password", "token", "secret", "webhook"}

// AuditLog logs every admin write with the acting user and a masked copy of
// the request body.
func AuditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != http.MethodPost && method != http.MethodPut && method != http.MethodDelete {
			c.Next()
			return
		}

		var body string
		if c.Request.Body != nil {
			raw, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(raw))
			body = maskSensitiveFields(raw)
			if len(body) > auditBodyLimit {
				body = body[:auditBodyLimit] + "...[truncated]"
			}
		}

		c.Next()

		status := c.Writer.Status()
		event := logger.Info()
		if status >= http.StatusBadRequest {
			event = logger.Warn()
		}
		event.
			Str("user", GetUsername(c)).
			Str("action", auditAction(method)).
			Str("route", c.FullPath()).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Str("ip", c.ClientIP()).
			Str("body", body).
			Msg("[Audit] admin change")
	}
}

func auditAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return strings.ToLower(method)
	}
}

// maskSensitiveFields replaces the string values of sensitive top-level keys.
// Bodies that are not JSON objects are returned as-is.
func maskSensitiveFields(raw []byte) string {
	if !gjson.ValidBytes(raw) {
		return string(raw)
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return string(raw)
	}

	out := string(raw)
	doc.ForEach(func(k, v gjson.Result) bool {
		if v.Type != gjson.String || !isSensitive(k.String()) {
			return true
		}
		// Raw includes the quotes, so only that exact token is replaced.
		out = strings.Replace(out, k.Raw+":"+v.Raw, k.Raw+":\"***\"", 1)
		out = strings.Replace(out, k.Raw+": "+v.Raw, k.Raw+": \"***\"", 1)
		return true
	})
	return out
}

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
