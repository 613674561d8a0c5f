package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stockyard-ci/stockyard/internal/services"
	"github.com/stockyard-ci/stockyard/pkg/response"
)

const (
	// AdminCookie carries the admin token for browser sessions.
	AdminCookie = "stockyard_admin"

	ContextAdmin     = "is_admin"
	ContextUsername  = "username"
	ContextSessionID = "session_id"
)

// AdminToken returns the token from "Authorization: Bearer" or, failing that,
// the admin cookie.
func AdminToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	token, err := c.Cookie(AdminCookie)
	if err != nil {
		return ""
	}
	return token
}

func authenticate(c *gin.Context, auth *services.AdminAuthService) bool {
	token := AdminToken(c)
	if token == "" {
		return false
	}
	claims, err := auth.Validate(c.Request.Context(), token)
	if err != nil {
		return false
	}
	c.Set(ContextAdmin, true)
	c.Set(ContextUsername, claims.Username)
	c.Set(ContextSessionID, claims.SessionID)
	return true
}

// AdminRequired rejects requests without a live admin session.
func AdminRequired(auth *services.AdminAuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, auth) {
			response.Unauthorized(c, "admin session required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalAdmin marks the request as admin when a live session is presented
// and lets every request through.
func OptionalAdmin(auth *services.AdminAuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticate(c, auth)
		c.Next()
	}
}

func IsAdmin(c *gin.Context) bool {
	return c.GetBool(ContextAdmin)
}

func GetUsername(c *gin.Context) string {
	return c.GetString(ContextUsername)
}
