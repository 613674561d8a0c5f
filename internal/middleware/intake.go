package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/stockyard-ci/stockyard/internal/services"
	"github.com/stockyard-ci/stockyard/internal/utils"
	"github.com/stockyard-ci/stockyard/pkg/response"
)

// IntakeTokenHeader carries the shared CI secret on build event posts.
const IntakeTokenHeader = "X-Stockyard-Token"

// IntakeRequired admits requests that present the configured intake token or
// a live admin session. An empty token disables the shared-secret path.
func IntakeRequired(token string, auth *services.AdminAuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if utils.MatchesConfigured(c.GetHeader(IntakeTokenHeader), token) {
			c.Next()
			return
		}
		if authenticate(c, auth) {
			c.Next()
			return
		}
		response.Unauthorized(c, "intake token required")
		c.Abort()
	}
}
