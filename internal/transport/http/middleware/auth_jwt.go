package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lendtrack/internal/core/auth"
	resp "lendtrack/internal/transport/http/response"
)

const (
	KeyEmail = "email"
	KeyAdmin = "admin"
)

// AuthJWT validates the bearer token and keeps the session alive: as long as
// requests arrive within the inactivity window, a re-signed token rides back
// on the Authorization response header.
func AuthJWT(j *auth.JWTer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "missing token"))
			return
		}
		claims, err := j.Parse(strings.TrimPrefix(ah, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "invalid token"))
			return
		}
		refreshed, err := j.Refresh(claims)
		if err != nil {
			if errors.Is(err, auth.ErrInactive) {
				c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeUnauthorized,
					"you were signed out due to inactivity, please log in again"))
				return
			}
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeServerError, "token refresh failed"))
			return
		}
		c.Writer.Header().Set("Authorization", "Bearer "+refreshed)
		c.Set(KeyEmail, claims.Email)
		c.Set(KeyAdmin, claims.Admin)
		c.Next()
	}
}
