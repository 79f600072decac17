package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"menlo.ai/query-cache/app/interfaces/http/responses"
	"menlo.ai/query-cache/config/environment_variables"
)

// AdminTokenMiddleware accepts requests bearing ADMIN_API_TOKEN. With no token
// configured every request is refused.
func AdminTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := environment_variables.EnvironmentVariables.ADMIN_API_TOKEN
		if expected == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, responses.ErrorResponse{
				Code:  "1f6c2b0e-8a7d-4c39-9e15-d2b4a0f3c871",
				Error: "admin api is disabled",
			})
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, responses.ErrorResponse{
				Code: "55312c8d-4fa4-4ecf-a0a2-6fee16c8d7e0",
			})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, responses.ErrorResponse{
				Code: "c6d6bafd-b9f3-4ebb-9c90-a21b07308ebc",
			})
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(expected)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, responses.ErrorResponse{
				Code: "9d7a21c4-d94c-4451-841b-4d9333f86942",
			})
			return
		}
		c.Next()
	}
}
