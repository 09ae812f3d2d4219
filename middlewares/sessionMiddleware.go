package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/workorder_backend/config"
	"github.com/mmdatafocus/workorder_backend/models"
	"github.com/mmdatafocus/workorder_backend/utils"
)

// SessionMiddleware resolves the bearer token to an active user and attaches the
// actor to the request context. Requests without a token pass through anonymous;
// the routes that need a user reject them.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")
		if auth == "" {
			c.Next()
			return
		}
		const bearer = "Bearer "
		if !strings.HasPrefix(auth, bearer) {
			abortUnauthorized(c, "malformed authorization header")
			return
		}
		token := strings.TrimSpace(auth[len(bearer):])

		claims, err := utils.JwtValidate(token)
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}
		user, err := models.GetUser(c.Request.Context(), claims.ID)
		if err != nil {
			if !errors.Is(err, utils.ErrNotFound) {
				config.LogError(config.GetLogger(), "SessionMiddleware", "GetUser", "load session user", claims.ID, err)
			}
			abortUnauthorized(c, "unknown user")
			return
		}
		if user.IsActive != nil && !*user.IsActive {
			abortUnauthorized(c, "user is inactive")
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.WithActor(ctx, utils.Actor{
			Id:       user.ID,
			Name:     user.Name,
			Username: user.Username,
			Role:     string(user.Role),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": message, "kind": utils.KindUnauthorized})
	c.Abort()
}
