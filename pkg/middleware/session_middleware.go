package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inos/pkg/utils"
)

// SessionSource exposes the signed-in user, if any.
type SessionSource interface {
	CurrentUserID() (string, bool)
}

// RequireSession rejects the request when nobody is signed in.
func RequireSession(src SessionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := src.CurrentUserID()
		if !ok {
			utils.RespondError(c, http.StatusUnauthorized, "Authentication required")
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}
