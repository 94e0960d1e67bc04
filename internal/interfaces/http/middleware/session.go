// internal/interfaces/http/middleware/session.go
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionCookie names the cookie that keys a visitor's cart
const SessionCookie = "session_id"

// Session assigns every visitor a stable session id cookie
func Session(maxAge time.Duration, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(SessionCookie)
		if err != nil || uuid.Validate(sessionID) != nil {
			sessionID = uuid.NewString()
		}
		// refreshed on every request so active carts keep their session
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookie, sessionID, int(maxAge.Seconds()), "/", "", secure, true)
		c.Set(ContextSessionID, sessionID)
		c.Next()
	}
}

// GetSessionID returns the visitor's session id
func GetSessionID(c *gin.Context) string {
	return c.GetString(ContextSessionID)
}
