package middlewares

import (
	"net/http"
	"strings"

	"axiapac.com/attendance/security"
	"axiapac.com/attendance/web/common"
	"github.com/gin-gonic/gin"
)

const (
	CookieName  = "attendance.token"
	IdentityKey = "identity"
)

// Authentication accepts a Bearer token or the session cookie and stores
// the identity claims under IdentityKey.
func Authentication(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := ""

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			cookie, err := c.Cookie(CookieName)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("missing token"))
				return
			}
			tokenStr = cookie
		} else {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("malformed authorization header"))
				return
			}
			tokenStr = parts[1]
		}

		claims, err := security.ParseIdentityToken(tokenStr, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("invalid or expired token"))
			return
		}

		c.Set(IdentityKey, claims.Identity)
		c.Next()
	}
}

// CurrentIdentity returns the identity set by Authentication.
func CurrentIdentity(c *gin.Context) (security.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return security.Identity{}, false
	}
	identity, ok := v.(security.Identity)
	return identity, ok
}
