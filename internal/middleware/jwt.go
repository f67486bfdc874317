package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/markport/internal/pkg/errcode"
	"github.com/xxxsen/markport/internal/pkg/jwt"
	"github.com/xxxsen/markport/internal/pkg/response"
)

// ContextOwnerIDKey holds the caller DID taken from the token.
const ContextOwnerIDKey = "owner_id"

func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, http.StatusUnauthorized, errcode.Unauthorized, "missing authorization")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, http.StatusUnauthorized, errcode.Unauthorized, "invalid authorization")
			c.Abort()
			return
		}
		claims, err := jwt.ParseToken(parts[1], secret)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, errcode.Unauthorized, "invalid token")
			c.Abort()
			return
		}
		c.Set(ContextOwnerIDKey, claims.OwnerID)
		if claims.Handle != "" {
			c.Set("owner_handle", claims.Handle)
		}
		c.Next()
	}
}
