package simulation

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

// Claims carried by API tokens. The subject identifies the caller.
type Claims struct {
	jwt.RegisteredClaims
}

// AuthMiddleware accepts "Authorization: Bearer <HS256 token>" signed with secret.
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authorization := c.GetHeader("Authorization")
		if authorization == "" {
			unauthorized(c, "Authorization header required")
			c.Abort()
			return
		}
		parts := strings.SplitN(authorization, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			unauthorized(c, "Authorization header format must be Bearer {token}")
			c.Abort()
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(strings.TrimSpace(parts[1]), claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}
		c.Set("subject", claims.Subject)
		c.Next()
	}
}
