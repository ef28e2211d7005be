package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/loangraph/microlend/internal/auth"
)

const (
	PrincipalKey = "principal"
	RoleKey      = "user_role"
)

// RequireAuth accepts the access cookie, or an Authorization bearer token
// when allowBearer is set, and stores the caller's principal on the context.
func RequireAuth(jwt *auth.JWTManager, allowBearer bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if cookie, err := c.Request.Cookie(auth.AccessCookieName); err == nil {
			token = cookie.Value
		}
		if token == "" && allowBearer {
			header := c.GetHeader("Authorization")
			if scheme, rest, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "bearer") {
				token = strings.TrimSpace(rest)
			}
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		claims, err := jwt.Parse(token)
		if err != nil || claims.Type != auth.TokenTypeAccess {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(PrincipalKey, claims.Principal)
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}

func Principal(c *gin.Context) string {
	return c.GetString(PrincipalKey)
}
