package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"virtualboard/internal/account"
	"virtualboard/internal/apperr"
)

// HeaderName carries the signed token. Authorization: Bearer is accepted as well.
const HeaderName = "x-auth-token"

const identityKey = "identity"

// Required rejects requests without a valid token and stores the caller identity in the context.
func Required(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := tokenFrom(c)
		if tokenStr == "" {
			_ = c.Error(apperr.New(apperr.Unauthenticated, "missing auth token"))
			c.Abort()
			return
		}
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			_ = c.Error(apperr.Wrap(apperr.Unauthenticated, "invalid token", err))
			c.Abort()
			return
		}
		c.Set(identityKey, claims.Identity())
		c.Next()
	}
}

// RequireRole must run after Required.
func RequireRole(role account.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			_ = c.Error(apperr.New(apperr.Unauthenticated, "missing auth token"))
			c.Abort()
			return
		}
		if id.Role != role {
			_ = c.Error(apperr.New(apperr.Forbidden, "only a "+string(role)+" can do this"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// IdentityFrom returns the identity stored by Required.
func IdentityFrom(c *gin.Context) (account.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return account.Identity{}, false
	}
	id, ok := v.(account.Identity)
	return id, ok
}

func tokenFrom(c *gin.Context) string {
	if t := strings.TrimSpace(c.GetHeader(HeaderName)); t != "" {
		return t
	}
	authz := c.GetHeader("Authorization")
	if len(authz) > len("bearer ") && strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	return ""
}
