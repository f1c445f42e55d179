package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"parlour/internal/apperr"
	"parlour/internal/model"
)

const identityKey = "identity"

// Authenticator resolves a session token to an identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.Identity, error)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if len(authz) < len("bearer ") || !strings.EqualFold(authz[:len("bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(authz[len("bearer "):])
}

// RequireAuth enforces a valid bearer token and stores the identity on the context.
func RequireAuth(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := authn.Authenticate(c.Request.Context(), BearerToken(c.Request))
		if err != nil {
			if apperr.KindOf(err) == apperr.KindInternal {
				slog.Error("authenticate request", "err", err, "path", c.FullPath())
			}
			abort(c, err)
			return
		}
		c.Set(identityKey, u)
		c.Next()
	}
}

// RequireCapability rejects identities whose role lacks cap. It must run after RequireAuth.
func RequireCapability(cap Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentIdentity(c)
		if !ok {
			abort(c, apperr.Forbidden("User not authenticated"))
			return
		}
		if !Allows(u.Role, cap) {
			abort(c, apperr.Forbidden("User role "+string(u.Role)+" is not authorized to access this route"))
			return
		}
		c.Next()
	}
}

// CurrentIdentity returns the identity stored by RequireAuth.
func CurrentIdentity(c *gin.Context) (*model.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*model.Identity)
	return u, ok && u != nil
}

func abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperr.Status(err), gin.H{"success": false, "message": apperr.Message(err)})
}
