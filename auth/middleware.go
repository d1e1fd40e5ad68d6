package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"blogapi/common"
)

const actorKey = "actor"

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Actor, error)
}

// RequireAuth rejects the request with 401 unless it carries a valid bearer
// token. On success the actor is bound to this request's context only.
func RequireAuth(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, no token"})
			return
		}

		actor, err := authn.Authenticate(c.Request.Context(), token)
		if err != nil {
			if common.StatusFor(err) == http.StatusInternalServerError {
				common.RespondError(c, err)
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token is not valid"})
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// ActorFrom returns the actor bound by RequireAuth. It panics when called on
// a route without the middleware; gin.Recovery turns that into a 500.
func ActorFrom(c *gin.Context) Actor {
	return c.MustGet(actorKey).(Actor)
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
