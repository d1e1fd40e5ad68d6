package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"blogapi/common"
	"blogapi/models"
)

type stubAuthenticator struct {
	actor Actor
	err   error
	calls int
}

func (s *stubAuthenticator) Authenticate(ctx context.Context, token string) (Actor, error) {
	s.calls++
	if token != "good" {
		return Actor{}, common.ErrInvalidToken
	}
	return s.actor, s.err
}

func gateRouter(authn Authenticator, reached *bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/private", RequireAuth(authn), func(c *gin.Context) {
		*reached = true
		c.JSON(http.StatusOK, gin.H{"id": ActorFrom(c).ID})
	})
	return router
}

func TestRequireAuth(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCalls  int
	}{
		{"no header", "", http.StatusUnauthorized, 0},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, 0},
		{"empty token", "Bearer ", http.StatusUnauthorized, 0},
		{"invalid token", "Bearer bad", http.StatusUnauthorized, 1},
		{"valid token", "Bearer good", http.StatusOK, 1},
		{"lowercase scheme", "bearer good", http.StatusOK, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubAuthenticator{actor: Actor{ID: "u1"}}
			reached := false
			router := gateRouter(stub, &reached)

			req, _ := http.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCalls, stub.calls)
			assert.Equal(t, tt.wantStatus == http.StatusOK, reached)
		})
	}
}

func TestRequireAuth_StoreFailureIsServerError(t *testing.T) {
	stub := &stubAuthenticator{err: errors.New("database is locked")}
	reached := false
	router := gateRouter(stub, &reached)

	req, _ := http.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "locked")
	assert.False(t, reached)
}

func TestAuthorize(t *testing.T) {
	alice := Actor{ID: "alice"}
	bob := Actor{ID: "bob"}
	post := &models.Post{AuthorID: "alice"}

	assert.NoError(t, Authorize(alice, post, ActionUpdate))
	assert.NoError(t, Authorize(alice, post, ActionDelete))
	assert.ErrorIs(t, Authorize(bob, post, ActionDelete), common.ErrForbidden)
	assert.ErrorIs(t, Authorize(Actor{}, post, ActionUpdate), common.ErrForbidden)

	category := &models.Category{Name: "Tech"}
	assert.NoError(t, Authorize(bob, category, ActionDelete))
}
