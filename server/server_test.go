package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogapi/common"
	"blogapi/config"
	"blogapi/database"
)

func testConfig(t *testing.T) config.Config {
	return config.Config{
		Env:       "test",
		APIPrefix: "/api/v1",
		DB:        config.DB{Driver: "sqlite", DSN: ":memory:"},
		JWT:       config.JWT{Secret: "test-secret", TTL: time.Hour},
		Upload:    config.Upload{Path: t.TempDir(), MaxSize: 1024},
		CORS:      []string{"http://localhost:3000"},
		RateLimit: config.RateLimit{Window: 15 * time.Minute, Max: 1000},
	}
}

func setupTestRouter(t *testing.T, cfg config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	db, err := common.ConnectDb(cfg.DB)
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db))

	router, err := NewRouter(cfg, db)
	require.NoError(t, err)
	return router
}

type client struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func (c *client) do(method, path, body string) *httptest.ResponseRecorder {
	req, err := http.NewRequest(method, path, strings.NewReader(body))
	require.NoError(c.t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestEndToEnd_RegisterToComment(t *testing.T) {
	c := &client{t: t, router: setupTestRouter(t, testConfig(t))}

	w := c.do(http.MethodPost, "/api/v1/auth/register", `{"name":"A","email":"a@x.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	registered := decode(t, w)
	assert.NotEmpty(t, registered["token"])
	userID := registered["user"].(map[string]interface{})["id"].(string)

	w = c.do(http.MethodPost, "/api/v1/auth/login", `{"email":"a@x.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	c.token = decode(t, w)["token"].(string)

	claims := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(c.token, claims)
	require.NoError(t, err)
	assert.Equal(t, userID, claims["id"])

	w = c.do(http.MethodPost, "/api/v1/categories", `{"name":"Tech"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	categoryID := decode(t, w)["id"].(string)

	w = c.do(http.MethodPost, "/api/v1/posts",
		fmt.Sprintf(`{"title":"Hello World","content":"<p>hi</p>","category":%q}`, categoryID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	post := decode(t, w)
	assert.Equal(t, "hello-world", post["slug"])
	postID := post["id"].(string)

	w = c.do(http.MethodPost, "/api/v1/posts/"+postID+"/comments", `{"content":"nice"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Len(t, decode(t, w)["comments"], 1)
}

func TestEndToEnd_OwnershipAndCategoryLifecycle(t *testing.T) {
	router := setupTestRouter(t, testConfig(t))
	alice := &client{t: t, router: router}
	bob := &client{t: t, router: router}
	anon := &client{t: t, router: router}

	w := alice.do(http.MethodPost, "/api/v1/auth/register", `{"name":"Alice","email":"alice@x.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	alice.token = decode(t, w)["token"].(string)
	w = bob.do(http.MethodPost, "/api/v1/auth/register", `{"name":"Bob","email":"bob@x.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	bob.token = decode(t, w)["token"].(string)

	w = alice.do(http.MethodPost, "/api/v1/categories", `{"name":"Tech"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	categoryID := decode(t, w)["id"].(string)

	w = alice.do(http.MethodPost, "/api/v1/posts",
		fmt.Sprintf(`{"title":"Only Post","content":"x","category":%q}`, categoryID))
	require.Equal(t, http.StatusCreated, w.Code)
	postID := decode(t, w)["id"].(string)

	w = anon.do(http.MethodDelete, "/api/v1/posts/"+postID, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = bob.do(http.MethodDelete, "/api/v1/posts/"+postID, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = alice.do(http.MethodDelete, "/api/v1/categories/"+categoryID, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = alice.do(http.MethodDelete, "/api/v1/posts/"+postID, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = bob.do(http.MethodDelete, "/api/v1/categories/"+categoryID, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEndToEnd_PaginationNeverRepeats(t *testing.T) {
	router := setupTestRouter(t, testConfig(t))
	c := &client{t: t, router: router}

	w := c.do(http.MethodPost, "/api/v1/auth/register", `{"name":"A","email":"a@x.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	c.token = decode(t, w)["token"].(string)
	w = c.do(http.MethodPost, "/api/v1/categories", `{"name":"Tech"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	categoryID := decode(t, w)["id"].(string)

	for i := 0; i < 15; i++ {
		w = c.do(http.MethodPost, "/api/v1/posts",
			fmt.Sprintf(`{"title":"Post %d","content":"x","category":%q}`, i, categoryID))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	seen := map[string]bool{}
	for page := 1; page <= 2; page++ {
		w = c.do(http.MethodGet, fmt.Sprintf("/api/v1/posts?page=%d&limit=10", page), "")
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, float64(15), body["meta"].(map[string]interface{})["total"])
		for _, item := range body["data"].([]interface{}) {
			id := item.(map[string]interface{})["id"].(string)
			assert.False(t, seen[id])
			seen[id] = true
		}
	}
	assert.Len(t, seen, 15)
}

func TestRouter_StatusCORSAndETag(t *testing.T) {
	c := &client{t: t, router: setupTestRouter(t, testConfig(t))}

	w := c.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "running", decode(t, w)["status"])

	req, _ := http.NewRequest(http.MethodOptions, "/api/v1/posts", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req, _ = http.NewRequest(http.MethodGet, "/api/v1/categories", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req, _ = http.NewRequest(http.MethodGet, "/api/v1/categories", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)

	w = c.do(http.MethodGet, "/api/v1/nowhere", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_RateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.Max = 2
	c := &client{t: t, router: setupTestRouter(t, cfg)}

	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/v1/categories", "").Code)
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/v1/categories", "").Code)
	w := c.do(http.MethodGet, "/api/v1/categories", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/", "").Code)
}
