package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"blogapi/auth"
	"blogapi/cache"
	"blogapi/categories"
	"blogapi/common"
	"blogapi/config"
	"blogapi/posts"
	"blogapi/rate"
	"blogapi/uploads"
)

const (
	Name    = "Blog API"
	Version = "1.0.0"
)

// NewRouter builds the HTTP handler with every module mounted under the
// configured API prefix.
func NewRouter(cfg config.Config, db *gorm.DB) (*gin.Engine, error) {
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := uploads.NewStore(cfg.Upload.Path, cfg.Upload.MaxSize)
	if err != nil {
		return nil, err
	}
	tokens := auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.TTL)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(common.RequestLogger())
	router.Use(CORSMiddleware(cfg.CORS))
	router.Use(securityHeaders())

	router.Static(uploads.PublicPrefix, store.Dir())

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    Name,
			"version": Version,
			"status":  "running",
		})
	})

	api := router.Group(cfg.APIPrefix)
	api.Use(rate.Middleware(rate.NewMemory(), cfg.RateLimit.Max, cfg.RateLimit.Window))
	api.Use(cache.ETagMiddleware())

	authModule := auth.NewAuthModule(db, tokens)
	authModule.RegisterRoutes(api)

	categoryModule := categories.NewCategoryModule(db, authModule)
	categoryModule.RegisterRoutes(api)

	postModule := posts.NewPostModule(db, authModule, store)
	postModule.RegisterRoutes(api)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Route not found"})
	})

	return router, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, cfg config.Config, db *gorm.DB) error {
	router, err := NewRouter(cfg, db)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", cfg.Addr, "env", cfg.Env, "prefix", cfg.APIPrefix)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
