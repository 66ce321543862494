// Package server exposes the form store over HTTP. Every request is scoped to
// a tenant taken from a bearer token; the tenant doubles as the store
// namespace.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/goliatone/go-formbuilder/internal/app"
	"github.com/goliatone/go-formbuilder/pkg/renderers/vanilla"
	"github.com/goliatone/go-formbuilder/pkg/store"
)

const shutdownTimeout = 5 * time.Second

// Server wires the HTTP routes to an assembled app.
type Server struct {
	app    *app.App
	secret []byte
	logger *slog.Logger
	engine *gin.Engine
}

// New builds the router. An empty server.jwtSecret disables authentication
// and serves the configured namespace only.
func New(a *app.App) *Server {
	s := &Server{
		app:    a,
		secret: []byte(a.Config.Server.JWTSecret),
		logger: a.Logger.With("component", "server"),
	}
	s.engine = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	r.GET("/healthz", s.health)
	r.GET("/assets/themes/:theme/theme.css", s.themeStylesheet)
	r.StaticFS("/assets/formbuilder", http.FS(vanilla.AssetsFS()))

	api := r.Group("/api")
	api.GET("/templates", s.listTemplates)
	api.GET("/themes", s.listThemes)
	api.GET("/renderers", s.listRenderers)

	forms := api.Group("/forms")
	forms.Use(authenticate(s.secret, s.app.Config.Store.Namespace))
	forms.GET("", s.listForms)
	forms.POST("", s.createForm)
	forms.GET("/:id", s.getForm)
	forms.PUT("/:id", s.replaceForm)
	forms.PATCH("/:id", s.patchForm)
	forms.DELETE("/:id", s.deleteForm)
	forms.PATCH("/:id/meta", s.patchMeta)
	forms.POST("/:id/duplicate", s.duplicateForm)
	forms.POST("/:id/validate", s.validateResponse)
	forms.GET("/:id/schema", s.schema)
	forms.GET("/:id/export", s.exportForm)
	forms.GET("/:id/theme", s.formTheme)
	forms.GET("/:id/render", s.renderForm)
	forms.POST("/:id/render", s.renderForm)
	return r
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) store(c *gin.Context) *store.Store {
	return s.app.Store(tenantFrom(c))
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.logger.Info("stopped")
		return nil
	}
}
