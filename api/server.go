// Package api exposes the service over HTTP with gin.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/stratlab/auth"
	"github.com/rustyeddy/stratlab/service"
)

const ownerKey = "owner"

type Server struct {
	router *gin.Engine
	svc    *service.Service
	auth   *auth.Service
	log    zerolog.Logger
	http   *http.Server
}

func New(svc *service.Service, authSvc *auth.Service, logger *zerolog.Logger) *Server {
	if logger == nil {
		logger = &log.Logger
	}
	s := &Server{
		router: gin.New(),
		svc:    svc,
		auth:   authSvc,
		log:    logger.With().Str("component", "api").Logger(),
	}
	s.router.Use(gin.Recovery(), s.requestLogger(), s.identity())
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() {
	r := s.router
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	r.POST("/auth/signup", s.handleSignup)
	r.POST("/auth/login", s.handleLogin)

	r.GET("/strategies", s.handleStrategies)
	r.GET("/data/series", s.handleSeries)
	r.POST("/data/check", s.handleCheckData)

	r.POST("/backtests", s.handleRun)

	g := r.Group("/sessions")
	g.GET("", s.handleListSessions)
	g.DELETE("", s.handlePurge)
	g.GET("/:name", s.handleGetSession)
	g.DELETE("/:name", s.handleDeleteSession)
	g.GET("/:name/export", s.handleExport)
	g.POST("/:name/save", s.handleSave)
	g.POST("/:name/rerun", s.handleRerun)
	g.POST("/:name/optimize", s.handleOptimize)
}

// identity resolves the bearer token into the request owner. No token
// means anonymous; a bad token is rejected.
func (s *Server) identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if h := c.GetHeader("Authorization"); h != "" {
			var ok bool
			token, ok = strings.CutPrefix(h, "Bearer ")
			if !ok {
				abort(c, http.StatusUnauthorized, "invalid_token", "expected a Bearer token")
				return
			}
		}
		owner := auth.Anonymous
		if s.auth != nil {
			who, err := s.auth.Identify(strings.TrimSpace(token))
			if err != nil {
				abort(c, http.StatusUnauthorized, "invalid_token", err.Error())
				return
			}
			owner = who
		}
		c.Set(ownerKey, owner)
		c.Next()
	}
}

func owner(c *gin.Context) string {
	return c.GetString(ownerKey)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("listening")
		errc <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info().Msg("shutting down")
		return s.http.Shutdown(shutdown)
	}
}
