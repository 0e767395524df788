// Package server exposes the engine over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jan-sahayak/server/internal/agent/graph"
	"github.com/jan-sahayak/server/internal/agent/model"
	"github.com/jan-sahayak/server/internal/core"
	errx "github.com/jan-sahayak/server/internal/core/error"
	logx "github.com/jan-sahayak/server/pkg/logger"
)

type Server struct {
	runner graph.Runner
	router *gin.Engine
}

func New(runner graph.Runner, env core.Environment) *Server {
	if env.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{runner: runner, router: gin.New()}
	s.router.Use(gin.Recovery(), requestLogger())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api")
	api.POST("/query", s.handleQuery)
	api.GET("/threads/:id/history", s.handleHistory)
	api.DELETE("/threads/:id", s.handleClear)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logx.Info().Str("addr", addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	logx.Info().Msg("Shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleQuery(c *gin.Context) {
	var req model.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if c.Query("stream") == "false" {
		resp, err := s.runner.Handle(c.Request.Context(), req, nil)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	var mu sync.Mutex
	sink := func(ev model.Event) {
		mu.Lock()
		defer mu.Unlock()
		c.SSEvent(string(ev.Type), ev)
		c.Writer.Flush()
	}
	// the error, if any, has already been sent as an error event
	_, _ = s.runner.Handle(c.Request.Context(), req, sink)
}

func (s *Server) handleHistory(c *gin.Context) {
	threadID := c.Param("id")
	msgs, err := s.runner.History(c.Request.Context(), threadID)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]gin.H, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		out = append(out, gin.H{"role": m.Role, "content": m.Content})
	}
	c.JSON(http.StatusOK, gin.H{"thread_id": threadID, "messages": out})
}

func (s *Server) handleClear(c *gin.Context) {
	if err := s.runner.Clear(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func writeError(c *gin.Context, err error) {
	status := errx.Status(err)
	if status >= http.StatusInternalServerError {
		logx.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}
	c.JSON(status, gin.H{"error": errx.SafeMessage(err)})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logx.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("HTTP request")
	}
}
