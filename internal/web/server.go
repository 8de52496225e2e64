// Package web serves the Leadyard JSON API over gin.
package web

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/leadyard/internal/lead"
	"github.com/zulandar/leadyard/internal/logging"
	"github.com/zulandar/leadyard/internal/models"
	"go.uber.org/zap"
)

// Engine is the conversation engine the chat endpoint drives.
type Engine interface {
	ProcessTurn(ctx context.Context, leadID, text string) (*models.Lead, error)
	Get(ctx context.Context, leadID string) (*models.Lead, error)
}

// StartOpts holds configuration for the API server.
type StartOpts struct {
	Store  lead.Repository
	Engine Engine
	Port   int
	Out    io.Writer
	Logger *zap.Logger
}

// NewRouter builds the gin router with every API route registered.
func NewRouter(opts StartOpts) (*gin.Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("web: store is required")
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("web: engine is required")
	}
	log := logging.OrNop(opts.Logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	registerRoutes(router, &handlers{store: opts.Store, engine: opts.Engine, log: log})
	return router, nil
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	router, err := NewRouter(opts)
	if err != nil {
		return err
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", opts.Port))
	if err != nil {
		return fmt.Errorf("web: listen: %w", err)
	}
	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Leadyard API listening on http://localhost:%d\n", opts.Port)
	}
	return serve(ctx, ln, router)
}

// serve runs handler on ln until ctx is cancelled.
func serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	err := srv.Serve(ln)
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("web: %w", err)
	}
	<-done
	return nil
}

// requestLogger logs one line per request at DEBUG, or WARN for 5xx.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		if status >= http.StatusInternalServerError {
			log.Warn("request failed", fields...)
			return
		}
		log.Debug("request", fields...)
	}
}
