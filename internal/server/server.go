// Package server exposes the tutor over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/anuvad/internal/learner"
	"github.com/abhisek/anuvad/internal/tutor"
)

// Tutor is the service the handlers drive.
type Tutor interface {
	Generate(ctx context.Context, in tutor.GenerateInput) (*tutor.GenerateResult, error)
	Evaluate(ctx context.Context, in tutor.EvaluateInput) (*tutor.EvaluateResult, error)
	Chat(ctx context.Context, in tutor.ChatInput) (*tutor.ChatResult, error)
	Progress(ctx context.Context, learnerID string) (*learner.Report, error)
	Check(ctx context.Context, in tutor.CheckInput) (*tutor.CheckResult, error)
}

// Options configures the HTTP surface.
type Options struct {
	Version        string
	RequestTimeout time.Duration // zero disables the per-request deadline
	Logger         *slog.Logger
}

// Server wires the tutor into a gin engine.
type Server struct {
	tutor  Tutor
	opts   Options
	logger *slog.Logger
	engine *gin.Engine
}

// New builds the router. A nil logger uses slog.Default.
func New(t Tutor, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(opts.Logger), deadline(opts.RequestTimeout))

	s := &Server{
		tutor:  t,
		opts:   opts,
		logger: opts.Logger,
		engine: engine,
	}
	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully,
// giving in-flight requests up to grace to finish.
func (s *Server) Run(ctx context.Context, addr string, grace time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server: listening", "addr", addr, "version", s.opts.Version)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
	defer cancel()
	s.logger.Info("server: shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// requestLogger logs one line per request once the handler returns.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
		}
		if id := c.GetString(ctxLearnerKey); id != "" {
			attrs = append(attrs, "learner", id)
		}
		if status >= http.StatusInternalServerError {
			logger.Warn("http: request", attrs...)
			return
		}
		logger.Info("http: request", attrs...)
	}
}

// deadline bounds each request so a stalled model call surfaces as a
// timeout instead of holding the connection open.
func deadline(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
