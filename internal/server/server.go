// Package server exposes the scenario runner over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/spi2wb/internal/auth"
	"github.com/danmuck/spi2wb/internal/bench"
	"github.com/danmuck/spi2wb/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

var ErrBusy = errors.New("server: a scenario is already running")

// Options tune a server. A non-empty Token guards the run route.
type Options struct {
	CORSOrigins []string
	Token       string
}

type Server struct {
	Name    string
	Addr    string
	Started time.Time

	runner  *bench.Runner
	router  *gin.Engine
	logger  zerolog.Logger
	guard   auth.Validator
	running atomic.Bool

	mu   sync.RWMutex
	last map[string]bench.Report
}

func New(name, addr string, runner *bench.Runner, opts Options) *Server {
	observability.RegisterMetrics()
	logger := observability.Component("server").With().Str("node", name).Logger()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(logger, "/health", "/metrics"))
	r.Use(observability.RequestMetricsMiddleware(name))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(opts.CORSOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", auth.TokenHeader},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		Name:    name,
		Addr:    addr,
		Started: time.Now(),
		runner:  runner,
		router:  r,
		logger:  logger,
		last:    make(map[string]bench.Report),
	}
	if opts.Token != "" {
		s.guard = auth.StaticToken{Token: opts.Token}
	}
	s.RegisterRoutes()
	return s
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

// Serve listens until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{Addr: s.Addr, Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.Addr).Msg("listening")
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run executes one scenario, refusing while another run is in progress.
func (s *Server) Run(ctx context.Context, name string) (bench.Report, error) {
	if !s.running.CompareAndSwap(false, true) {
		return bench.Report{}, ErrBusy
	}
	defer s.running.Store(false)
	rep, err := s.runner.Run(ctx, name)
	if errors.Is(err, bench.ErrUnknownScenario) {
		return rep, err
	}
	s.mu.Lock()
	s.last[name] = rep
	s.mu.Unlock()
	return rep, err
}

// LastReport returns the most recent report for name.
func (s *Server) LastReport(name string) (bench.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rep, ok := s.last[name]
	return rep, ok
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
