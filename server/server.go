// Package server assembles the quiz services behind an HTTP server.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/Kevin-nav/AskTheSage/internal/profile"
	"github.com/Kevin-nav/AskTheSage/plugin/latex"
	"github.com/Kevin-nav/AskTheSage/server/middleware"
	"github.com/Kevin-nav/AskTheSage/server/render"
	apiv1 "github.com/Kevin-nav/AskTheSage/server/router/api/v1"
	"github.com/Kevin-nav/AskTheSage/server/service/mastery"
	"github.com/Kevin-nav/AskTheSage/server/service/review"
	"github.com/Kevin-nav/AskTheSage/server/service/session"
	"github.com/Kevin-nav/AskTheSage/store"
)

// idleSweepInterval is how often idle sessions are abandoned.
const idleSweepInterval = time.Minute

// Server is the assembled application.
type Server struct {
	Profile   *profile.Profile
	Store     *store.Store
	Scheduler *session.Scheduler
	Cache     *render.Cache

	echoServer *echo.Echo
	cancel     context.CancelFunc
}

// NewServer wires the full service stack. The renderer toolchain is
// validated once here; a missing toolchain disables rendering rather than
// failing startup, since text-only presentation is always available.
func NewServer(ctx context.Context, p *profile.Profile, st *store.Store) (*Server, error) {
	echoServer := echo.New()
	echoServer.Debug = p.Mode == "dev"
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(echomw.Recover())

	renderCache, err := buildRenderCache(ctx, p, st)
	if err != nil {
		return nil, err
	}

	tracker := mastery.NewTracker(st, p.MasteryAlpha)
	clock := review.NewClock(st)
	// Pointers keep an explicitly configured zero weight distinct from an
	// unset one.
	scheduler := session.NewScheduler(st, tracker, clock, session.Config{
		WeightDue:      &p.WeightDue,
		WeightWeakness: &p.WeightWeakness,
		WeightCoverage: &p.WeightCoverage,
		WeightJitter:   &p.WeightJitter,
		IdleTimeout:    p.SessionIdleTimeout,
	})

	apiService := apiv1.NewAPIV1Service(p, st, clock, scheduler, renderCache)
	apiService.Register(echoServer, middleware.NewRateLimiter(0, 0))

	return &Server{
		Profile:    p,
		Store:      st,
		Scheduler:  scheduler,
		Cache:      renderCache,
		echoServer: echoServer,
	}, nil
}

// buildRenderCache assembles the two-tier cache over the LaTeX renderer.
// Returns nil when the toolchain is unavailable.
func buildRenderCache(ctx context.Context, p *profile.Profile, st *store.Store) (*render.Cache, error) {
	renderer := latex.NewClient(&latex.Config{
		PDFLatexPath:   p.PDFLatexPath,
		PDFToCairoPath: p.PDFToCairo,
	})
	if err := renderer.Validate(ctx); err != nil {
		slog.Warn("latex toolchain unavailable, rendering disabled", "error", err)
		return nil, nil
	}

	disk, err := render.NewLocalDiskStore(p.Data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create artifact store")
	}
	durable := render.NewIndexedStore(disk, st)
	return render.NewCache(renderer, durable, render.CacheConfig{
		FastTierSize:  p.FastTierSize,
		RenderTimeout: p.RenderTimeout,
	}), nil
}

// Start runs the HTTP listener and the idle-session sweeper.
func (s *Server) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	go s.sweepIdleSessions(ctx)

	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	slog.Info("server started", "address", address, "version", s.Profile.Version)
	return s.echoServer.Start(address)
}

func (s *Server) sweepIdleSessions(ctx context.Context) {
	ticker := time.NewTicker(idleSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Scheduler.AbandonIdle(); n > 0 {
				slog.Info("abandoned idle sessions", "count", n)
			}
		}
	}
}

// Shutdown stops the listener and releases resources.
func (s *Server) Shutdown(ctx context.Context) {
	if s.cancel != nil {
		s.cancel()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.echoServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shut down http server", "error", err)
	}

	if s.Cache != nil {
		s.Cache.Close()
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
	slog.Info("server stopped")
}
