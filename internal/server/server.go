/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server assembles the studio process: database, event bus, playout
// engine, mixer, and HTTP surfaces.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/friendsincode/bragi_studio/internal/api"
	"github.com/friendsincode/bragi_studio/internal/config"
	"github.com/friendsincode/bragi_studio/internal/db"
	"github.com/friendsincode/bragi_studio/internal/eventbus"
	"github.com/friendsincode/bragi_studio/internal/events"
	"github.com/friendsincode/bragi_studio/internal/history"
	"github.com/friendsincode/bragi_studio/internal/library"
	"github.com/friendsincode/bragi_studio/internal/mixer"
	"github.com/friendsincode/bragi_studio/internal/playout"
	"github.com/friendsincode/bragi_studio/internal/policy"
	"github.com/friendsincode/bragi_studio/internal/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// EventBus is the pubsub surface shared by all backends.
type EventBus interface {
	playout.EventBus
	Close() error
}

// Server is the assembled studio process.
type Server struct {
	cfg    *config.Config
	logger zerolog.Logger

	gorm    *gorm.DB
	bus     EventBus
	engine  *playout.Engine
	mixer   *mixer.Controller
	httpSrv *http.Server
	metrics *http.Server

	cancel context.CancelFunc
}

// New wires the full studio process from configuration.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	bus := newBus(cfg, logger)

	lib := library.New(gormDB, logger)
	hist := history.NewStore(gormDB, logger)

	pol := policy.Policy{
		ArtistSeparation: cfg.ArtistSeparation,
		TitleSeparation:  cfg.TitleSeparation,
	}
	if stored, ok, err := lib.StationPolicy(context.Background()); err != nil {
		logger.Warn().Err(err).Msg("load station settings, using configured policy")
	} else if ok {
		if stored.ArtistSeparation > 0 {
			pol.ArtistSeparation = stored.ArtistSeparation
		}
		if stored.TitleSeparation > 0 {
			pol.TitleSeparation = stored.TitleSeparation
		}
		logger.Info().
			Dur("artist_separation", pol.ArtistSeparation).
			Dur("title_separation", pol.TitleSeparation).
			Msg("playout policy loaded from station settings")
	}

	engine := playout.NewEngine(playout.Options{
		Bus:      bus,
		History:  hist,
		Resolver: lib,
		Policy:   pol,
		Tick:     cfg.EngineTick,
		Logger:   logger,
	})

	mix := mixer.NewController(bus, logger)

	handler := api.NewHandler(engine, mix, hist, lib, logger)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(telemetry.TracingMiddleware("bragi_studio"))
	router.Use(telemetry.MetricsMiddleware)
	router.Use(middleware.Timeout(30 * time.Second))
	handler.Routes(router)

	s := &Server{
		cfg:    cfg,
		logger: logger.With().Str("component", "server").Logger(),
		gorm:   gormDB,
		bus:    bus,
		engine: engine,
		mixer:  mix,
		httpSrv: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		metrics: &http.Server{
			Addr:              cfg.MetricsBind,
			Handler:           metricsMux(),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	return s, nil
}

// Run starts the engine loop and HTTP listeners, blocking until ctx is
// cancelled or a listener fails.
func (s *Server) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	go s.engine.Run(runCtx)
	go s.mirrorTransportToMixer(runCtx)

	errCh := make(chan error, 2)
	go func() {
		s.logger.Info().Str("addr", s.metrics.Addr).Msg("metrics listener started")
		if err := s.metrics.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics listener: %w", err)
		}
	}()
	go func() {
		s.logger.Info().Str("addr", s.httpSrv.Addr).Msg("http listener started")
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http listener: %w", err)
		}
	}()

	select {
	case <-runCtx.Done():
		return nil
	case err := <-errCh:
		cancel()
		return err
	}
}

// Shutdown stops listeners and releases resources.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("http shutdown")
	}
	if err := s.metrics.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("metrics shutdown")
	}
	if err := s.bus.Close(); err != nil {
		s.logger.Error().Err(err).Msg("event bus close")
	}
	if err := db.Close(s.gorm); err != nil {
		s.logger.Error().Err(err).Msg("database close")
	}
	s.logger.Info().Msg("server stopped")
	return nil
}

// mirrorTransportToMixer keeps the mixer's playing flag in step with the
// transport by watching state events, so ducking reacts to every transport
// source (API, engine self-clock, remote replicas).
func (s *Server) mirrorTransportToMixer(ctx context.Context) {
	sub := s.bus.Subscribe(events.EventPlayerState)
	defer s.bus.Unsubscribe(events.EventPlayerState, sub)

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-sub:
			if !ok {
				return
			}
			if playing, ok := payload["playing"].(bool); ok {
				s.mixer.SetPlaying(playing)
			}
		}
	}
}

func newBus(cfg *config.Config, logger zerolog.Logger) EventBus {
	nodeID := cfg.InstanceID
	if nodeID == "" {
		nodeID = uuid.NewString()
	}

	switch cfg.EventBus {
	case config.EventBusRedis:
		rc := eventbus.DefaultRedisConfig()
		rc.Addr = cfg.RedisAddr
		rc.Password = cfg.RedisPassword
		rc.DB = cfg.RedisDB
		return eventbus.NewRedisBus(rc, nodeID, logger)
	case config.EventBusNATS:
		nc := eventbus.DefaultNATSConfig()
		nc.URL = cfg.NATSURL
		return eventbus.NewNATSBus(nc, nodeID, logger)
	default:
		return localBus{events.NewBus()}
	}
}

// localBus adapts the in-process bus to the closable bus interface.
type localBus struct {
	*events.Bus
}

func (localBus) Close() error { return nil }

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler())
	return mux
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	httpLogger := logger.With().Str("component", "http").Logger()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			httpLogger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
