// Copyright (c) 2025, the orionarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package api wires the HTTP server: listener setup, middleware and routes.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/CAFxX/httpcompression"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/orionarr/orionarr/internal/api/handlers"
	"github.com/orionarr/orionarr/internal/config"
	"github.com/orionarr/orionarr/internal/health"
	"github.com/orionarr/orionarr/internal/indexer"
)

type Server struct {
	server  *http.Server
	logger  zerolog.Logger
	config  *config.AppConfig
	version string

	translator *indexer.Translator
	reporter   *health.Reporter
}

type Dependencies struct {
	Config     *config.AppConfig
	Version    string
	Translator *indexer.Translator
	Reporter   *health.Reporter
}

func NewServer(deps *Dependencies) *Server {
	return &Server{
		server: &http.Server{
			ReadHeaderTimeout: time.Second * 15,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      120 * time.Second,
			IdleTimeout:       180 * time.Second,
		},
		logger:     log.Logger.With().Str("module", "api").Logger(),
		config:     deps.Config,
		version:    deps.Version,
		translator: deps.Translator,
		reporter:   deps.Reporter,
	}
}

func (s *Server) ListenAndServe() error {
	return s.open()
}

func (s *Server) open() error {
	addr := fmt.Sprintf("%s:%d", s.config.Config.Host, s.config.Config.Port)

	var lastErr error
	for _, proto := range []string{"tcp", "tcp4", "tcp6"} {
		err := s.tryToServe(addr, proto)
		if err == nil {
			return nil
		}

		if errors.Is(err, http.ErrServerClosed) {
			return err
		}

		s.logger.Error().Err(err).Str("addr", addr).Str("proto", proto).Msg("Failed to start server")
		lastErr = err
	}

	return lastErr
}

func (s *Server) tryToServe(addr, protocol string) error {
	listener, err := net.Listen(protocol, addr)
	if err != nil {
		return err
	}

	host := listener.Addr().String()
	// Replace 0.0.0.0 or :: with localhost for clickable links
	if strings.HasPrefix(host, "0.0.0.0:") || strings.HasPrefix(host, "[::]:") {
		host = strings.Replace(host, "0.0.0.0:", "localhost:", 1)
		host = strings.Replace(host, "[::]:", "localhost:", 1)
	}

	s.logger.Info().
		Str("protocol", protocol).
		Str("addr", listener.Addr().String()).
		Msgf("Starting Torznab server - Open: http://%s%s", host, s.config.Config.BaseURL)

	s.server.Handler = s.Handler()

	return s.server.Serve(listener)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) Handler() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Result feeds compress well; fast gzip keeps latency predictable.
	compressor, err := httpcompression.DefaultAdapter(
		httpcompression.MinSize(1024),
		httpcompression.GzipCompressionLevel(2),
		httpcompression.Prefer(httpcompression.PreferServer),
	)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create HTTP compression adapter")
	} else {
		r.Use(compressor)
	}

	corsMiddleware := cors.New(cors.Options{
		AllowedMethods:  []string{"HEAD", "OPTIONS", "GET"},
		AllowedHeaders:  []string{"Accept", "Content-Type"},
		AllowOriginFunc: func(origin string) bool { return true },
		MaxAge:          300,
	})
	r.Use(corsMiddleware.Handler)

	limits := indexer.Limits{
		Default: s.config.Config.DefaultLimit,
		Max:     s.config.Config.MaxLimit,
	}

	torznabHandler := handlers.NewTorznabHandler(s.translator, limits, s.config.Config.IndexerAPIKey)
	healthHandler := handlers.NewHealthHandler(s.reporter)
	rootHandler := handlers.NewRootHandler(s.version)

	baseURL := s.config.Config.BaseURL
	if baseURL == "" || baseURL == "/" {
		torznabHandler.Routes(r)
		r.Get("/health", healthHandler.Handle)
		r.Get("/", rootHandler.Handle)
		return r
	}

	r.Route(strings.TrimSuffix(baseURL, "/"), func(sub chi.Router) {
		torznabHandler.Routes(sub)
		sub.Get("/health", healthHandler.Handle)
		sub.Get("/", rootHandler.Handle)
	})
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Must use baseUrl: " + s.config.Config.BaseURL + " instead of /"))
	})

	return r
}
