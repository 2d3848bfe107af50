// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the paper catalog over HTTP: trigger ingestion,
// list and filter papers, and look up related papers.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/hagnberger/researchlens/internal/jobs"
	"github.com/hagnberger/researchlens/internal/pipeline"
	"github.com/hagnberger/researchlens/internal/store"
	"github.com/hagnberger/researchlens/pkg/logger"
	"github.com/hagnberger/researchlens/pkg/types"
)

const shutdownTimeout = 10 * time.Second

// Runner starts an ingestion run. Satisfied by pipeline.Pipeline.
type Runner interface {
	Run(ctx context.Context, numberArticles int, categories []string) (pipeline.Stats, error)
}

// Server holds the HTTP handlers' dependencies.
type Server struct {
	store  *store.Store
	queue  *jobs.Queue
	runner Runner
	cfg    types.ServerConfig
	log    *logger.Logger
}

// New builds a Server around the store, the job queue, and the ingestion
// runner.
func New(s *store.Store, q *jobs.Queue, r Runner, cfg types.ServerConfig, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	return &Server{store: s, queue: q, runner: r, cfg: cfg, log: log}
}

// Router builds the gin engine with CORS and all routes registered.
func (s *Server) Router() *gin.Engine {
	if s.cfg.Mode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthcheck", s.handleHealthcheck)
	api := router.Group("/api")
	{
		api.POST("/papers/fetch", s.handleFetch)
		api.GET("/papers", s.handleListPapers)
		api.GET("/papers/:id/related", s.handleRelatedPapers)
	}
	return router
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
