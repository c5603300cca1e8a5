// Package server assembles the HTTP server and background runners.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/keepsakehq/keepsake/internal/profile"
	"github.com/keepsakehq/keepsake/plugin/blob"
	"github.com/keepsakehq/keepsake/plugin/vision"
	apiv1 "github.com/keepsakehq/keepsake/server/router/api/v1"
	"github.com/keepsakehq/keepsake/server/runner/enrichment"
	"github.com/keepsakehq/keepsake/store"
)

// Server is the assembled application.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer       *echo.Echo
	apiService       *apiv1.APIV1Service
	blobStore        *blob.Store
	enrichmentRunner *enrichment.Runner
	runnerCancel     context.CancelFunc
}

// NewServer wires the store, blob store, vision services and API
// routes together.
func NewServer(ctx context.Context, prof *profile.Profile, st *store.Store) (*Server, error) {
	echoServer := echo.New()
	echoServer.Debug = prof.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(echomw.Recover())
	echoServer.Use(echomw.CORS())

	blobStore, err := blob.NewStore(prof.Data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create blob store")
	}

	var visionService vision.Service
	if prof.IsVisionEnabled() {
		client, err := vision.NewClient(&vision.Config{
			BaseURL: prof.VisionBaseURL,
			APIKey:  prof.VisionAPIKey,
			Timeout: prof.VisionTimeout,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create vision client")
		}
		visionService = client
	}

	var embedder vision.EmbeddingService
	if prof.IsEmbeddingEnabled() {
		embedder, err = vision.NewEmbeddingService(&vision.EmbeddingConfig{
			Provider:   prof.EmbeddingProvider,
			APIKey:     prof.EmbeddingAPIKey,
			BaseURL:    prof.EmbeddingBaseURL,
			Model:      prof.EmbeddingModel,
			Dimensions: prof.EmbeddingDimensions,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create embedding service")
		}
	}

	server := &Server{
		Profile:    prof,
		Store:      st,
		echoServer: echoServer,
		blobStore:  blobStore,
	}

	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})
	server.registerBlobRoutes()

	server.apiService = apiv1.NewAPIV1Service(prof, st, blobStore, visionService, embedder)
	server.apiService.RegisterRoutes(echoServer)

	if visionService != nil {
		server.enrichmentRunner = enrichment.NewRunner(st, prof, visionService)
	}

	return server, nil
}

// Start launches the background runners and the HTTP listener.
func (s *Server) Start(ctx context.Context) error {
	if s.enrichmentRunner != nil {
		runnerCtx, cancel := context.WithCancel(ctx)
		s.runnerCancel = cancel
		go s.enrichmentRunner.Run(runnerCtx)
	}

	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	slog.Info("server started", "address", address, "mode", s.Profile.Mode)
	return s.echoServer.Start(address)
}

// Shutdown drains connections and stops background work.
func (s *Server) Shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if s.runnerCancel != nil {
		s.runnerCancel()
	}
	s.apiService.Close()

	if err := s.echoServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shut down server", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
	slog.Info("server stopped")
}

// registerBlobRoutes serves stored originals and thumbnails under /o/.
func (s *Server) registerBlobRoutes() {
	s.echoServer.GET("/o/*", func(c echo.Context) error {
		relPath := c.Param("*")
		file, err := s.blobStore.Open(relPath)
		if err != nil {
			return echo.NewHTTPError(http.StatusNotFound, "blob not found")
		}
		defer file.Close()
		info, err := file.Stat()
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to stat blob").SetInternal(err)
		}
		http.ServeContent(c.Response(), c.Request(), info.Name(), info.ModTime(), file)
		return nil
	})
}
