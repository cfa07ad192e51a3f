// Package server exposes stored and rewritten manifests, media files and
// metrics over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/eleven-am/hlsladder/internal/domain"
)

const (
	playlistContentType = "application/vnd.apple.mpegurl"
	shutdownTimeout     = 10 * time.Second
)

// Manifests is what the server needs from the controller.
type Manifests interface {
	Master(ctx context.Context, videoID, requestBase string) (string, error)
	Manifest(ctx context.Context, key domain.ManifestKey) ([]byte, error)
}

type Options struct {
	Manifests Manifests

	// OutputDir holds segments and caption files, laid out {videoId}/...
	OutputDir string

	// BasePath prefixes every video route, e.g. "/output".
	BasePath string

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler

	Logger *slog.Logger
}

type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	manifests  Manifests
	outputDir  string
	basePath   string
	logger     *slog.Logger
}

// New builds the server and registers every route.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	mux := http.NewServeMux()

	config := huma.DefaultConfig("hlsladder", "1.0.0")
	config.Info.Description = "Adaptive bitrate HLS manifests"
	config.Servers = []*huma.Server{}
	api := humago.New(mux, config)

	s := &Server{
		api:       api,
		mux:       mux,
		manifests: opts.Manifests,
		outputDir: opts.OutputDir,
		basePath:  opts.BasePath,
		logger:    logger,
	}

	api.UseMiddleware(s.loggingMiddleware)

	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}

	s.registerRoutes(api)
	mux.HandleFunc("GET "+s.basePath+"/{videoId}/{path...}", s.serveFile)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) API() huma.API {
	return s.api
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr, "base_path", s.basePath)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("stopping http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
