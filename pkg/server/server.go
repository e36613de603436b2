// Package server exposes the layout engine over HTTP.
//
// Every endpoint takes a whole document and answers with the patch set and
// the patched document, so the API is as stateless as the engine. When a
// persistence batcher is configured, patches are also queued for writing.
//
// # Endpoints
//
//	POST /v1/moved      {document, trigger}
//	POST /v1/resized    {document, trigger}
//	POST /v1/added      {document, trigger}
//	POST /v1/relayout   {document, scope, all, refresh}
//	POST /v1/tidy       {document, scope, refresh}
//	POST /v1/maintain   {document}
//	POST /v1/render     {document}  ?format=dot|svg|png&labels=true
//	GET  /healthz
//	GET  /metrics       when a metrics handler is set
//
// Errors are answered as {"code": ..., "message": ...} with the status from
// [errors.HTTPStatus].
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hrhrng/clash-sub002/pkg/engine"
	"github.com/hrhrng/clash-sub002/pkg/persist"
	"github.com/hrhrng/clash-sub002/pkg/pipeline"
)

const (
	defaultMaxBodyBytes = 8 << 20
	shutdownTimeout     = 10 * time.Second
)

// Options configures a Server.
type Options struct {
	// Batcher receives every non-empty patch set. Nil disables persistence.
	Batcher *persist.Batcher
	// Metrics is mounted at /metrics when set.
	Metrics      http.Handler
	MaxBodyBytes int64
	Logger       *log.Logger
}

// Server serves layout operations.
type Server struct {
	runner  *pipeline.Runner
	batcher *persist.Batcher
	metrics http.Handler
	maxBody int64
	logger  *log.Logger
}

// New creates a server around runner.
func New(runner *pipeline.Runner, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Server{
		runner:  runner,
		batcher: opts.Batcher,
		metrics: opts.Metrics,
		maxBody: opts.MaxBodyBytes,
		logger:  opts.Logger,
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.accessLog)

	r.Get("/healthz", s.health)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.limitBody)
		r.Post("/moved", s.operation(engine.OpMoved))
		r.Post("/resized", s.operation(engine.OpResized))
		r.Post("/added", s.operation(engine.OpAdded))
		r.Post("/relayout", s.operation(engine.OpRelayout))
		r.Post("/tidy", s.operation(engine.OpTidy))
		r.Post("/maintain", s.operation(engine.OpMaintain))
		r.Post("/render", s.render)
	})

	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
