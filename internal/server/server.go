// Package server exposes the conversion pipeline over HTTP.
//
// Routes:
//
//	POST /v1/convert   convert dependency files to the JSON document
//	GET  /healthz      liveness and build information
//
// A convert request carries either one raw dependency file as its body,
// named by the "name" query parameter, or a multipart/form-data body in
// which every file part is a source, in part order. Query parameters
// "format" (json, dot, svg) and "indent" select the output.
package server

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/dep2j/pkg/pipeline"
)

// DefaultMaxBodyBytes limits request bodies when Options leaves it unset.
const DefaultMaxBodyBytes = 32 << 20

// shutdownTimeout bounds graceful shutdown in Run.
const shutdownTimeout = 10 * time.Second

// Options configures a Server.
type Options struct {
	Runner       *pipeline.Runner
	Logger       *log.Logger
	MaxBodyBytes int64
	Jobs         int
}

// Server is the HTTP conversion service.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *log.Logger
}

// New creates a server listening on addr.
func New(addr string, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Runner == nil {
		opts.Runner = pipeline.NewRunner(nil, nil, opts.Logger)
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	h := newHandler(opts)
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
		},
		handler: h,
		logger:  opts.Logger,
	}
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Serve accepts connections on l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("listening", "addr", l.Addr().String())
	if err := s.httpServer.Serve(l); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Run listens on the configured address and serves until ctx is done, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	l, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() { errc <- s.Serve(l) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}

func newHandler(opts Options) http.Handler {
	h := &handler{
		runner:  opts.Runner,
		logger:  opts.Logger,
		maxBody: opts.MaxBodyBytes,
		jobs:    opts.Jobs,
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.healthz)
	r.Post("/v1/convert", h.convert)
	return r
}
