// Package api implements the debug HTTP server: a stand-in for the
// device's file-management and configuration API plus static asset
// serving from a local root.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Ning0612/devmanager/internal/adapter"
	"github.com/Ning0612/devmanager/internal/adapter/local"
	"github.com/Ning0612/devmanager/internal/core/checksum"
	"github.com/Ning0612/devmanager/internal/fileman"
	"github.com/Ning0612/devmanager/internal/livereload"
	"github.com/Ning0612/devmanager/internal/logger"
	"github.com/Ning0612/devmanager/internal/metrics"
	"github.com/Ning0612/devmanager/internal/resolver"
	"github.com/Ning0612/devmanager/internal/watcher"
)

// DefaultShutdownTimeout bounds graceful shutdown when none is configured
const DefaultShutdownTimeout = 5 * time.Second

// Options configures a Server
type Options struct {
	// Root is the directory assets are served from
	Root string

	// Static serves files only: no mock API routes, no directory listing
	Static bool

	// RedirectIndex redirects directory requests to their index.html
	// instead of serving it in place
	RedirectIndex bool

	// Metrics, when set, instruments every route and mounts /metrics
	Metrics *metrics.Metrics

	// LiveReload, when set, mounts /livereload and pushes a message for
	// every change under Root
	LiveReload *livereload.Hub

	// Logger defaults to the process-wide logger
	Logger logger.Logger

	// ShutdownTimeout defaults to DefaultShutdownTimeout
	ShutdownTimeout time.Duration
}

// Server owns the per-instance state the handlers share: the template
// cache, the ETag cache and the route table
type Server struct {
	opts Options
	log  logger.Logger

	fs        adapter.Adapter
	lister    *fileman.Lister
	template  *fileman.Template
	resolver  *resolver.Resolver
	etags     *checksum.ETagCache
	sanitizer *logger.Sanitizer
}

// New creates a server over opts.Root
func New(opts Options) (*Server, error) {
	fs, err := local.New(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("serve root %s: %w", opts.Root, err)
	}
	if opts.Logger == nil {
		opts.Logger = logger.Get()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}

	tpl := fileman.NewTemplate(fs)
	s := &Server{
		opts:      opts,
		log:       opts.Logger,
		fs:        fs,
		lister:    fileman.NewLister(fs),
		template:  tpl,
		resolver:  resolver.New(fs, tpl),
		etags:     checksum.NewETagCache(checksum.NewDefaultCalculator()),
		sanitizer: logger.NewSanitizer(),
	}

	if m := opts.Metrics; m != nil {
		m.Gauge("etag_cache_entries", "Files with a cached ETag", func() float64 {
			return float64(s.etags.Len())
		})
		if hub := opts.LiveReload; hub != nil {
			m.Gauge("livereload_clients", "Connected livereload clients", func() float64 {
				return float64(hub.Clients())
			})
		}
	}

	return s, nil
}

// Root returns the absolute directory being served
func (s *Server) Root() string {
	return s.fs.Root()
}

// Handler builds the mux from the route table
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	for _, route := range s.Routes() {
		var h http.Handler = route.Handler
		if s.opts.Metrics != nil {
			h = s.opts.Metrics.Middleware(route.Path, h)
		}
		mux.Handle(route.Pattern(), h)
	}
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. It closes ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.opts.LiveReload != nil {
		stop, err := s.startLiveReload(ctx)
		if err != nil {
			ln.Close()
			return err
		}
		defer stop()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()

	s.log.Info("serving",
		"addr", ln.Addr().String(),
		"root", s.Root(),
		"static", s.opts.Static,
		"metrics", s.opts.Metrics != nil,
		"livereload", s.opts.LiveReload != nil,
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	if s.opts.LiveReload != nil {
		s.opts.LiveReload.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// startLiveReload watches the root and forwards changes to the hub
func (s *Server) startLiveReload(ctx context.Context) (func(), error) {
	w, err := watcher.New(watcher.Options{Filter: watcher.IgnoreTemp})
	if err != nil {
		return nil, err
	}
	if err := w.AddTree(s.Root()); err != nil {
		w.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		if err := w.Run(ctx); err != nil {
			s.log.Warn("livereload watcher stopped", "error", err)
		}
	}()
	go s.opts.LiveReload.Forward(ctx, w.Events(), s.Root())

	return func() {
		cancel()
		w.Close()
	}, nil
}
