// Package devserver serves the game pages for local development alongside a
// small JSON API over the ledger and the sync facade.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"gameworld/internal/broadcast"
	"gameworld/internal/facade"
	"gameworld/internal/ledger"
	"gameworld/internal/metrics"
	"gameworld/internal/wshub"
)

const (
	DefaultHost = "localhost"
	DefaultPort = 8000

	reloadDebounce  = 150 * time.Millisecond
	shutdownTimeout = 5 * time.Second
)

// Pinger reports whether the remote store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	Ledger      *ledger.Ledger
	Facade      *facade.Facade
	DB          Pinger // nil when no database is configured
	Hub         *wshub.Hub
	Broadcaster *broadcast.Broadcaster
	Metrics     *metrics.Metrics // nil disables /metrics
	StaticDir   string
	LiveReload  bool
	Log         *slog.Logger
}

func (s *Server) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

// Routes builds the full handler: API, notifications, metrics and, for
// everything else, the static files.
func (s *Server) Routes() (http.Handler, error) {
	static, err := NewStatic(s.StaticDir, s.logger())
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.requestLog)

	r.Get("/healthz", s.handleHealth)
	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics.Handler())
	}
	if s.Hub != nil {
		r.Get("/ws", s.handleWS)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/points", s.handlePoints)
		r.Post("/points", s.handleAddPoints)
		r.Get("/ledger", s.handleLedger)
		r.Post("/ledger/score", s.handleLedgerScore)
		r.Get("/views", s.handleAllViews)
		r.Get("/views/{game}", s.handleGameViews)
		r.Post("/views/{game}", s.handleRecordView)
		r.Get("/session", s.handleSession)
		r.Post("/auth/signup", s.handleSignUp)
		r.Post("/auth/signin", s.handleSignIn)
		r.Post("/auth/signout", s.handleSignOut)
	})

	r.Handle("/*", static)
	return r, nil
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger().Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

// Run listens on addr and serves until ctx is cancelled or the process
// receives SIGINT or SIGTERM.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("port already in use (%s): stop the other server or pick another --port", addr)
		}
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Serve(ctx, ln)
}

// Serve runs the HTTP server, the notification hub and the file watcher on
// ln until ctx is done. The first component to fail stops the others.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	handler, err := s.Routes()
	if err != nil {
		ln.Close()
		return err
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger().Info("server listening", "url", "http://"+ln.Addr().String(), "dir", s.StaticDir)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})

	if s.Hub != nil && s.Broadcaster != nil {
		g.Go(func() error {
			s.Hub.Run(ctx, s.Broadcaster)
			return nil
		})
	}

	if s.LiveReload && s.Broadcaster != nil {
		g.Go(func() error {
			return WatchStatic(ctx, s.StaticDir, reloadDebounce, s.Broadcaster, s.logger())
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger().Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
