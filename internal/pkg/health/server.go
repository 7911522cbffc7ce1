package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Vodeneev/linecompare/internal/pkg/health/handlers"
	"github.com/Vodeneev/linecompare/internal/pkg/performance"
	"github.com/Vodeneev/linecompare/internal/pkg/snapshot"
)

type Options struct {
	Service           string
	ReadHeaderTimeout time.Duration
	AllowedOrigins    []string
	HighlightTTL      time.Duration
	PollInterval      time.Duration
	// WebSocket makes the page subscribe to /ws instead of polling.
	WebSocket bool

	Store   *snapshot.Store
	Trigger func() bool
	Tracker *performance.Tracker
}

// NewRouter wires the handlers to opts and returns the router together with
// the websocket hub, which the caller must Run.
func NewRouter(ctx context.Context, opts Options) (http.Handler, *Hub) {
	handlers.SetGetSnapshotFunc(opts.Store.Load)
	handlers.SetGetEventsByNameFunc(opts.Store.EventsByName)
	handlers.SetTriggerFunc(opts.Trigger)
	handlers.SetTracker(opts.Tracker)
	handlers.SetHighlightTTL(opts.HighlightTTL)
	handlers.SetPageOptions(handlers.PageOptions{PollInterval: opts.PollInterval, WebSocket: opts.WebSocket})

	hub := NewHub(opts.Store, opts.HighlightTTL, opts.AllowedOrigins)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Cycle", "X-Query-Duration", "X-Matches-Count"},
		MaxAge:         300,
	}))

	// Health endpoints
	r.Get("/ping", handlers.HandlePing)
	r.Get("/health", handlers.HandleHealth)
	r.Get("/metrics", handlers.HandleMetrics)

	r.Get("/", handlers.HandlePage)
	r.Get("/ws", hub.ServeWS(ctx))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))
		r.Get("/odds", handlers.HandleOdds)
		r.Get("/odds.txt", handlers.HandleOddsText)
		r.Get("/odds/match", handlers.HandleMatchByName)
		r.Post("/parse", handlers.HandleParse)
	})

	return r, hub
}

// Run starts the HTTP server and the websocket hub in the background. Both stop
// when ctx is done. It fails only if the listener cannot be opened.
func Run(ctx context.Context, addr string, opts Options) error {
	if opts.ReadHeaderTimeout <= 0 {
		return errors.New("read_header_timeout must be specified in config")
	}

	router, hub := NewRouter(ctx, opts)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
	}

	go hub.Run(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		slog.Info("HTTP server listening", "service", opts.Service, "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "service", opts.Service, "error", err)
		}
	}()
	return nil
}

func AddrFor(port int) string {
	return fmt.Sprintf(":%d", port)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
