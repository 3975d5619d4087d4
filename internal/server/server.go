package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	zerrors "github.com/zcc-dev/zcc/internal/errors"
	"github.com/zcc-dev/zcc/internal/pack"
	"github.com/zcc-dev/zcc/internal/source"
	"github.com/zcc-dev/zcc/internal/telemetry"
)

// Config configures the pack server.
type Config struct {
	// Dir holds one directory per pack.
	Dir string

	// Addr is the listen address. Defaults to ":8642".
	Addr string

	// Token, when set, is required as a bearer token on pack routes.
	Token string

	// Watch enables change notifications on /events.
	Watch bool

	// PollInterval is the watcher polling interval.
	PollInterval time.Duration

	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// DefaultAddr is the default listen address.
const DefaultAddr = ":8642"

// Server serves a directory of packs using the layout http sources read.
type Server struct {
	cfg     Config
	logger  *slog.Logger
	src     source.Source
	hub     *Hub
	watcher *Watcher
	router  chi.Router
}

// New creates a Server for cfg.Dir.
func New(cfg Config) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	src, err := source.New(source.Config{
		ID:      "serve",
		Type:    source.KindCustom,
		Enabled: true,
		Config:  map[string]any{"path": cfg.Dir},
	}, source.Options{Logger: logger})
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:    cfg,
		logger: logger.With("component", "server"),
		src:    src,
		hub:    NewHub(),
	}
	if cfg.Watch {
		s.watcher = NewWatcher(WatcherConfig{Root: cfg.Dir, Interval: cfg.PollInterval})
		s.watcher.OnChange(s.handleChanges)
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the change notification hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if reg := s.cfg.Metrics.Registry(); reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(s.auth)
		r.Get("/events", s.hub.HandleWebSocket)
		r.Get("/index.json", s.handleIndex)
		r.Get("/{pack}/components/{type}/{file}", s.handleComponent)
		r.Get("/{pack}/*", s.handleFile)
	})
	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.cfg.Metrics.RecordServed(route, status)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", status)
	})
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Token != "" {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.Token)) != 1 {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	names, err := s.src.ListPacks(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	idx := source.Index{Packs: make([]source.IndexEntry, 0, len(names))}
	for _, name := range names {
		e := source.IndexEntry{Name: name}
		if st, err := s.src.LoadPack(r.Context(), name); err == nil {
			e.Version = st.Manifest.Version
			e.Description = st.Manifest.Description
		} else {
			s.logger.Warn("pack listed but not loadable", "pack", name, "error", err)
		}
		idx.Packs = append(idx.Packs, e)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(idx)
}

func (s *Server) handleComponent(w http.ResponseWriter, r *http.Request) {
	t := pack.ComponentType(chi.URLParam(r, "type"))
	file := chi.URLParam(r, "file")
	if !t.Valid() || !strings.HasSuffix(file, t.Ext()) {
		http.NotFound(w, r)
		return
	}
	data, err := s.src.ReadComponent(r.Context(), chi.URLParam(r, "pack"), t, strings.TrimSuffix(file, t.Ext()))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeFile(w, file, data)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	rel := chi.URLParam(r, "*")
	data, err := s.src.ReadFile(r.Context(), chi.URLParam(r, "pack"), rel)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeFile(w, rel, data)
}

func writeFile(w http.ResponseWriter, name string, data []byte) {
	switch {
	case strings.HasSuffix(name, ".json"):
		w.Header().Set("Content-Type", "application/json")
	case strings.HasSuffix(name, ".yaml"), strings.HasSuffix(name, ".yml"):
		w.Header().Set("Content-Type", "application/yaml")
	case strings.HasSuffix(name, ".md"):
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	_, _ = w.Write(data)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fs.ErrNotExist),
		zerrors.HasCode(err, zerrors.CodePackNotFound),
		zerrors.HasCode(err, zerrors.CodeManifestNotFound),
		zerrors.HasCode(err, zerrors.CodeComponentInstallError):
		http.Error(w, "not found", http.StatusNotFound)
	case zerrors.HasCode(err, zerrors.CodeValidation):
		http.Error(w, "bad request", http.StatusBadRequest)
	default:
		s.logger.Error("serving pack file", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) handleChanges(changes []Change) {
	s.src.ClearCache()
	byPack := map[string][]string{}
	for _, c := range changes {
		if c.Pack != "" {
			byPack[c.Pack] = append(byPack[c.Pack], c.Path)
		}
	}
	for _, name := range changedPacks(changes) {
		ev := Event{Type: EventChanged, Pack: name, Files: byPack[name]}
		if !s.src.HasPack(context.Background(), name) {
			ev.Type = EventRemoved
		} else if st, err := s.src.LoadPack(context.Background(), name); err != nil {
			ev.Type = EventError
			ev.Error = err.Error()
		} else if res := pack.NewValidator("").Validate(st.Manifest); !res.Valid {
			ev.Type = EventError
			ev.Error = strings.Join(res.Errors, "; ")
		}
		s.logger.Info("pack changed", "pack", name, "type", ev.Type, "files", len(ev.Files))
		s.hub.Broadcast(ev)
	}
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.watcher != nil {
		go func() {
			if err := s.watcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("watcher stopped", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving packs", "dir", s.cfg.Dir, "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	return srv.Shutdown(shutdownCtx)
}
