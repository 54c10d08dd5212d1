package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samvad-hq/sharecount/internal/logger"
	"github.com/samvad-hq/sharecount/pkg/sharecount"
)

const shutdownTimeout = 10 * time.Second

// Server exposes share-count lookups over HTTP.
type Server struct {
	addr       string
	lookupOpts []sharecount.Option
	log        logger.Logger
	router     chi.Router
}

// New builds the router. lookupOpts are applied to the Lookup built for each
// request.
func New(addr string, lookupOpts []sharecount.Option, log logger.Logger) *Server {
	if log == nil {
		log = logger.NopLogger{}
	}
	s := &Server{
		addr:       addr,
		lookupOpts: append([]sharecount.Option(nil), lookupOpts...),
		log:        log,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)

	r.Get("/healthz", s.healthz)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/count", s.count)
		r.Get("/counts", s.counts)
	})
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.InfoObj("http server listening", "server_addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.DebugObj("http request served", "http_request", map[string]any{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"elapsed_ms": time.Since(start).Milliseconds(),
		})
	})
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type countResponse struct {
	URL     string `json:"url"`
	Network string `json:"network"`
	Count   int64  `json:"count"`
}

// count answers with the silent-zero count of a single network.
func (s *Server) count(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target := strings.TrimSpace(q.Get("url"))
	if target == "" {
		writeError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}
	network := sharecount.Network(strings.ToLower(strings.TrimSpace(q.Get("network"))))
	if network == "" {
		network = sharecount.All
	}

	var extra []string
	if ct := strings.TrimSpace(q.Get("count_type")); ct != "" {
		extra = append(extra, ct)
	}

	lookup := sharecount.New(target, s.lookupOpts...)
	writeJSON(w, http.StatusOK, countResponse{
		URL:     target,
		Network: string(network),
		Count:   lookup.Count(r.Context(), network, extra...),
	})
}

type networkResult struct {
	Network string `json:"network"`
	Count   int64  `json:"count"`
	Error   string `json:"error,omitempty"`
}

type countsResponse struct {
	URL     string          `json:"url"`
	Results []networkResult `json:"results"`
	Total   int64           `json:"total"`
}

func (s *Server) counts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target := strings.TrimSpace(q.Get("url"))
	if target == "" {
		writeError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}

	networks := []sharecount.Network{sharecount.All}
	if raw := strings.TrimSpace(q.Get("networks")); raw != "" {
		parsed, err := sharecount.ParseNetworks([]string{raw})
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if len(parsed) > 0 {
			networks = parsed
		}
	}

	b := sharecount.New(target, s.lookupOpts...).Counts(r.Context(), networks)
	resp := countsResponse{
		URL:     b.URL,
		Results: make([]networkResult, 0, len(b.Results)),
		Total:   b.Total,
	}
	for _, res := range b.Results {
		nr := networkResult{Network: string(res.Network), Count: res.Count}
		if res.Err != nil {
			nr.Error = res.Err.Error()
		}
		resp.Results = append(resp.Results, nr)
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
