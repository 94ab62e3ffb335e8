package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/pagehunter/internal/database"
	"github.com/nao1215/pagehunter/internal/search"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// DefaultResultLimit is the number of results shown when the request does
// not ask for a limit.
const DefaultResultLimit = 50

// MaxResultLimit caps the limit parameter of the JSON endpoint.
const MaxResultLimit = 1000

// shutdownTimeout bounds how long in-flight requests may take after the
// server context is cancelled.
const shutdownTimeout = 10 * time.Second

// Searcher finds pages containing every term.
type Searcher interface {
	Search(ctx context.Context, terms []string, limit int) ([]database.SearchResult, error)
}

// Server is the search front end.
type Server struct {
	searcher Searcher
	logger   *slog.Logger
	limit    int
	mux      *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for request errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithResultLimit sets the default number of results per query.
func WithResultLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.limit = min(n, MaxResultLimit)
		}
	}
}

// NewServer wires handlers onto an HTTP mux.
func NewServer(searcher Searcher, opts ...Option) *Server {
	s := &Server{
		searcher: searcher,
		logger:   slog.Default(),
		limit:    DefaultResultLimit,
		mux:      http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP satisfies the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /q", s.handleResults)
	s.mux.HandleFunc("GET /api/search", s.handleAPISearch)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	// ctx is already done, so shutdown needs its own deadline.
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type resultsPage struct {
	Query   string
	Results []database.SearchResult
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, "index.html", nil)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("search"))
	if query == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	results, err := s.searcher.Search(r.Context(), search.Terms(query), s.limit)
	if err != nil {
		s.logger.Error("search failed", "query", query, "error", err)
		http.Error(w, "search failed", http.StatusInternalServerError)
		return
	}
	s.render(w, "results.html", resultsPage{Query: query, Results: results})
}

type apiResponse struct {
	Query   string                  `json:"query"`
	Terms   []string                `json:"terms"`
	Results []database.SearchResult `json:"results"`
}

func (s *Server) handleAPISearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}

	limit := s.limit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, MaxResultLimit)
	}

	terms := search.Terms(query)
	results, err := s.searcher.Search(r.Context(), terms, limit)
	if err != nil {
		s.logger.Error("search failed", "query", query, "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Query: query, Terms: terms, Results: results})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("failed to render page", "template", name, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
