// Package httpapi exposes the search service over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/poiesic/regsearch"
	"github.com/poiesic/regsearch/core"
)

// Searcher is the part of the service the API needs.
type Searcher interface {
	Search(ctx context.Context, term string, sources []string, tier core.Tier) (*core.SearchResponse, error)
	Stats() regsearch.Stats
}

// errorBody is the JSON shape of every non-200 answer.
type errorBody struct {
	Error      string  `json:"error"`
	Reason     string  `json:"reason,omitempty"`
	RetryAfter float64 `json:"retryAfterSeconds,omitempty"`
}

// NewRouter builds the API router: GET /search and GET /stats.
func NewRouter(svc Searcher, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	h := &handler{svc: svc, logger: logger}
	r.Get("/search", h.search)
	r.Get("/stats", h.stats)
	return r
}

type handler struct {
	svc    Searcher
	logger *slog.Logger
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	term := strings.TrimSpace(q.Get("q"))
	if term == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing query parameter q"})
		return
	}

	tier, err := core.ParseTier(q.Get("tier"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	var sources []string
	if raw := strings.TrimSpace(q.Get("sources")); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				sources = append(sources, name)
			}
		}
	}

	resp, err := h.svc.Search(r.Context(), term, sources, tier)
	if err != nil {
		h.writeSearchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) writeSearchError(w http.ResponseWriter, err error) {
	var rle *regsearch.RateLimitError
	switch {
	case errors.As(err, &rle):
		seconds := int(math.Ceil(rle.RetryAfter.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		writeJSON(w, http.StatusTooManyRequests, errorBody{
			Error:      "request rejected",
			Reason:     string(rle.Reason),
			RetryAfter: rle.RetryAfter.Seconds(),
		})

	case errors.Is(err, regsearch.ErrUnknownSource), errors.Is(err, core.ErrEmptyTerm):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})

	case errors.Is(err, regsearch.ErrAllSourcesFailed):
		writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error()})

	default:
		h.logger.Error("search failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Stats())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Server wraps the router in an http.Server with graceful shutdown.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// NewServer builds a server listening on addr.
func NewServer(addr string, svc Searcher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(svc, logger),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// ListenAndServe blocks serving requests until Shutdown or failure.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http api listening", "addr", s.srv.Addr)
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
