// Package api exposes stored collections and collection triggers over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"BrokenPromises/internal/domain"
	"BrokenPromises/internal/ports"
)

const defaultArticleLimit = 20

// SearchFunc schedules a collection for scope that notifies recipient when
// done and returns the job id.
type SearchFunc func(recipient string, scope domain.Scope) (string, error)

// Dependencies wires the handler to the application.
type Dependencies struct {
	Store  ports.Store
	Jobs   ports.JobRunner
	Search SearchFunc
	Logger *slog.Logger
}

type server struct {
	store  ports.Store
	jobs   ports.JobRunner
	search SearchFunc
	logger *slog.Logger
}

// NewHandler builds the chi router serving the API.
func NewHandler(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &server{store: deps.Store, jobs: deps.Jobs, search: deps.Search, logger: logger}

	r := chi.NewRouter()
	r.Use(cors)
	r.Use(s.logRequests)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	scoped(r.Get, "/last_scrape", true, s.lastScrape)
	scoped(r.Get, "/count", true, s.count)
	scoped(r.Post, "/search_date/{recipient}", true, s.searchDate)
	scoped(r.Get, "/articles", false, s.articles)
	scoped(r.Get, "/reports", false, s.reports)
	r.Get("/jobs/{id}", s.job)
	r.Options("/*", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}

// scoped registers h under prefix followed by one to three date segments,
// and under the bare prefix when the scope is optional.
func scoped(method func(string, http.HandlerFunc), prefix string, required bool, h http.HandlerFunc) {
	if !required {
		method(prefix, h)
	}
	method(prefix+"/{year}", h)
	method(prefix+"/{year}/{month}", h)
	method(prefix+"/{year}/{month}/{day}", h)
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// scopeParam reads the optional date segments. ok is false when the route
// carried no year.
func scopeParam(r *http.Request) (domain.Scope, bool, error) {
	year := chi.URLParam(r, "year")
	if year == "" {
		return domain.Scope{}, false, nil
	}
	scope, err := domain.ParseScope(year, chi.URLParam(r, "month"), chi.URLParam(r, "day"))
	if err != nil {
		return domain.Scope{}, false, err
	}
	return scope, true, nil
}

// searchedDate renders a scope as [year, month|null, day|null].
func searchedDate(scope domain.Scope) []any {
	out := []any{scope.Year, nil, nil}
	if scope.Month != 0 {
		out[1] = scope.Month
	}
	if scope.Day != 0 {
		out[2] = scope.Day
	}
	return out
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New(key + " must be a non-negative integer")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, code, map[string]string{"status": "error", "error": err.Error()})
}

type classified interface {
	ErrorKind() string
}

func statusFor(err error) int {
	var c classified
	if errors.As(err, &c) {
		switch c.ErrorKind() {
		case domain.KindFetch, domain.KindExtraction:
			return http.StatusBadGateway
		case domain.KindCacheLookup, domain.KindPersistence:
			return http.StatusServiceUnavailable
		}
	}
	return http.StatusInternalServerError
}

func badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "error": err.Error()})
}
