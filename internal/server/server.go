// Package server exposes the analysis service and the stored history over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/cx-miguel-neiva/crypto-analysis/internal/analysis"
	"github.com/cx-miguel-neiva/crypto-analysis/internal/db"
	"github.com/cx-miguel-neiva/crypto-analysis/internal/export"
	"github.com/cx-miguel-neiva/crypto-analysis/internal/findings"
	"github.com/cx-miguel-neiva/crypto-analysis/internal/model"
)

// AnalysisIDHeader carries the stored ID of a synchronous analysis.
const AnalysisIDHeader = "X-Analysis-ID"

// MaxRequestBytes bounds the size of an analysis request body.
const MaxRequestBytes = 1 << 20

type Options struct {
	AllowedOrigins []string
	// RateLimit is the number of analyze requests allowed per second, 0 disables limiting.
	RateLimit float64
	RateBurst int
}

type Server struct {
	svc  *analysis.Service
	conn *db.Connection
	now  func() time.Time
}

// NewRouter builds the API router.
func NewRouter(svc *analysis.Service, conn *db.Connection, opts Options) http.Handler {
	s := &Server{svc: svc, conn: conn, now: time.Now}
	return s.routes(opts)
}

func (s *Server) routes(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{AnalysisIDHeader, "Content-Disposition"},
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.health)

	r.Group(func(r chi.Router) {
		r.Use(rateLimit(opts.RateLimit, opts.RateBurst))
		r.Use(middleware.RequestSize(MaxRequestBytes))
		r.Post("/api/analyze", s.analyze)
		r.Post("/api/analyze/async", s.analyzeAsync)
	})

	r.Get("/api/analyses", s.listAnalyses)
	r.Get("/api/repositories", s.repositories)
	r.Route("/api/analysis/{id}", func(r chi.Router) {
		r.Get("/", s.result)
		r.Get("/status", s.status)
		r.Get("/findings", s.findings)
		r.Get("/export/{kind}", s.export)
	})
	r.Get("/api/stats/algorithms", s.algorithmStats)

	return r
}

func rateLimit(perSecond float64, burst int) func(http.Handler) http.Handler {
	if perSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, "Too many analysis requests, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service and store errors to responses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, analysis.ErrAnalysisInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "Analysis not found")
	case errors.Is(err, db.ErrNotCompleted):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, analysis.ErrAnalysisFailed):
		writeError(w, http.StatusInternalServerError, analysis.FailureMessage)
	default:
		log.Error().Err(err).Msg("Request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status, ok := s.svc.Healthy()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// decodeConfig reads an AnalysisConfig body. Omitted fields keep their defaults.
func decodeConfig(r *http.Request) (model.AnalysisConfig, error) {
	cfg := model.DefaultConfig()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("invalid request body: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	cfg, err := decodeConfig(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, result, err := s.svc.Analyze(r.Context(), cfg)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set(AnalysisIDHeader, id)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) analyzeAsync(w http.ResponseWriter, r *http.Request) {
	cfg, err := decodeConfig(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.svc.Start(cfg)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"analysisId": id})
}

func (s *Server) listAnalyses(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	records, err := s.conn.ListAnalyses(r.URL.Query().Get("repository"), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) repositories(w http.ResponseWriter, r *http.Request) {
	repos, err := s.conn.GetDistinctRepositories()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if repos == nil {
		repos = []string{}
	}
	writeJSON(w, http.StatusOK, repos)
}

func (s *Server) result(w http.ResponseWriter, r *http.Request) {
	result, err := s.conn.GetAnalysisResult(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc.Status(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// FindingsResponse is the body of the findings endpoint. Counts and
// algorithms describe every finding of the analysis, not only the matches.
type FindingsResponse struct {
	Findings       []model.Finding         `json:"findings"`
	Matched        int                     `json:"matched"`
	Total          int                     `json:"total"`
	SeverityCounts findings.SeverityCounts `json:"severityCounts"`
	Algorithms     []string                `json:"algorithms"`
}

func (s *Server) findings(w http.ResponseWriter, r *http.Request) {
	query, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.conn.GetAnalysisResult(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	matched := findings.Filter(result.Findings, query)
	counts := findings.CountBySeverity(result.Findings)
	writeJSON(w, http.StatusOK, FindingsResponse{
		Findings:       matched,
		Matched:        len(matched),
		Total:          counts.Total(),
		SeverityCounts: counts,
		Algorithms:     findings.UniqueAlgorithms(result.Findings),
	})
}

func parseQuery(r *http.Request) (findings.Query, error) {
	params := r.URL.Query()
	q := findings.Query{
		Search:    params.Get("search"),
		Severity:  params.Get("severity"),
		Algorithm: params.Get("algorithm"),
	}
	if q.Severity != "" && q.Severity != findings.All {
		if _, err := model.ParseSeverity(q.Severity); err != nil {
			return q, err
		}
	}
	if raw := params.Get("minConfidence"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, fmt.Errorf("invalid minConfidence %q", raw)
		}
		q.MinConfidence = n
	}
	return q, nil
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	kind, err := export.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.conn.GetAnalysisResult(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	now := s.now()
	doc, err := export.Render(result, kind, now)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Body); err != nil {
		log.Error().Err(err).Str("export", doc.Name).Msg("Failed to write export")
	}
}

func (s *Server) algorithmStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.conn.GetAlgorithmCounts(r.URL.Query().Get("repository"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}
