// Package api exposes the HTTP interface for the scraper service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/junhyukpark/naver-blog-scraper/internal/config"
	"github.com/junhyukpark/naver-blog-scraper/internal/coordinator"
	"github.com/junhyukpark/naver-blog-scraper/internal/export"
	"github.com/junhyukpark/naver-blog-scraper/internal/metrics"
	"github.com/junhyukpark/naver-blog-scraper/internal/scraper"
)

// Server wires HTTP handlers to the coordinator.
type Server struct {
	router chi.Router
	coord  *coordinator.Coordinator
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(coord *coordinator.Coordinator, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		coord:  coord,
		cfg:    cfg,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Post("/extract", s.extractOne)
		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", s.submitJob)
			r.Route("/{job_id}", func(r chi.Router) {
				r.Get("/status", s.getJobStatus)
				r.Get("/result", s.getJobResult)
				r.Delete("/", s.deleteJob)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ready"})
}

type jobRequest struct {
	URLs           []string `json:"urls"`
	DownloadImages *bool    `json:"download_images"`
	OutputFormat   string   `json:"output_format"`
	MaxConcurrent  int      `json:"max_concurrent"`
	Headless       *bool    `json:"headless"`
}

type extractRequest struct {
	URL            string `json:"url"`
	DownloadImages *bool  `json:"download_images"`
}

func (s *Server) submitJob(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.OutputFormat != "" {
		if _, err := export.Render(req.OutputFormat, nil); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	params := scraper.JobParameters{
		URLs:           req.URLs,
		DownloadImages: boolOrDefault(req.DownloadImages, s.cfg.Images.Enabled),
		OutputFormat:   req.OutputFormat,
		MaxConcurrent:  req.MaxConcurrent,
		Headless:       boolOrDefault(req.Headless, s.cfg.Browser.Headless),
	}
	jobID, err := s.coord.Submit(r.Context(), params)
	if err != nil {
		if scraper.KindOf(err) == scraper.KindJobSubmission {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(s.logger, w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (s *Server) extractOne(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		s.writeError(w, http.StatusBadRequest, "url required")
		return
	}
	post, err := s.coord.ExtractOne(r.Context(), req.URL, boolOrDefault(req.DownloadImages, s.cfg.Images.Enabled))
	if err != nil {
		switch scraper.KindOf(err) {
		case scraper.KindInvalidURL, scraper.KindUnparsableReference:
			s.writeError(w, http.StatusBadRequest, err.Error())
		case scraper.KindNavigationTimeout:
			s.writeError(w, http.StatusGatewayTimeout, err.Error())
		case scraper.KindUnexpectedStructure:
			s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(s.logger, w, http.StatusOK, post)
}

type jobStatusResponse struct {
	JobID    string                        `json:"job_id"`
	Status   scraper.JobStatus             `json:"status"`
	Progress float64                       `json:"progress"`
	Counters scraper.JobCounters           `json:"counters"`
	Outcomes map[string]scraper.URLOutcome `json:"outcomes"`
	Error    string                        `json:"error,omitempty"`
}

func (s *Server) getJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.coord.Status(r.Context(), jobID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	// Status is a progress view: outcomes are trimmed to their reasons so the
	// payload stays small until the caller asks for the result.
	outcomes := make(map[string]scraper.URLOutcome, len(job.Outcomes))
	for url, outcome := range job.Outcomes {
		outcome.Post = nil
		outcomes[url] = outcome
	}
	writeJSON(s.logger, w, http.StatusOK, jobStatusResponse{
		JobID:    job.ID,
		Status:   job.Status,
		Progress: job.Progress(),
		Counters: job.Counters,
		Outcomes: outcomes,
		Error:    job.ErrorText,
	})
}

func (s *Server) getJobResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, posts, err := s.coord.Result(r.Context(), jobID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if !job.Terminal() {
		s.writeError(w, http.StatusConflict, "job is still running")
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = job.Parameters.OutputFormat
	}
	body, err := export.Render(format, posts)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", export.ContentType(format))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		s.logger.Error("write result failed", zap.Error(err))
	}
}

func (s *Server) deleteJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if err := s.coord.Delete(r.Context(), jobID); err != nil {
		if errors.Is(err, scraper.ErrJobNotFound) {
			s.writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"job_id": jobID, "status": "deleted"})
}

func boolOrDefault(ptr *bool, def bool) bool {
	if ptr == nil {
		return def
	}
	return *ptr
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeJSON(logger, w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeJSON(zap.NewNop(), w, http.StatusForbidden, map[string]string{"error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(s.logger, w, status, map[string]string{"error": msg})
}
