// Package api exposes the HTTP interface for the audit service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/excelltechsh/siteaudit/internal/audit"
	"github.com/excelltechsh/siteaudit/internal/config"
	"github.com/excelltechsh/siteaudit/internal/discovery"
	"github.com/excelltechsh/siteaudit/internal/dispatcher"
	"github.com/excelltechsh/siteaudit/internal/metrics"

	"go.uber.org/zap"
)

// Server wires HTTP handlers to the dispatcher and stores.
type Server struct {
	router     chi.Router
	scans      audit.ScanStore
	pages      audit.PageStore
	insights   audit.InsightStore
	discovery  *discovery.Service
	dispatcher *dispatcher.Dispatcher
	idGen      audit.IDGenerator
	clock      audit.Clock
	cfg        config.Config
	logger     *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	scans audit.ScanStore,
	pages audit.PageStore,
	insights audit.InsightStore,
	discoverySvc *discovery.Service,
	dispatcher *dispatcher.Dispatcher,
	idGen audit.IDGenerator,
	clock audit.Clock,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	s := &Server{
		scans:      scans,
		pages:      pages,
		insights:   insights,
		discovery:  discoverySvc,
		dispatcher: dispatcher,
		idGen:      idGen,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
	}
	r := chi.NewRouter()
	r.Use(corsMiddleware)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metricsMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/discover-pages", s.discoverPages)

		r.Group(func(r chi.Router) {
			r.Use(jwtMiddleware(cfg.Auth.JWTSecret))
			r.Post("/start-scan", s.startScan)
			r.Post("/analyze-content", s.analyzeContent)
			r.Post("/market-research", s.marketResearch)
			r.Get("/scans", s.listScans)
			r.Route("/scans/{scan_id}", func(r chi.Router) {
				r.Get("/", s.getScan)
				r.Get("/insights", s.getInsights)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type discoverRequest struct {
	URL string `json:"url"`
}

func (s *Server) discoverPages(w http.ResponseWriter, r *http.Request) {
	var req discoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusInternalServerError, "URL is required")
		return
	}
	pages, err := s.discovery.Discover(r.Context(), req.URL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"pages":   pages,
		"total":   len(pages),
	})
}

type startScanRequest struct {
	URL          string   `json:"url"`
	SelectedURLs []string `json:"selectedUrls"`
	IsSelective  bool     `json:"isSelective"`
}

func (s *Server) startScan(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not authenticated")
		return
	}
	var req startScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusInternalServerError, "URL is required")
		return
	}

	scanID, err := s.idGen.NewID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("generate scan id: %v", err))
		return
	}
	now := s.clock.Now()
	scan := audit.Scan{
		ID:           scanID,
		UserID:       userID,
		URL:          req.URL,
		Status:       audit.ScanStatusCrawling,
		IsSelective:  req.IsSelective,
		SelectedURLs: req.SelectedURLs,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// The scan row exists before any crawl network call is made; its status
	// field is the caller's only progress channel.
	if err := s.scans.CreateScan(r.Context(), scan); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.ObserveScan(string(audit.ScanStatusCrawling))
	s.logger.Info("created scan", zap.String("scan_id", scanID), zap.String("url", req.URL))

	task := audit.Task{
		Kind:         audit.TaskCrawl,
		ScanID:       scanID,
		URL:          req.URL,
		SelectedURLs: req.SelectedURLs,
		IsSelective:  req.IsSelective,
		Submitted:    now.Unix(),
	}
	if err := s.enqueue(r.Context(), task); err != nil {
		// No worker will ever pick this scan up, so it must not stay
		// parked in crawling.
		if uerr := s.scans.UpdateScanStatus(r.Context(), scanID, audit.ScanStatusFailed, err.Error()); uerr != nil {
			s.logger.Error("failed to mark scan failed after enqueue error",
				zap.String("scan_id", scanID), zap.Error(uerr))
		}
		metrics.ObserveScan(string(audit.ScanStatusFailed))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"scanId":  scanID,
		"message": "Scan started successfully",
	})
}

type scanIDRequest struct {
	ScanID string `json:"scanId"`
}

func (s *Server) analyzeContent(w http.ResponseWriter, r *http.Request) {
	s.enqueueEnrichment(w, r, audit.TaskAnalyze, "Content analysis started")
}

func (s *Server) marketResearch(w http.ResponseWriter, r *http.Request) {
	s.enqueueEnrichment(w, r, audit.TaskResearch, "Market research started")
}

func (s *Server) enqueueEnrichment(w http.ResponseWriter, r *http.Request, kind audit.TaskKind, message string) {
	if _, ok := userFromContext(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, "user not authenticated")
		return
	}
	var req scanIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.ScanID == "" {
		writeError(w, http.StatusInternalServerError, "Scan ID is required")
		return
	}
	task := audit.Task{
		Kind:      kind,
		ScanID:    req.ScanID,
		Submitted: s.clock.Now().Unix(),
	}
	if err := s.enqueue(r.Context(), task); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
	})
}

func (s *Server) getScan(w http.ResponseWriter, r *http.Request) {
	userID, _ := userFromContext(r.Context())
	scanID := chi.URLParam(r, "scan_id")
	scan, err := s.scans.GetScan(r.Context(), scanID)
	if err != nil || scan.UserID != userID {
		writeError(w, http.StatusNotFound, "scan not found")
		return
	}
	pages, err := s.pages.ListPagesByScan(r.Context(), scanID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch scan pages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"scan":    scan,
		"pages":   pages,
	})
}

func (s *Server) getInsights(w http.ResponseWriter, r *http.Request) {
	userID, _ := userFromContext(r.Context())
	scanID := chi.URLParam(r, "scan_id")
	scan, err := s.scans.GetScan(r.Context(), scanID)
	if err != nil || scan.UserID != userID {
		writeError(w, http.StatusNotFound, "scan not found")
		return
	}
	insights, err := s.insights.ListInsightsByScan(r.Context(), scanID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch insights")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"insights": insights,
	})
}

func (s *Server) listScans(w http.ResponseWriter, r *http.Request) {
	userID, _ := userFromContext(r.Context())
	scans, err := s.scans.ListScansByUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch scans")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"scans":   scans,
	})
}

func (s *Server) enqueue(ctx context.Context, task audit.Task) error {
	queueCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.dispatcher.Enqueue(queueCtx, task); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("task queue is full: %w", err)
		}
		return fmt.Errorf("enqueue task: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
