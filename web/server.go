// Package web exposes the enrichment service over HTTP: a notify endpoint
// for stored content items that changed upstream, a synchronous enhance
// endpoint for ad-hoc text, and status/metrics endpoints.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/textgraph/enricher/model"
)

// Service is the enrichment surface the server delegates to.
type Service interface {
	// EnhanceText runs the chain on an ephemeral content item built from
	// the given text and returns the collected annotations.
	EnhanceText(ctx context.Context, text, mimeType, language string) ([]model.Annotation, error)
	// Reprocess re-runs the chain on the stored content items with the
	// given rids and replaces their stored annotations.
	Reprocess(ctx context.Context, rids []uuid.UUID) error
	// Engines lists the names of the configured engines in chain order.
	Engines() []string
}

// Server provides the HTTP API over a Service.
type Server struct {
	addr   string
	token  string
	svc    Service
	log    *slog.Logger
	server *http.Server
}

// NewServer creates a server listening on addr. An empty token disables
// authentication.
func NewServer(addr, token string, svc Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		addr:  addr,
		token: token,
		svc:   svc,
		log:   logger,
	}
}

// Handler builds the route table. Exposed so tests can drive the server
// through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/notify", s.handleNotify)
	mux.HandleFunc("/api/enhance", s.handleEnhance)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Start begins listening for HTTP requests. It blocks until the server
// stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info("http server starting", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// validateToken checks the bearer token. No token configured means open
// access.
func (s *Server) validateToken(r *http.Request) bool {
	if s.token == "" {
		return true
	}
	return r.Header.Get("Authorization") == "Bearer "+s.token
}

// handleNotify accepts a form-encoded list of changed content item rids
// and re-runs the enhancement chain on each stored item.
func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.validateToken(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, fmt.Sprintf("Invalid form: %v", err), http.StatusBadRequest)
		return
	}

	rids, err := parseChangedObjects(r.PostForm.Get("changedObjects"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(rids) == 0 {
		http.Error(w, "changedObjects is required", http.StatusBadRequest)
		return
	}

	if err := s.svc.Reprocess(r.Context(), rids); err != nil {
		s.log.Error("reprocessing failed", "items", len(rids), "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.log.Info("reprocessed content items", "items", len(rids))
	w.WriteHeader(http.StatusOK)
}

// parseChangedObjects splits a comma or whitespace separated rid list.
func parseChangedObjects(raw string) ([]uuid.UUID, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	rids := make([]uuid.UUID, 0, len(fields))
	for _, f := range fields {
		rid, err := uuid.Parse(f)
		if err != nil {
			return nil, fmt.Errorf("invalid content item id %q: %v", f, err)
		}
		rids = append(rids, rid)
	}
	return rids, nil
}

// handleEnhance runs the chain on posted text and returns the resulting
// annotations as JSON.
func (s *Server) handleEnhance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.validateToken(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Text     string `json:"text"`
		MimeType string `json:"mime_type"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	if req.MimeType == "" {
		req.MimeType = "text/plain"
	}

	annotations, err := s.svc.EnhanceText(r.Context(), req.Text, req.MimeType, req.Language)
	if err != nil {
		s.log.Error("enhancement failed", "error", err)
		response := map[string]any{
			"success": false,
			"error":   err.Error(),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(response)
		return
	}

	response := map[string]any{
		"success":     true,
		"annotations": annotations,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleStatus returns liveness and the configured engine list.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status":    "ok",
		"engines":   s.svc.Engines(),
		"timestamp": time.Now().Unix(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
