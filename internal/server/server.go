package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/analysis"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/docstore"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/ingest"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/llm"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/logging"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/project"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/store"
)

const (
	msgNotFound        = "Project not found"
	msgAnalyzeArgs     = "projectCode and query are required"
	msgCodeRequired    = "projectCode is required"
	msgDocumentArgs    = "projectId and documents are required"
	msgUnavailable     = "Relational store unavailable"
	msgNoDocumentStore = "Document store not available"
	msgAnalyzeFailed   = "Failed to analyze project"
	msgInternal        = "Internal server error"
	msgFetchFailed     = "Failed to fetch document URLs"
	msgAddFailed       = "Failed to add documents"
	msgInvalidBody     = "Invalid JSON body"
	msgCancelled       = "Request cancelled"
	msgTimedOut        = "Request timed out"
)

const (
	maxRequestBodyBytes    = 10 << 20
	statusClientClosed     = 499
	healthCheckTimeout     = 3 * time.Second
	defaultDocumentType    = "pdd"
	defaultDocumentVersion = "1.0"
)

// Deps are the handles the server routes to. Store and Service are
// required; the rest may be nil.
type Deps struct {
	Service    *analysis.Service
	Store      store.RelationalStore
	Documents  docstore.Store
	Generation llm.Provider
	Fetcher    *ingest.Fetcher
}

// Server is the JSON API in front of the analysis service.
type Server struct {
	deps Deps
	mux  *http.ServeMux
}

// New creates a new Server.
func New(deps Deps) *Server {
	if deps.Documents == nil {
		deps.Documents = docstore.Noop{}
	}
	if deps.Generation == nil {
		deps.Generation = llm.Unconfigured{}
	}
	if deps.Fetcher == nil {
		deps.Fetcher = ingest.NewFetcher(0)
	}
	s := &Server{deps: deps, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return logRequests(cors(s.mux))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/projects", s.handleListProjects)
	s.mux.HandleFunc("GET /api/projects/{code}/exists", s.handleExists)
	s.mux.HandleFunc("GET /api/projects/{code}", s.handleProject)
	s.mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	s.mux.HandleFunc("POST /api/documents", s.handleAddDocuments)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.deps.Service.ListProjects(r.Context())
	if err != nil {
		writeError(w, r, err, msgCodeRequired, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleExists(w http.ResponseWriter, r *http.Request) {
	ok, err := s.deps.Service.Exists(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, r, err, msgCodeRequired, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": ok})
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	details, err := s.deps.Service.Details(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, r, err, msgCodeRequired, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

type analyzeRequest struct {
	ProjectCode string `json:"projectCode"`
	ProjectID   string `json:"projectId"`
	Query       string `json:"query"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	code := req.ProjectCode
	if strings.TrimSpace(code) == "" {
		code = req.ProjectID
	}
	if strings.TrimSpace(code) == "" || strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody(msgAnalyzeArgs))
		return
	}

	resp, err := s.deps.Service.Analyze(r.Context(), code, req.Query)
	if err != nil {
		writeError(w, r, err, msgAnalyzeArgs, msgAnalyzeFailed)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type documentsRequest struct {
	ProjectID   string   `json:"projectId"`
	ProjectCode string   `json:"projectCode"`
	Documents   []string `json:"documents"`
	URLs        []string `json:"urls"`
	Type        string   `json:"type"`
	Version     string   `json:"version"`
}

type documentsResponse struct {
	Message string   `json:"message"`
	IDs     []string `json:"ids"`
}

// handleAddDocuments stores inline texts and the readable text of any urls.
// URLs are fetched server-side without a host allowlist; see onlyURLs.
func (s *Server) handleAddDocuments(w http.ResponseWriter, r *http.Request) {
	if docstore.IsNoop(s.deps.Documents) {
		writeJSON(w, http.StatusServiceUnavailable, errorBody(msgNoDocumentStore))
		return
	}

	var req documentsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	code := strings.TrimSpace(req.ProjectID)
	if code == "" {
		code = strings.TrimSpace(req.ProjectCode)
	}
	if code == "" || (len(req.Documents) == 0 && len(req.URLs) == 0) {
		writeJSON(w, http.StatusBadRequest, errorBody(msgDocumentArgs))
		return
	}

	source := project.DocumentSource{Type: req.Type, Version: req.Version}
	if source.Type == "" {
		source.Type = defaultDocumentType
	}
	if source.Version == "" {
		source.Version = defaultDocumentVersion
	}

	docs := make([]project.Document, 0, len(req.Documents))
	for _, text := range req.Documents {
		if text = strings.TrimSpace(text); text != "" {
			docs = append(docs, project.Document{ProjectCode: code, Text: text, Source: source})
		}
	}
	if len(req.URLs) > 0 {
		fetched, err := s.deps.Fetcher.Documents(r.Context(), code, source, onlyURLs(req.URLs))
		if err != nil {
			logging.Log.WithError(err).WithField("project_code", code).Warn("document fetch failed")
			writeJSON(w, http.StatusBadGateway, errorBody(msgFetchFailed))
			return
		}
		docs = append(docs, fetched...)
	}
	if len(docs) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody(msgDocumentArgs))
		return
	}

	ids, err := s.deps.Documents.Add(r.Context(), docs)
	if err != nil {
		logging.Log.WithError(err).WithField("project_code", code).Error("adding documents failed")
		writeJSON(w, http.StatusInternalServerError, errorBody(msgAddFailed))
		return
	}
	writeJSON(w, http.StatusOK, documentsResponse{Message: "Documents added successfully", IDs: ids})
}

// onlyURLs drops anything that is not an http(s) URL so request bodies
// cannot name local files. Hosts are not restricted: any caller can make the
// server fetch internal addresses, which is why server.addr binds to
// 127.0.0.1 by default. Put the API behind an authenticating proxy before
// exposing it.
func onlyURLs(sources []string) []string {
	var out []string
	for _, s := range sources {
		if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
			out = append(out, s)
		}
	}
	return out
}

type healthResponse struct {
	Status     string `json:"status"`
	Relational string `json:"relational"`
	Retrieval  string `json:"retrieval"`
	Generation string `json:"generation"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	h := healthResponse{Status: "ok", Relational: "ok", Retrieval: "ok", Generation: "ok"}
	if err := s.deps.Store.Ping(ctx); err != nil {
		h.Relational = "unavailable"
	}
	switch {
	case docstore.IsNoop(s.deps.Documents):
		h.Retrieval = "disabled"
	case s.deps.Documents.Ping(ctx) != nil:
		h.Retrieval = "unavailable"
	}
	if _, ok := s.deps.Generation.(llm.Unconfigured); ok {
		h.Generation = "disabled"
	} else if !s.deps.Generation.IsConfigured() {
		h.Generation = "unavailable"
	}

	status := http.StatusOK
	switch {
	case h.Relational != "ok":
		h.Status = "unavailable"
		status = http.StatusServiceUnavailable
	case h.Retrieval == "unavailable" || h.Generation == "unavailable":
		h.Status = "degraded"
	}
	writeJSON(w, status, h)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(msgInvalidBody))
		return false
	}
	return true
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// writeError maps service errors to status codes. badRequestMsg and
// internalMsg are the messages for invalid input and uncategorized failures.
func writeError(w http.ResponseWriter, r *http.Request, err error, badRequestMsg, internalMsg string) {
	status, msg := http.StatusInternalServerError, internalMsg
	switch {
	case errors.Is(err, project.ErrInvalidArgument):
		status, msg = http.StatusBadRequest, badRequestMsg
	case errors.Is(err, project.ErrNotFound):
		status, msg = http.StatusNotFound, msgNotFound
	case errors.Is(err, project.ErrUpstreamUnavailable):
		status, msg = http.StatusServiceUnavailable, msgUnavailable
	case errors.Is(err, context.Canceled):
		status, msg = statusClientClosed, msgCancelled
	case errors.Is(err, context.DeadlineExceeded):
		status, msg = http.StatusGatewayTimeout, msgTimedOut
	}

	entry := logging.Log.WithError(err).WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
	})
	switch {
	case status == http.StatusGatewayTimeout:
		entry.Warn("request timed out")
	case status >= 500:
		entry.Error("request failed")
	case status == statusClientClosed:
		entry.Debug("request cancelled by client")
	default:
		entry.Debug("request rejected")
	}
	writeJSON(w, status, errorBody(msg))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Log.WithError(err).Warn("writing response")
	}
}

// Serve runs the server on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, srv *Server) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Log.Infof("Server listening on http://%s", addr)
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logging.Log.Info("Shutting down server")
		return hs.Shutdown(shutdownCtx)
	}
}
