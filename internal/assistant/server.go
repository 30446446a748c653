// Package assistant is the conversational HTTP surface: chat turns, saved
// grant listings, status updates, and document analysis, all backed by the
// workspace store and the text-generation service.
package assistant

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/joelkehle/grant-agency/internal/audit"
	"github.com/joelkehle/grant-agency/internal/docanalysis"
	"github.com/joelkehle/grant-agency/internal/grantsearch"
	"github.com/joelkehle/grant-agency/internal/llm"
	"github.com/joelkehle/grant-agency/internal/profile"
	"github.com/joelkehle/grant-agency/internal/workspace"
)

// ProfileStore is the slice of the workspace store the chat loop reads and
// writes profiles through.
type ProfileStore interface {
	FetchActiveProfile(ctx context.Context) (workspace.Profile, bool, error)
	UpdateProfileFields(ctx context.Context, id string, fields map[string]any) error
}

// GrantDirectory serves grant listings and status transitions.
type GrantDirectory interface {
	QueryGrants(ctx context.Context, status string, limit int) ([]workspace.StoredGrant, error)
	UpdateGrantStatus(ctx context.Context, id, status string) error
}

// Discoverer runs one grant discovery cycle.
type Discoverer interface {
	Run(ctx context.Context) (grantsearch.DiscoveryResult, error)
}

// DocAnalyzer turns uploaded documents into an analysis and a saved profile.
type DocAnalyzer interface {
	Analyze(ctx context.Context, docs []docanalysis.Document, userMessage string) (docanalysis.Result, error)
}

// Recorder is the audit trail. A nil Recorder disables auditing; every call
// site tolerates that.
type Recorder interface {
	RecordRun(ctx context.Context, res grantsearch.DiscoveryResult) error
	RecordChatTurn(ctx context.Context, conversationID, role, content, intent string, profileUpdated bool) error
	ListRuns(ctx context.Context, limit int) ([]audit.RunSummary, error)
	ReplayReport(ctx context.Context, runID string, now time.Time) (string, error)
}

type Server struct {
	caller     llm.Caller
	profiles   ProfileStore
	grants     GrantDirectory
	engine     *profile.Engine
	tiers      profile.TierTable
	discoverer Discoverer
	analyzer   DocAnalyzer
	recorder   Recorder
	sessions   *sessionStore
	markdown   goldmark.Markdown
	now        func() time.Time
}

type Config struct {
	Caller     llm.Caller
	Profiles   ProfileStore
	Grants     GrantDirectory
	Engine     *profile.Engine
	Tiers      profile.TierTable
	Discoverer Discoverer
	Analyzer   DocAnalyzer
	Recorder   Recorder
}

func NewServer(cfg Config) *Server {
	return &Server{
		caller:     cfg.Caller,
		profiles:   cfg.Profiles,
		grants:     cfg.Grants,
		engine:     cfg.Engine,
		tiers:      cfg.Tiers,
		discoverer: cfg.Discoverer,
		analyzer:   cfg.Analyzer,
		recorder:   cfg.Recorder,
		sessions:   newSessionStore(),
		markdown:   goldmark.New(goldmark.WithExtensions(extension.GFM)),
		now:        time.Now,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/grants", s.handleGrants)
	mux.HandleFunc("/grants/status", s.handleGrantStatus)
	mux.HandleFunc("/analyze", s.handleAnalyze)
	mux.HandleFunc("/runs", s.handleRuns)
	mux.HandleFunc("/runs/", s.handleRunReport)
	mux.HandleFunc("/healthz", s.handleHealthz)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "model": s.caller.ModelName()})
}

func (s *Server) handleGrants(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	status := r.URL.Query().Get("status")
	grants, err := s.grants.QueryGrants(r.Context(), status, 50)
	if err != nil {
		log.Printf("assistant: grant query failed err=%v", err)
		writeError(w, http.StatusBadGateway, "failed to query grant database")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"grants": grants, "total": len(grants)})
}

func (s *Server) handleGrantStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		GrantID string `json:"grantId"`
		Status  string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.GrantID == "" || !validStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "grantId and a valid status are required")
		return
	}
	if err := s.grants.UpdateGrantStatus(r.Context(), req.GrantID, req.Status); err != nil {
		log.Printf("assistant: status update failed grant=%s err=%v", req.GrantID, err)
		writeError(w, http.StatusBadGateway, "failed to update grant status")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "grantId": req.GrantID, "status": req.Status})
}

func validStatus(status string) bool {
	switch status {
	case grantsearch.StatusDiscovered, grantsearch.StatusInterested,
		grantsearch.StatusApplied, grantsearch.StatusAwarded, grantsearch.StatusRejected:
		return true
	}
	return false
}

// handleAnalyze accepts multipart uploads under "files" plus an optional
// "userMessage" field.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.analyzer == nil {
		writeError(w, http.StatusNotImplemented, "document analysis is not configured")
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	var docs []docanalysis.Document
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["files"] {
			f, err := header.Open()
			if err != nil {
				writeError(w, http.StatusBadRequest, "unreadable upload "+header.Filename)
				return
			}
			content, err := io.ReadAll(io.LimitReader(f, 10<<20))
			f.Close()
			if err != nil {
				writeError(w, http.StatusBadRequest, "unreadable upload "+header.Filename)
				return
			}
			docs = append(docs, docanalysis.Document{Name: header.Filename, Content: content})
		}
	}
	if len(docs) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	res, err := s.analyzer.Analyze(r.Context(), docs, r.FormValue("userMessage"))
	if err != nil {
		log.Printf("assistant: document analysis failed err=%v", err)
		writeError(w, http.StatusBadGateway, "document analysis failed")
		return
	}
	// A freshly saved profile invalidates per-session copies.
	if res.Profile != nil {
		s.sessions.reset()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"content":     res.Analysis,
		"html":        s.renderHTML(res.Analysis),
		"profileId":   res.ProfileID,
		"failedFiles": res.FailedFiles,
		"success":     true,
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.recorder == nil {
		writeError(w, http.StatusNotImplemented, "run history is not configured")
		return
	}
	runs, err := s.recorder.ListRuns(r.Context(), 20)
	if err != nil {
		log.Printf("assistant: run listing failed err=%v", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// handleRunReport serves GET /runs/{id}/report by replaying the stored
// envelope.
func (s *Server) handleRunReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.recorder == nil {
		writeError(w, http.StatusNotImplemented, "run history is not configured")
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/runs/")
	runID, ok := strings.CutSuffix(rest, "/report")
	if !ok || runID == "" {
		http.NotFound(w, r)
		return
	}
	report, err := s.recorder.ReplayReport(r.Context(), runID, s.now())
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"runId":   runID,
		"content": report,
		"html":    s.renderHTML(report),
	})
}

func (s *Server) renderHTML(markdown string) string {
	var out strings.Builder
	if err := s.markdown.Convert([]byte(markdown), &out); err != nil {
		log.Printf("assistant: markdown render failed err=%v", err)
		return ""
	}
	return out.String()
}
