// Package httpapi exposes the analysis service over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/joelkehle/property-analysis/internal/jobs"
	"github.com/joelkehle/property-analysis/internal/report"
)

const maxBodyBytes = 64 << 10

// Error codes returned in the "code" field of error bodies.
const (
	CodeInvalidRequest = "invalid_request"
	CodeInvalidAddress = "invalid_address"
	CodeUnknownJob     = "unknown_job"
	CodeNotReady       = "not_ready"
	CodeUnavailable    = "unavailable"
	CodeInternal       = "internal"
)

// Analyzer is the part of jobs.Service the server needs.
type Analyzer interface {
	Submit(ctx context.Context, address string) (string, error)
	Poll(ctx context.Context, id string) (jobs.Job, error)
	Forget(ctx context.Context, id string) error
}

type Server struct {
	analyzer    Analyzer
	pdfRenderer report.PDFRenderer
	log         logrus.FieldLogger
}

// SubmitRequest is the body of POST /v1/analyses. City, state and zip code
// are appended to the address when present.
type SubmitRequest struct {
	Address string `json:"address"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zip_code,omitempty"`
}

// FullAddress joins the request fields into the single address line sent to
// the analyzer.
func (r SubmitRequest) FullAddress() string {
	var parts []string
	for _, p := range []string{r.Address, r.City} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	region := strings.TrimSpace(strings.TrimSpace(r.State) + " " + strings.TrimSpace(r.ZipCode))
	if region != "" {
		parts = append(parts, region)
	}
	return strings.Join(parts, ", ")
}

// NewServer returns the API handler. pdfRenderer may be nil, in which case
// PDF export answers 503.
func NewServer(analyzer Analyzer, pdfRenderer report.PDFRenderer, log logrus.FieldLogger) http.Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{analyzer: analyzer, pdfRenderer: pdfRenderer, log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/analyses", s.handleAnalyses)
	mux.HandleFunc("/v1/analyses/", s.handleAnalysis)
	mux.HandleFunc("/v1/health", s.handleHealth)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]any{"error": msg, "code": code})
}

// writeJobError maps service errors onto HTTP statuses.
func (s *Server) writeJobError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, jobs.ErrInvalidAddress):
		writeError(w, http.StatusBadRequest, CodeInvalidAddress, err.Error())
	case errors.Is(err, jobs.ErrUnknownJob):
		writeError(w, http.StatusNotFound, CodeUnknownJob, err.Error())
	default:
		s.log.WithError(err).Error("analysis request failed")
		writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
	}
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleAnalyses(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	blob, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "invalid request body")
		return
	}
	var req SubmitRequest
	if err := json.Unmarshal(blob, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "request body must be a JSON object")
		return
	}
	id, err := s.analyzer.Submit(r.Context(), req.FullAddress())
	if err != nil {
		s.writeJobError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"job_id": id})
}

// handleAnalysis serves /v1/analyses/{id}, /v1/analyses/{id}/report and
// /v1/analyses/{id}/report.pdf.
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/analyses/"), "/")
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	if id == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "path must be /v1/analyses/{id}")
		return
	}
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.handlePoll(w, r, id)
		case http.MethodDelete:
			s.handleForget(w, r, id)
		default:
			w.Header().Set("Allow", "GET, DELETE")
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}
	switch parts[1] {
	case "report":
		s.handleReport(w, r, id)
	case "report.pdf":
		s.handleReportPDF(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request, id string) {
	job, err := s.analyzer.Poll(r.Context(), id)
	if err != nil {
		s.writeJobError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleForget(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.analyzer.Forget(r.Context(), id); err != nil {
		s.writeJobError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// completedJob loads a job that has a result, writing the error response
// itself when there is none.
func (s *Server) completedJob(w http.ResponseWriter, r *http.Request, id string) (jobs.Job, bool) {
	job, err := s.analyzer.Poll(r.Context(), id)
	if err != nil {
		s.writeJobError(w, err)
		return jobs.Job{}, false
	}
	switch {
	case job.Status == jobs.StatusFailed:
		writeError(w, http.StatusConflict, CodeNotReady, "analysis failed: "+job.Error)
		return jobs.Job{}, false
	case job.Status != jobs.StatusCompleted || job.Result == nil:
		writeError(w, http.StatusConflict, CodeNotReady, "report not ready")
		return jobs.Job{}, false
	}
	return job, true
}

func reportMeta(job jobs.Job) report.Meta {
	meta := report.Meta{JobID: job.ID, Outcome: job.Outcome}
	if job.CompletedAt != nil {
		meta.CompletedAt = *job.CompletedAt
	}
	return meta
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request, id string) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	job, ok := s.completedJob(w, r, id)
	if !ok {
		return
	}
	switch format := r.URL.Query().Get("format"); format {
	case "", "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, report.Markdown(*job.Result))
	case "html":
		doc, err := report.HTML(*job.Result, reportMeta(job))
		if err != nil {
			s.log.WithError(err).WithField("job_id", id).Error("render report html")
			writeError(w, http.StatusInternalServerError, CodeInternal, "failed to render report")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, doc)
	default:
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, fmt.Sprintf("unsupported format %q", format))
	}
}

func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request, id string) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	if s.pdfRenderer == nil {
		writeError(w, http.StatusServiceUnavailable, CodeUnavailable, "pdf renderer unavailable")
		return
	}
	job, ok := s.completedJob(w, r, id)
	if !ok {
		return
	}
	pdf, err := s.pdfRenderer.Render(r.Context(), *job.Result, reportMeta(job))
	if err != nil {
		s.log.WithError(err).WithField("job_id", id).Error("render report pdf")
		writeError(w, http.StatusInternalServerError, CodeInternal, "failed to render pdf")
		return
	}
	filename := fmt.Sprintf("property-analysis-%s.pdf", sanitizeFilename(id))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func sanitizeFilename(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "report"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, v)
}
