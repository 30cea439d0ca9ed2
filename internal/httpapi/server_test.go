package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/joelkehle/property-analysis/internal/analysis"
	"github.com/joelkehle/property-analysis/internal/jobs"
	"github.com/joelkehle/property-analysis/internal/report"
)

type fakeAnalyzer struct {
	mu        sync.Mutex
	jobs      map[string]jobs.Job
	submitted []string
	pollErr   error
}

func newFakeAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{jobs: map[string]jobs.Job{}}
}

func (f *fakeAnalyzer) Submit(_ context.Context, address string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if strings.TrimSpace(address) == "" {
		return "", jobs.ErrInvalidAddress
	}
	f.submitted = append(f.submitted, address)
	id := fmt.Sprintf("job-%d", len(f.submitted))
	f.jobs[id] = jobs.Job{ID: id, Address: address, Status: jobs.StatusPending, CurrentStep: "Queued"}
	return id, nil
}

func (f *fakeAnalyzer) Poll(_ context.Context, id string) (jobs.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pollErr != nil {
		return jobs.Job{}, f.pollErr
	}
	job, ok := f.jobs[id]
	if !ok {
		return jobs.Job{}, fmt.Errorf("%w: %s", jobs.ErrUnknownJob, id)
	}
	return job, nil
}

func (f *fakeAnalyzer) Forget(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[id]; !ok {
		return fmt.Errorf("%w: %s", jobs.ErrUnknownJob, id)
	}
	delete(f.jobs, id)
	return nil
}

func (f *fakeAnalyzer) put(job jobs.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.ID] = job
}

type fakePDF struct {
	meta report.Meta
	err  error
}

func (p *fakePDF) Render(_ context.Context, _ analysis.PropertyAnalysis, meta report.Meta) ([]byte, error) {
	p.meta = meta
	if p.err != nil {
		return nil, p.err
	}
	return []byte("%PDF-1.4 fake"), nil
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func completedJob(id string) jobs.Job {
	result := analysis.Fallback("1200 Maple Ave, Yankton, SD")
	done := time.Date(2024, 5, 1, 15, 4, 0, 0, time.UTC)
	return jobs.Job{
		ID:          id,
		Address:     result.PropertyOverview.Address,
		Status:      jobs.StatusCompleted,
		Progress:    100,
		CurrentStep: "Analysis complete",
		Result:      &result,
		Outcome:     analysis.OutcomeDeclined,
		CompletedAt: &done,
	}
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(v)
	default:
		blob, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(blob)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	h := NewServer(newFakeAnalyzer(), nil, quietLogger())
	rr := do(t, h, http.MethodGet, "/v1/health", nil)
	if rr.Code != http.StatusOK || decodeBody(t, rr)["ok"] != true {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr := do(t, h, http.MethodPost, "/v1/health", nil); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestSubmitAccepted(t *testing.T) {
	fa := newFakeAnalyzer()
	h := NewServer(fa, nil, quietLogger())
	rr := do(t, h, http.MethodPost, "/v1/analyses", map[string]any{"address": "  1200 Maple Ave, Yankton, SD 57078 "})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if decodeBody(t, rr)["job_id"] != "job-1" {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
	if len(fa.submitted) != 1 || fa.submitted[0] != "1200 Maple Ave, Yankton, SD 57078" {
		t.Fatalf("unexpected submission: %#v", fa.submitted)
	}
}

func TestSubmitComposesAddressParts(t *testing.T) {
	fa := newFakeAnalyzer()
	h := NewServer(fa, nil, quietLogger())
	rr := do(t, h, http.MethodPost, "/v1/analyses", SubmitRequest{Address: "1200 Maple Ave", City: "Yankton", State: "SD", ZipCode: "57078"})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got := fa.submitted[0]; got != "1200 Maple Ave, Yankton, SD 57078" {
		t.Fatalf("address=%q", got)
	}
}

func TestSubmitRejectsBadInput(t *testing.T) {
	for _, tc := range []struct {
		name string
		body any
		code string
	}{
		{name: "empty address", body: map[string]any{"address": "   "}, code: CodeInvalidAddress},
		{name: "missing address", body: map[string]any{}, code: CodeInvalidAddress},
		{name: "not json", body: "address=here", code: CodeInvalidRequest},
		{name: "wrong type", body: map[string]any{"address": 12}, code: CodeInvalidRequest},
	} {
		t.Run(tc.name, func(t *testing.T) {
			fa := newFakeAnalyzer()
			rr := do(t, NewServer(fa, nil, quietLogger()), http.MethodPost, "/v1/analyses", tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
			}
			if got := decodeBody(t, rr)["code"]; got != tc.code {
				t.Fatalf("code=%v, want %s", got, tc.code)
			}
			if len(fa.jobs) != 0 {
				t.Fatalf("nothing should be stored: %#v", fa.jobs)
			}
		})
	}
}

func TestPollAndForget(t *testing.T) {
	fa := newFakeAnalyzer()
	fa.put(completedJob("abc"))
	h := NewServer(fa, nil, quietLogger())

	rr := do(t, h, http.MethodGet, "/v1/analyses/abc", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var job jobs.Job
	if err := json.Unmarshal(rr.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if job.ID != "abc" || job.Status != jobs.StatusCompleted || job.Result == nil || job.Outcome != analysis.OutcomeDeclined {
		t.Fatalf("unexpected job: %+v", job)
	}

	if rr := do(t, h, http.MethodDelete, "/v1/analyses/abc", nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	rr = do(t, h, http.MethodGet, "/v1/analyses/abc", nil)
	if rr.Code != http.StatusNotFound || decodeBody(t, rr)["code"] != CodeUnknownJob {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr := do(t, h, http.MethodDelete, "/v1/analyses/abc", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d", rr.Code)
	}
	if rr := do(t, h, http.MethodPut, "/v1/analyses/abc", nil); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("put status=%d", rr.Code)
	}
}

func TestPollStoreFailureIsInternal(t *testing.T) {
	fa := newFakeAnalyzer()
	fa.pollErr = errors.New("disk on fire")
	rr := do(t, NewServer(fa, nil, quietLogger()), http.MethodGet, "/v1/analyses/x", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "disk on fire") {
		t.Fatal("internal error details should not leak")
	}
}

func TestReportNotReady(t *testing.T) {
	fa := newFakeAnalyzer()
	fa.put(jobs.Job{ID: "running", Status: jobs.StatusRunning})
	fa.put(jobs.Job{ID: "failed", Status: jobs.StatusFailed, Error: "gemini: request_failed: status 429: quota"})
	h := NewServer(fa, &fakePDF{}, quietLogger())
	for _, path := range []string{
		"/v1/analyses/running/report",
		"/v1/analyses/running/report.pdf",
		"/v1/analyses/failed/report",
	} {
		rr := do(t, h, http.MethodGet, path, nil)
		if rr.Code != http.StatusConflict || decodeBody(t, rr)["code"] != CodeNotReady {
			t.Fatalf("%s: status=%d body=%s", path, rr.Code, rr.Body.String())
		}
	}
	if rr := do(t, h, http.MethodGet, "/v1/analyses/missing/report", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("missing job report status=%d", rr.Code)
	}
}

func TestReportFormats(t *testing.T) {
	fa := newFakeAnalyzer()
	fa.put(completedJob("abc"))
	h := NewServer(fa, nil, quietLogger())

	rr := do(t, h, http.MethodGet, "/v1/analyses/abc/report", nil)
	if rr.Code != http.StatusOK || !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/markdown") {
		t.Fatalf("status=%d content-type=%s", rr.Code, rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(rr.Body.String(), "# Property Analysis: 1200 Maple Ave, Yankton, SD") {
		t.Fatalf("unexpected markdown: %s", rr.Body.String())
	}

	rr = do(t, h, http.MethodGet, "/v1/analyses/abc/report?format=html", nil)
	if rr.Code != http.StatusOK || !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("status=%d content-type=%s", rr.Code, rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(rr.Body.String(), "<table>") || !strings.Contains(rr.Body.String(), "Insufficient data") {
		t.Fatal("html report should contain tables and the fallback badge")
	}

	if rr := do(t, h, http.MethodGet, "/v1/analyses/abc/report?format=docx", nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("unsupported format status=%d", rr.Code)
	}
}

func TestReportPDF(t *testing.T) {
	fa := newFakeAnalyzer()
	fa.put(completedJob("abc"))

	rr := do(t, NewServer(fa, nil, quietLogger()), http.MethodGet, "/v1/analyses/abc/report.pdf", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("without renderer status=%d", rr.Code)
	}

	pdf := &fakePDF{}
	rr = do(t, NewServer(fa, pdf, quietLogger()), http.MethodGet, "/v1/analyses/abc/report.pdf", nil)
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("status=%d content-type=%s", rr.Code, rr.Header().Get("Content-Type"))
	}
	if got := rr.Header().Get("Content-Disposition"); got != `attachment; filename="property-analysis-abc.pdf"` {
		t.Fatalf("content-disposition=%s", got)
	}
	if pdf.meta.JobID != "abc" || pdf.meta.Outcome != analysis.OutcomeDeclined || pdf.meta.CompletedAt.IsZero() {
		t.Fatalf("unexpected meta: %+v", pdf.meta)
	}

	rr = do(t, NewServer(fa, &fakePDF{err: errors.New("chrome crashed")}, quietLogger()), http.MethodGet, "/v1/analyses/abc/report.pdf", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("render failure status=%d", rr.Code)
	}
}

func TestUnknownSubresource(t *testing.T) {
	fa := newFakeAnalyzer()
	fa.put(completedJob("abc"))
	if rr := do(t, NewServer(fa, nil, quietLogger()), http.MethodGet, "/v1/analyses/abc/chart", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestSanitizeFilename(t *testing.T) {
	for in, want := range map[string]string{
		"":            "report",
		"abc-123_x":   "abc-123_x",
		"../etc/pass": "---etc-pass",
	} {
		if got := sanitizeFilename(in); got != want {
			t.Fatalf("sanitizeFilename(%q)=%q, want %q", in, got, want)
		}
	}
}
