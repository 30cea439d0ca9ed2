// Package analysisclient is the caller side of the analysis API: submit an
// address, then poll until the job finishes.
package analysisclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joelkehle/property-analysis/internal/jobs"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxAttempts  = 60
)

// ErrPollTimeout is returned when a job is still running after the last poll.
var ErrPollTimeout = errors.New("analysis did not finish in time")

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("status %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL      string
	http         *http.Client
	PollInterval time.Duration
	MaxAttempts  int
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		PollInterval: DefaultPollInterval,
		MaxAttempts:  DefaultMaxAttempts,
	}
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	blob, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(blob))}
		var parsed struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(blob, &parsed) == nil && parsed.Error != "" {
			apiErr.Code, apiErr.Message = parsed.Code, parsed.Error
		}
		return blob, fmt.Errorf("%s %s: %w", method, path, apiErr)
	}
	return blob, nil
}

// Submit starts an analysis and returns its job id.
func (c *Client) Submit(ctx context.Context, address string) (string, error) {
	payload, err := json.Marshal(map[string]any{"address": address})
	if err != nil {
		return "", err
	}
	out, err := c.do(ctx, http.MethodPost, "/v1/analyses", payload)
	if err != nil {
		return "", err
	}
	var resp struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	if strings.TrimSpace(resp.JobID) == "" {
		return "", fmt.Errorf("missing job_id in response")
	}
	return resp.JobID, nil
}

// Poll fetches the current job state once.
func (c *Client) Poll(ctx context.Context, id string) (jobs.Job, error) {
	out, err := c.do(ctx, http.MethodGet, "/v1/analyses/"+url.PathEscape(id), nil)
	if err != nil {
		return jobs.Job{}, err
	}
	var job jobs.Job
	if err := json.Unmarshal(out, &job); err != nil {
		return jobs.Job{}, fmt.Errorf("decode job: %w", err)
	}
	return job, nil
}

// Forget deletes the job record on the server.
func (c *Client) Forget(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/v1/analyses/"+url.PathEscape(id), nil)
	return err
}

// Report downloads the rendered report. format is "markdown" or "html".
func (c *Client) Report(ctx context.Context, id, format string) ([]byte, error) {
	path := "/v1/analyses/" + url.PathEscape(id) + "/report"
	if format != "" {
		path += "?format=" + url.QueryEscape(format)
	}
	return c.do(ctx, http.MethodGet, path, nil)
}

// WaitForResult polls until the job is terminal. onProgress, when set, sees
// every polled state. After MaxAttempts polls without a terminal state it
// returns the last state with ErrPollTimeout.
func (c *Client) WaitForResult(ctx context.Context, id string, onProgress func(jobs.Job)) (jobs.Job, error) {
	interval := c.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	var last jobs.Job
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return last, ctx.Err()
			case <-time.After(interval):
			}
		}
		job, err := c.Poll(ctx, id)
		if err != nil {
			return last, err
		}
		last = job
		if onProgress != nil {
			onProgress(job)
		}
		if job.Status.Terminal() {
			return job, nil
		}
	}
	return last, fmt.Errorf("%w: job %s after %d polls", ErrPollTimeout, id, attempts)
}
