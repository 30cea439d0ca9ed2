// Package completion sends research prompts to a hosted text-completion
// service and returns the model's raw text.
package completion

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

const (
	DefaultGeminiEndpoint  = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel     = "gemini-2.0-flash-exp"
	DefaultAnthropicModel  = "claude-sonnet-4-20250514"
	DefaultTemperature     = 0.2
	DefaultMaxOutputTokens = 2000
	DefaultTimeout         = 60 * time.Second
)

// Requester submits one prompt and returns the model text. Implementations
// do not retry.
type Requester interface {
	Request(ctx context.Context, prompt string) (string, error)
}

// Settings configure a provider. Zero values take the package defaults.
type Settings struct {
	Endpoint        string
	Model           string
	APIKey          string
	Temperature     float64
	MaxOutputTokens int
	Timeout         time.Duration
}

func (s Settings) withDefaults(provider string) Settings {
	if s.Model == "" {
		switch provider {
		case ProviderAnthropic:
			s.Model = DefaultAnthropicModel
		default:
			s.Model = DefaultGeminiModel
		}
	}
	if s.Endpoint == "" && provider == ProviderGemini {
		s.Endpoint = DefaultGeminiEndpoint
	}
	if s.Temperature == 0 {
		s.Temperature = DefaultTemperature
	}
	if s.MaxOutputTokens <= 0 {
		s.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if s.Timeout <= 0 {
		s.Timeout = DefaultTimeout
	}
	s.APIKey = strings.TrimSpace(s.APIKey)
	return s
}

// New builds the requester for provider.
func New(provider string, s Settings) (Requester, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", ProviderGemini:
		return NewGeminiRequester(s), nil
	case ProviderAnthropic:
		return NewAnthropicRequester(s), nil
	default:
		return nil, fmt.Errorf("unknown completion provider %q", provider)
	}
}

var (
	ErrRequestFailed           = errors.New("completion request failed")
	ErrInvalidUpstreamResponse = errors.New("invalid upstream response")
)

type Kind string

const (
	KindRequestFailed           Kind = "request_failed"
	KindInvalidUpstreamResponse Kind = "invalid_upstream_response"
)

// Error is returned by every Requester. Status is the upstream HTTP status
// when one was received and Message the upstream error text, verbatim.
type Error struct {
	Kind     Kind
	Provider string
	Status   int
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s: status %d: %s", e.Provider, e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrRequestFailed:
		return e.Kind == KindRequestFailed
	case ErrInvalidUpstreamResponse:
		return e.Kind == KindInvalidUpstreamResponse
	}
	return false
}

func requestFailed(provider string, status int, message string, err error) *Error {
	return &Error{Kind: KindRequestFailed, Provider: provider, Status: status, Message: message, Err: err}
}

func invalidResponse(provider, message string, err error) *Error {
	return &Error{Kind: KindInvalidUpstreamResponse, Provider: provider, Message: message, Err: err}
}

// IsTransient reports whether err is worth retrying: rate limiting, upstream
// 5xx and timeouts. Cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Status == http.StatusTooManyRequests || ce.Status >= 500
	}
	return false
}

// StatusOf returns the upstream HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Status
	}
	return 0
}
