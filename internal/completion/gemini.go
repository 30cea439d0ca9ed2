package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const maxResponseBytes = 8 << 20

// GeminiRequester calls the Generative Language generateContent endpoint.
type GeminiRequester struct {
	settings Settings
	client   *http.Client
}

func NewGeminiRequester(s Settings) *GeminiRequester {
	s = s.withDefaults(ProviderGemini)
	return &GeminiRequester{
		settings: s,
		client:   &http.Client{Timeout: s.Timeout},
	}
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type geminiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (g *GeminiRequester) endpointURL() string {
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(g.settings.Endpoint, "/"),
		url.PathEscape(g.settings.Model),
		url.QueryEscape(g.settings.APIKey))
}

func (g *GeminiRequester) Request(ctx context.Context, prompt string) (string, error) {
	if g.settings.APIKey == "" {
		return "", requestFailed(ProviderGemini, 0, "API key not configured", nil)
	}
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     g.settings.Temperature,
			MaxOutputTokens: g.settings.MaxOutputTokens,
		},
	})
	if err != nil {
		return "", requestFailed(ProviderGemini, 0, "encode request: "+err.Error(), err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpointURL(), bytes.NewReader(body))
	if err != nil {
		return "", requestFailed(ProviderGemini, 0, "build request: "+err.Error(), err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", requestFailed(ProviderGemini, 0, redactKey(err.Error(), g.settings.APIKey), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", requestFailed(ProviderGemini, resp.StatusCode, "read response: "+err.Error(), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", requestFailed(ProviderGemini, resp.StatusCode, upstreamMessage(resp.StatusCode, raw), nil)
	}

	var decoded geminiResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", invalidResponse(ProviderGemini, "decode response: "+err.Error(), err)
	}
	if len(decoded.Candidates) == 0 {
		return "", invalidResponse(ProviderGemini, "response has no candidates", nil)
	}
	for _, part := range decoded.Candidates[0].Content.Parts {
		if part.Text == nil {
			continue
		}
		if strings.TrimSpace(*part.Text) == "" {
			return "", invalidResponse(ProviderGemini, "response text is empty", nil)
		}
		return *part.Text, nil
	}
	return "", invalidResponse(ProviderGemini, "first candidate has no text part", nil)
}

// upstreamMessage returns the error message from a Google API error body, or
// the raw body when it has none.
func upstreamMessage(status int, body []byte) string {
	var eb geminiErrorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error.Message != "" {
		return eb.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return http.StatusText(status)
	}
	if len(msg) > 512 {
		msg = msg[:512]
	}
	return msg
}

// redactKey keeps the API key out of transport errors, which quote the URL.
func redactKey(msg, key string) string {
	if key == "" {
		return msg
	}
	msg = strings.ReplaceAll(msg, url.QueryEscape(key), "REDACTED")
	return strings.ReplaceAll(msg, key, "REDACTED")
}
