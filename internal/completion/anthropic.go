package completion

import (
	"context"
	"encoding/json"
	"errors"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const systemPrompt = "You are a multi-family real estate research analyst. Respond with strict JSON only."

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicRequester sends the prompt through the Messages API and returns
// the first text block.
type AnthropicRequester struct {
	messages AnthropicMessager
	settings Settings
}

func NewAnthropicRequester(s Settings) *AnthropicRequester {
	s = s.withDefaults(ProviderAnthropic)
	opts := []option.RequestOption{
		option.WithAPIKey(s.APIKey),
		option.WithRequestTimeout(s.Timeout),
		option.WithMaxRetries(0),
	}
	if s.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(s.Endpoint))
	}
	c := anthropic.NewClient(opts...)
	return &AnthropicRequester{messages: &c.Messages, settings: s}
}

func (a *AnthropicRequester) Request(ctx context.Context, prompt string) (string, error) {
	if a.settings.APIKey == "" {
		return "", requestFailed(ProviderAnthropic, 0, "API key not configured", nil)
	}
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.settings.Model),
		MaxTokens:   int64(a.settings.MaxOutputTokens),
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(a.settings.Temperature),
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", requestFailed(ProviderAnthropic, apiErr.StatusCode, anthropicMessage(apiErr), err)
		}
		return "", requestFailed(ProviderAnthropic, 0, err.Error(), err)
	}
	if resp == nil {
		return "", invalidResponse(ProviderAnthropic, "empty message", nil)
	}
	for _, b := range resp.Content {
		if b.Type == "text" {
			if b.Text == "" {
				return "", invalidResponse(ProviderAnthropic, "response text is empty", nil)
			}
			return b.Text, nil
		}
	}
	return "", invalidResponse(ProviderAnthropic, "message has no text block", nil)
}

// anthropicMessage pulls error.message out of the API error body.
func anthropicMessage(apiErr *anthropic.Error) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(apiErr.RawJSON()), &body); err == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return apiErr.Error()
}
