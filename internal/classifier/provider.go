package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"
)

const (
	anthropicURL     = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"
	openaiURL        = "https://api.openai.com/v1/chat/completions"

	defaultClaudeModel = "claude-haiku-4-5-20251001"
	defaultOpenAIModel = "gpt-4o-mini"

	replyMaxTokens = 4096
)

// Provider shapes the HTTP request for a specific LLM service and
// parses its reply. A provider is selected once at client construction,
// not branched per call.
type Provider interface {
	Name() string
	BuildRequest(ctx context.Context, system, user string) (*http.Request, error)
	// ParseReply extracts the reply text and normalized usage counters
	// from a successful response body.
	ParseReply(body []byte) (string, Usage, error)
	// RetryHint inspects a failed response for an explicit reset time.
	// Returning false falls back to blind exponential backoff.
	RetryHint(header http.Header, body []byte) (time.Duration, bool)
}

// NewProvider constructs a provider by kind: "claude", "openai" or
// "custom" (an OpenAI-compatible endpoint).
func NewProvider(kind, apiKey, model, endpoint string) (Provider, error) {
	switch kind {
	case "claude", "":
		if apiKey == "" {
			return nil, ErrNoAPIKey
		}
		if model == "" {
			model = defaultClaudeModel
		}
		return &claudeProvider{apiKey: apiKey, model: model}, nil
	case "openai":
		if apiKey == "" {
			return nil, ErrNoAPIKey
		}
		if model == "" {
			model = defaultOpenAIModel
		}
		return &openaiProvider{name: "openai", url: openaiURL, apiKey: apiKey, model: model}, nil
	case "custom":
		if endpoint == "" {
			return nil, fmt.Errorf("classifier: custom provider requires an endpoint")
		}
		return &openaiProvider{name: "custom", url: endpoint, apiKey: apiKey, model: model}, nil
	default:
		return nil, fmt.Errorf("classifier: unknown provider %q", kind)
	}
}

// --- claude ---

type claudeProvider struct {
	apiKey string
	model  string
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (p *claudeProvider) Name() string { return "claude" }

func (p *claudeProvider) BuildRequest(ctx context.Context, system, user string) (*http.Request, error) {
	body := anthropicRequest{
		Model:     p.model,
		MaxTokens: replyMaxTokens,
		System:    system,
		Messages:  []anthropicMessage{{Role: "user", Content: user}},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	return req, nil
}

func (p *claudeProvider) ParseReply(body []byte) (string, Usage, error) {
	var resp anthropicResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", Usage{}, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(resp.Content) == 0 || resp.Content[0].Type != "text" {
		return "", Usage{}, fmt.Errorf("response has no text content")
	}
	usage := Usage{
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}
	return resp.Content[0].Text, usage, nil
}

func (p *claudeProvider) RetryHint(header http.Header, body []byte) (time.Duration, bool) {
	return retryAfterHeader(header)
}

// --- openai / custom ---

type openaiProvider struct {
	name   string
	url    string
	apiKey string
	model  string
}

type openaiRequest struct {
	Model    string          `json:"model"`
	Messages []openaiMessage `json:"messages"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (p *openaiProvider) Name() string { return p.name }

func (p *openaiProvider) BuildRequest(ctx context.Context, system, user string) (*http.Request, error) {
	body := openaiRequest{
		Model: p.model,
		Messages: []openaiMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	return req, nil
}

func (p *openaiProvider) ParseReply(body []byte) (string, Usage, error) {
	var resp openaiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", Usage{}, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", Usage{}, fmt.Errorf("response has no choices")
	}
	usage := Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	return resp.Choices[0].Message.Content, usage, nil
}

// tryAgainRe matches the reset time OpenAI embeds in rate-limit error
// messages, e.g. "Please try again in 1.52s".
var tryAgainRe = regexp.MustCompile(`try again in ([0-9.]+)(ms|s)`)

func (p *openaiProvider) RetryHint(header http.Header, body []byte) (time.Duration, bool) {
	if d, ok := retryAfterHeader(header); ok {
		return d, true
	}

	var errBody struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errBody); err != nil {
		return 0, false
	}
	m := tryAgainRe.FindStringSubmatch(errBody.Error.Message)
	if m == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	if m[2] == "ms" {
		return time.Duration(value * float64(time.Millisecond)), true
	}
	return time.Duration(value * float64(time.Second)), true
}

func retryAfterHeader(header http.Header) (time.Duration, bool) {
	raw := header.Get("Retry-After")
	if raw == "" {
		return 0, false
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}
