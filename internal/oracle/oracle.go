// Package oracle provides the gateway to the text-generation service
// and the decoder that coerces its free-text replies into structured
// payloads. The gateway treats the service as an unreliable, latent,
// rate-limited function call: one request, one raw text reply, no
// internal retries.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Role identifies who a transcript turn belongs to.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Gateway is the completion contract consumed by the pipeline.
type Gateway interface {
	// Complete sends the transcript and returns the raw text reply.
	Complete(ctx context.Context, transcript []Message, temperature float64, maxTokens int) (string, error)
}

// Provider endpoints. nvidia and openrouter speak the OpenAI wire
// format at different base URLs.
const (
	nvidiaURL     = "https://integrate.api.nvidia.com/v1/chat/completions"
	openAIURL     = "https://api.openai.com/v1/chat/completions"
	openRouterURL = "https://openrouter.ai/api/v1/chat/completions"
	anthropicURL  = "https://api.anthropic.com/v1/messages"
)

// Client calls an LLM provider's HTTP API directly.
type Client struct {
	provider string
	model    string
	apiKey   string
	client   *http.Client
}

// NewClient creates a gateway client. The API key is read from the
// given environment variable; a missing key is a construction error so
// that auth faults surface at process start, not per call.
func NewClient(provider, model, apiKeyEnv string, timeout time.Duration) (*Client, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("oracle: environment variable %s is not set", apiKeyEnv)
	}

	switch provider {
	case "nvidia", "openai", "openrouter", "anthropic":
	default:
		return nil, fmt.Errorf("oracle: unsupported provider: %s", provider)
	}

	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &Client{
		provider: provider,
		model:    model,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// Complete implements Gateway.
func (c *Client) Complete(ctx context.Context, transcript []Message, temperature float64, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	switch c.provider {
	case "anthropic":
		return c.completeAnthropic(ctx, transcript, temperature, maxTokens)
	default:
		return c.completeOpenAI(ctx, transcript, temperature, maxTokens)
	}
}

// completeOpenAI handles OpenAI-compatible APIs (openai, nvidia, openrouter).
func (c *Client) completeOpenAI(ctx context.Context, transcript []Message, temperature float64, maxTokens int) (string, error) {
	url := openAIURL
	switch c.provider {
	case "nvidia":
		url = nvidiaURL
	case "openrouter":
		url = openRouterURL
	}

	msgs := make([]map[string]string, 0, len(transcript))
	for _, m := range transcript {
		msgs = append(msgs, map[string]string{"role": string(m.Role), "content": m.Content})
	}

	body := map[string]any{
		"model":       c.model,
		"messages":    msgs,
		"temperature": temperature,
		"max_tokens":  maxTokens,
		"stream":      false,
	}

	respBody, err := c.post(ctx, url, body, map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	})
	if err != nil {
		return "", err
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("oracle returned no choices")
	}
	return result.Choices[0].Message.Content, nil
}

// completeAnthropic handles Anthropic's Messages API. The system turn
// travels in a dedicated field, not the messages array.
func (c *Client) completeAnthropic(ctx context.Context, transcript []Message, temperature float64, maxTokens int) (string, error) {
	var system string
	msgs := make([]map[string]string, 0, len(transcript))
	for _, m := range transcript {
		if m.Role == RoleSystem {
			system = m.Content
			continue
		}
		msgs = append(msgs, map[string]string{"role": string(m.Role), "content": m.Content})
	}

	body := map[string]any{
		"model":       c.model,
		"max_tokens":  maxTokens,
		"temperature": temperature,
		"messages":    msgs,
	}
	if system != "" {
		body["system"] = system
	}

	respBody, err := c.post(ctx, anthropicURL, body, map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": "2023-06-01",
	})
	if err != nil {
		return "", err
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(result.Content) == 0 {
		return "", fmt.Errorf("oracle returned no content")
	}
	return result.Content[0].Text, nil
}

// post sends a JSON request and returns the response body, treating any
// non-200 status as a transport fault.
func (c *Client) post(ctx context.Context, url string, body map[string]any, headers map[string]string) ([]byte, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("oracle call failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		preview := string(respBody)
		if len(preview) > 300 {
			preview = preview[:300]
		}
		return nil, fmt.Errorf("oracle returned status %d: %s", httpResp.StatusCode, preview)
	}

	return respBody, nil
}
