// Package llm is a minimal client for OpenAI-compatible chat completion
// APIs.
package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// DefaultBaseURL is the OpenAI API endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

// Settings used by `run`.
const (
	RunTemperature = 0.7
	RunMaxTokens   = 2000
)

// DryRunReply is returned instead of a completion when
// PROMPTCRAFT_DEBUG_PROMPT_FILE is set.
const DryRunReply = "DEBUG_PROMPT_WRITTEN"

// ErrNoAPIKey is returned when calling the OpenAI endpoint without a key.
var ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")

// debugCallCounter numbers the files written to PROMPTCRAFT_DEBUG_PROMPT_DIR.
var debugCallCounter uint64

// Client is an OpenAI-compatible LLM API client.
type Client struct {
	APIKey  string
	Model   string
	BaseURL string
	HTTP    *http.Client
}

// NewClient creates a client from OPENAI_API_KEY, MODEL and BASE_URL.
func NewClient() *Client {
	return &Client{
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		Model:   getEnvOr("MODEL", "gpt-4o-mini"),
		BaseURL: getEnvOr("BASE_URL", DefaultBaseURL),
		HTTP: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// NewClientWith creates a client with explicit parameters.
func NewClientWith(apiKey, model, baseURL string) *Client {
	return &Client{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 120 * time.Second},
	}
}

// Validate checks that the client can authenticate. Custom endpoints may
// run without a key.
func (c *Client) Validate() error {
	if c.APIKey == "" && c.BaseURL == DefaultBaseURL {
		return ErrNoAPIKey
	}
	return nil
}

// ChatMessage represents a single message in a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// Usage reports token counts for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ChatCompletion sends a chat completion request and returns the response text.
func (c *Client) ChatCompletion(messages []ChatMessage, temperature float64, maxTokens int) (string, error) {
	text, _, err := c.chat(messages, temperature, maxTokens)
	return text, err
}

// RunPrompt sends prompt as a single user message with the `run` settings
// and returns the reply and its token usage.
func (c *Client) RunPrompt(prompt string) (string, Usage, error) {
	return c.chat([]ChatMessage{{Role: "user", Content: prompt}}, RunTemperature, RunMaxTokens)
}

func (c *Client) chat(messages []ChatMessage, temperature float64, maxTokens int) (string, Usage, error) {
	req := chatRequest{
		Model:       c.Model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	// Dry run: write the request and stop.
	if dumpFile := os.Getenv("PROMPTCRAFT_DEBUG_PROMPT_FILE"); dumpFile != "" {
		data, err := json.MarshalIndent(req, "", "  ")
		if err == nil {
			_ = os.WriteFile(dumpFile, data, 0644)
		}
		return DryRunReply, Usage{}, nil
	}

	if err := c.Validate(); err != nil {
		return "", Usage{}, err
	}

	// Full-flow logging: keep every request and response.
	dumpDir := os.Getenv("PROMPTCRAFT_DEBUG_PROMPT_DIR")
	var callNum uint64
	if dumpDir != "" {
		callNum = atomic.AddUint64(&debugCallCounter, 1)
		_ = os.MkdirAll(dumpDir, 0755)
		reqPath := filepath.Join(dumpDir, fmt.Sprintf("call_%03d_request.json", callNum))
		data, err := json.MarshalIndent(req, "", "  ")
		if err == nil {
			_ = os.WriteFile(reqPath, data, 0644)
		}
	}

	body, err := c.post("/chat/completions", req)
	if err != nil {
		return "", Usage{}, err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", Usage{}, fmt.Errorf("parse chat response: %w", err)
	}
	if resp.Error != nil {
		return "", Usage{}, fmt.Errorf("API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", Usage{}, fmt.Errorf("no choices in response")
	}

	if dumpDir != "" {
		respPath := filepath.Join(dumpDir, fmt.Sprintf("call_%03d_response.json", callNum))
		respData, err := json.MarshalIndent(resp, "", "  ")
		if err == nil {
			_ = os.WriteFile(respPath, respData, 0644)
		}
	}

	return resp.Choices[0].Message.Content, resp.Usage, nil
}

func (c *Client) post(path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.BaseURL + path
	req, err := http.NewRequest("POST", url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
