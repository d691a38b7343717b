// Package llm implements the vision transcription client for an
// OpenAI-compatible chat completions endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pagelens/pdftext/internal/domain"
)

// Options configures a Client.
type Options struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	HTTPClient  *http.Client // optional, for tests
}

// Client issues transcription requests to the remote vision model. It keeps
// no state between calls and is safe for concurrent use.
type Client struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

// Message represents a chat message
type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart represents a part of message content (text or image)
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL represents an image URL in the message
type ImageURL struct {
	URL string `json:"url"`
}

// Request represents the API request structure
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

// Response represents the API response structure
type Response struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
}

// Choice represents a single completion choice
type Choice struct {
	Message      ChoiceMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

// ChoiceMessage is the assistant message inside a choice.
type ChoiceMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewClient creates a new transcription client.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 120 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		apiKey:      opts.APIKey,
		model:       opts.Model,
		baseURL:     strings.TrimSuffix(opts.BaseURL, "/"),
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		httpClient:  httpClient,
	}
}

// Transcribe sends one page image to the model and returns the verbatim
// page text. It blocks until the remote response arrives and performs no
// retries; retry policy belongs to the caller.
func (c *Client) Transcribe(ctx context.Context, image domain.PageImage) (string, error) {
	req := c.buildRequest(image)
	return c.complete(ctx, req)
}

// Ping issues a minimal text completion to verify the endpoint and key
// before any document is accepted.
func (c *Client) Ping(ctx context.Context) error {
	req := &Request{
		Model: c.model,
		Messages: []Message{{
			Role:    "user",
			Content: []ContentPart{{Type: "text", Text: "Test"}},
		}},
		Temperature: 0,
		MaxTokens:   10,
	}
	_, err := c.complete(ctx, req)
	return err
}

func (c *Client) complete(ctx context.Context, req *Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", domain.TranscriptionError(domain.TranscriptionKindRemote, "failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", domain.TranscriptionError(domain.TranscriptionKindRemote, "failed to build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", domain.TranscriptionError(domain.TranscriptionKindRemote, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", classifyStatus(resp.StatusCode, string(respBody))
	}

	var apiResp Response
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", domain.TranscriptionError(domain.TranscriptionKindMalformed, "failed to decode response", err)
	}
	if len(apiResp.Choices) == 0 {
		return "", domain.TranscriptionError(domain.TranscriptionKindMalformed, "response contains no choices", nil)
	}

	content := apiResp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", domain.TranscriptionError(domain.TranscriptionKindMalformed, "response contains no text", nil)
	}

	return content, nil
}

// buildRequest constructs the chat request with the page image inlined as a
// base64 data URL.
func (c *Client) buildRequest(image domain.PageImage) *Request {
	imageURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image.Data)

	msg := Message{
		Role: "user",
		Content: []ContentPart{
			{Type: "text", Text: transcriptionPrompt},
			{Type: "image_url", ImageURL: &ImageURL{URL: imageURL}},
		},
	}

	return &Request{
		Model:       c.model,
		Messages:    []Message{msg},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Stream:      false,
	}
}

// classifyStatus maps a non-200 response to a transcription error kind.
func classifyStatus(status int, body string) error {
	msg := fmt.Sprintf("API returned status %d", status)
	if body != "" {
		msg = fmt.Sprintf("%s: %s", msg, strings.TrimSpace(body))
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.TranscriptionError(domain.TranscriptionKindAuth, msg, nil)
	case http.StatusTooManyRequests, http.StatusPaymentRequired:
		return domain.TranscriptionError(domain.TranscriptionKindRateLimit, msg, nil)
	default:
		return domain.TranscriptionError(domain.TranscriptionKindRemote, msg, nil)
	}
}
