// Package llm talks to an OpenAI-compatible vision model to extract text,
// describe graphics and suggest categories for screenshots.
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Grabemic/Screenshot-wizard/internal/domain"
	"github.com/Grabemic/Screenshot-wizard/internal/observability"
	"github.com/Grabemic/Screenshot-wizard/internal/paths"
)

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultModel     = "gpt-4o"
	defaultMaxTokens = 4096
)

// Config holds client settings.
type Config struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
	Timeout   time.Duration
	Retry     *RetryConfig
}

// Client handles communication with the chat completions API.
// It implements domain.Analyzer.
type Client struct {
	apiKey     string
	model      string
	endpoint   string
	maxTokens  int
	httpClient *http.Client
	retry      *RetryConfig
	log        *observability.Logger
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
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// Request represents the API request structure
type Request struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
	Stream    bool      `json:"stream"`
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

// ChoiceMessage is the assistant reply of a choice.
type ChoiceMessage struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

// NewClient creates a new analysis client
func NewClient(cfg Config, log *observability.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Retry == nil {
		cfg.Retry = DefaultRetryConfig()
	}
	if log == nil {
		log = observability.Nop()
	}

	return &Client{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		maxTokens:  cfg.MaxTokens,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retry:      cfg.Retry,
		log:        log.WithComponent("llm"),
	}
}

// AnalyzeFile reads the image at path and analyzes it.
func (c *Client) AnalyzeFile(ctx context.Context, path string, opts domain.ProcessingOptions, maxCategories int) (domain.AnalysisOutcome, error) {
	imageData, err := os.ReadFile(path)
	if err != nil {
		return domain.AnalysisOutcome{}, domain.FilesystemError("read image", err)
	}

	outcome, err := c.Analyze(ctx, imageData, paths.MimeType(path), opts.Override(), maxCategories)
	if err != nil {
		return domain.AnalysisOutcome{}, err
	}
	outcome.SourceFile = filepath.Base(path)
	if outcome.ContentType == domain.ContentGraphic {
		outcome.SourceImage = path
	}
	return outcome, nil
}

// Analyze sends one image to the model. A non-empty override forces the
// content type; otherwise the model classifies the image.
func (c *Client) Analyze(ctx context.Context, imageData []byte, mimeType string, override domain.ContentType, maxCategories int) (domain.AnalysisOutcome, error) {
	if len(imageData) == 0 {
		return domain.AnalysisOutcome{}, domain.ValidationError("image is empty", nil)
	}

	c.log.Info().Str("mime", mimeType).Str("content_type", string(override)).Msg("analyzing image")
	start := time.Now()

	req := c.buildRequest(imageData, mimeType, buildPrompt(override, maxCategories))
	raw, err := c.complete(ctx, req)
	if err != nil {
		return domain.AnalysisOutcome{}, err
	}

	outcome, malformed := parseAnalysis(raw, override, maxCategories)
	if malformed {
		c.log.Warn().Int("length", len(raw)).Msg("failed to parse JSON response, using raw text")
	}

	c.log.Info().
		Strs("categories", outcome.Categories).
		Str("content_type", string(outcome.ContentType)).
		Dur("duration", time.Since(start)).
		Msg("analysis complete")
	return outcome, nil
}

// buildRequest constructs the API request with the image as a data URL
func (c *Client) buildRequest(imageData []byte, mimeType, prompt string) *Request {
	imageURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(imageData)

	msg := Message{
		Role: "user",
		Content: []ContentPart{
			{
				Type: "text",
				Text: prompt,
			},
			{
				Type: "image_url",
				ImageURL: &ImageURL{
					URL:    imageURL,
					Detail: "high",
				},
			},
		},
	}

	return &Request{
		Model:     c.model,
		Messages:  []Message{msg},
		MaxTokens: c.maxTokens,
	}
}

// complete posts req and returns the first choice's content.
func (c *Client) complete(ctx context.Context, req *Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", domain.APIError("Failed to marshal request", err)
	}

	resp, err := c.send(ctx, func() (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		return httpReq, nil
	})
	if err != nil {
		return "", domain.APIError("Failed to send request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", domain.APIError(fmt.Sprintf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes))), nil)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", domain.APIError("Failed to decode response", err)
	}
	if len(out.Choices) == 0 {
		return "", domain.APIError("response contained no choices", nil)
	}
	return out.Choices[0].Message.Content, nil
}
