package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/model"
)

const (
	maxSummaryItems = 15
	maxVisionImages = 3
	visionModel     = "gpt-4o-mini"
	visionMaxTokens = 800
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Keys holds the per-backend API keys. Empty keys disable the backend.
type Keys struct {
	OpenAI   string
	Gemini   string
	DeepSeek string
	Zhipu    string
}

type backend struct {
	name    string
	baseURL string
}

var (
	backendOpenAI   = backend{name: "openai", baseURL: "https://api.openai.com/v1"}
	backendGemini   = backend{name: "gemini", baseURL: "https://generativelanguage.googleapis.com/v1beta/openai"}
	backendDeepSeek = backend{name: "deepseek", baseURL: "https://api.deepseek.com"}
	backendZhipu    = backend{name: "zhipu", baseURL: "https://open.bigmodel.cn/api/paas/v4"}
)

// backendFor routes a model name to the backend that serves it. Every
// backend speaks the OpenAI chat completion dialect.
func backendFor(modelName string) backend {
	switch {
	case strings.HasPrefix(modelName, "gpt"):
		return backendOpenAI
	case strings.HasPrefix(modelName, "gemini"):
		return backendGemini
	case strings.HasPrefix(modelName, "glm"):
		return backendZhipu
	default:
		return backendDeepSeek
	}
}

// Client talks to the chat completion backends. It implements Summarizer.
type Client struct {
	client       HTTPClient
	keys         Keys
	defaultModel string
	logger       *slog.Logger
}

// NewClient creates a summarizer client. defaultModel is used when a call
// does not name a model.
func NewClient(client HTTPClient, keys Keys, defaultModel string, logger *slog.Logger) *Client {
	return &Client{
		client:       client,
		keys:         keys,
		defaultModel: defaultModel,
		logger:       logger,
	}
}

// Summarize produces a digest of the batch. Only the first items fit the
// prompt; SourceItemIDs records exactly which ones went in. When vision is
// enabled and the batch carries images, a second call describes them and
// the result lands in VisualIntent; a vision failure degrades to a summary
// without it.
func (c *Client) Summarize(ctx context.Context, spec model.FilterSpec, items []model.RawItem, opts Options) (*model.Summary, error) {
	if len(items) == 0 {
		return nil, &model.SummarizerError{Backend: "none", Reason: "no items to summarize"}
	}

	modelName := opts.Model
	if modelName == "" {
		modelName = c.defaultModel
	}
	b := backendFor(modelName)
	key := c.keyFor(b)
	if key == "" {
		return nil, &model.SummarizerError{Backend: b.name, Reason: "api key not configured"}
	}

	included := items
	if len(included) > maxSummaryItems {
		included = included[:maxSummaryItems]
	}

	text, err := c.chat(ctx, b, key, chatRequest{
		Model: modelName,
		Messages: []chatMessage{
			{Role: "system", Content: summarySystemPrompt},
			{Role: "user", Content: buildSummaryPrompt(spec, included)},
		},
	})
	if err != nil {
		return nil, &model.SummarizerError{Backend: b.name, Reason: "chat completion failed", Err: err}
	}

	summary := &model.Summary{
		Text:        text,
		GeneratedAt: time.Now().UTC(),
		ModelUsed:   modelName,
	}
	for _, item := range included {
		summary.SourceItemIDs = append(summary.SourceItemIDs, item.PlatformID)
	}

	if opts.VisionEnabled {
		if intent, vErr := c.describeImages(ctx, items); vErr != nil {
			c.logger.Warn("vision analysis failed, continuing without it", "error", vErr)
		} else if intent != "" {
			summary.VisualIntent = intent
		}
	}
	return summary, nil
}

// Compare synthesizes a cross-material report from the prepared sections.
func (c *Client) Compare(ctx context.Context, sections []CompareSection, opts Options) (string, error) {
	modelName := opts.Model
	if modelName == "" {
		modelName = c.defaultModel
	}
	b := backendFor(modelName)
	key := c.keyFor(b)
	if key == "" {
		return "", &model.SummarizerError{Backend: b.name, Reason: "api key not configured"}
	}

	text, err := c.chat(ctx, b, key, chatRequest{
		Model: modelName,
		Messages: []chatMessage{
			{Role: "system", Content: compareSystemPrompt},
			{Role: "user", Content: buildComparePrompt(sections)},
		},
	})
	if err != nil {
		return "", &model.SummarizerError{Backend: b.name, Reason: "chat completion failed", Err: err}
	}
	return text, nil
}

// describeImages runs the vision model over the first few images in the
// batch. Vision always goes through OpenAI regardless of the text model.
func (c *Client) describeImages(ctx context.Context, items []model.RawItem) (string, error) {
	var urls []string
	for _, item := range items {
		for _, ref := range item.MediaRefs {
			urls = append(urls, ref)
			if len(urls) == maxVisionImages {
				break
			}
		}
		if len(urls) == maxVisionImages {
			break
		}
	}
	if len(urls) == 0 {
		return "", nil
	}
	if c.keys.OpenAI == "" {
		return "", &model.SummarizerError{Backend: backendOpenAI.name, Reason: "api key not configured"}
	}

	parts := []contentPart{{Type: "text", Text: visionPrompt}}
	for _, u := range urls {
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: u}})
	}

	text, err := c.chat(ctx, backendOpenAI, c.keys.OpenAI, chatRequest{
		Model:     visionModel,
		MaxTokens: visionMaxTokens,
		Messages:  []chatMessage{{Role: "user", Content: parts}},
	})
	if err != nil {
		return "", &model.SummarizerError{Backend: backendOpenAI.name, Reason: "vision call failed", Err: err}
	}
	return text, nil
}

// AvailableModels lists the model names usable with the configured keys.
func (c *Client) AvailableModels() []string {
	var models []string
	if c.keys.OpenAI != "" {
		models = append(models, "gpt-4o", "gpt-4o-mini")
	}
	if c.keys.Gemini != "" {
		models = append(models, "gemini-2.0-flash")
	}
	if c.keys.DeepSeek != "" {
		models = append(models, "deepseek-chat", "deepseek-reasoner")
	}
	if c.keys.Zhipu != "" {
		models = append(models, "glm-4", "glm-3-turbo")
	}
	return models
}

func (c *Client) keyFor(b backend) string {
	switch b.name {
	case backendOpenAI.name:
		return c.keys.OpenAI
	case backendGemini.name:
		return c.keys.Gemini
	case backendZhipu.name:
		return c.keys.Zhipu
	default:
		return c.keys.DeepSeek
	}
}

func (c *Client) chat(ctx context.Context, b backend, key string, req chatRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+key)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("http post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("backend error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty completion")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

// chatMessage content is either a plain string or, for vision calls, a
// slice of contentPart.
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}
