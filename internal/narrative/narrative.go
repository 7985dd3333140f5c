// Package narrative turns an evidence bundle into a short prose briefing using
// a chat-completion model. It is a pure consumer of the bundle.
package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"oact/internal/evidence"
)

const DefaultModel = "gpt-4o-mini"

var (
	ErrNotConfigured = errors.New("narrative renderer not configured")
	ErrEmptyResponse = errors.New("narrative model returned no choices")
)

const systemPrompt = `You are a supply chain resilience analyst writing for small business owners.
Summarise the assessment you are given in at most three short paragraphs.
Use only the facts provided. State the decision tier and priority first, then name the affected businesses and interrupted delivery routes.`

// Renderer produces a narrative for a bundle.
type Renderer interface {
	Render(ctx context.Context, b *evidence.Bundle) (string, error)
}

// Config selects the model endpoint. An empty APIKey leaves the renderer
// unconfigured.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// OpenAIRenderer renders narratives through an OpenAI compatible chat API.
type OpenAIRenderer struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAIRenderer returns ErrNotConfigured when no API key is set.
func NewOpenAIRenderer(cfg Config, logger *slog.Logger) (*OpenAIRenderer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = slog.Default()
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIRenderer{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		logger: logger,
	}, nil
}

func (r *OpenAIRenderer) Render(ctx context.Context, b *evidence.Bundle) (string, error) {
	prompt, err := Prompt(b)
	if err != nil {
		return "", err
	}

	req := openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.2,
	}

	resp, err := r.client.CreateChatCompletion(ctx, req)
	if err != nil {
		r.logger.ErrorContext(ctx, "narrative completion failed",
			"bundle_id", b.ID(),
			"model", r.model,
			"error", err,
		)
		return "", fmt.Errorf("narrative completion for bundle %s: %w", b.ID(), err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	r.logger.DebugContext(ctx, "narrative rendered",
		"bundle_id", b.ID(),
		"finish_reason", resp.Choices[0].FinishReason,
	)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Prompt is the user message sent for a bundle: its summary as indented JSON.
func Prompt(b *evidence.Bundle) (string, error) {
	data, err := json.MarshalIndent(b.Summary(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding bundle summary: %w", err)
	}
	return "Assessment summary:\n" + string(data), nil
}
