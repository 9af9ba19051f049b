// Package llm wraps langchaingo chat models behind a provider-selectable
// completion interface for the pipeline stages.
package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/fyrsmithlabs/researchd/internal/config"
)

// Request is a single completion request.
type Request struct {
	System      string
	User        string
	Temperature *float64
	MaxTokens   int
}

// Completer generates a text completion for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Factory builds stage-specific completers from configuration.
type Factory struct {
	cfg config.LLMConfig
}

// NewFactory creates a completer factory.
func NewFactory(cfg config.LLMConfig) *Factory {
	return &Factory{cfg: cfg}
}

// ForStage returns a completer for a stage, honoring the stage's
// provider and model overrides and falling back to the configured
// default provider.
func (f *Factory) ForStage(stage config.StageConfig) (Completer, error) {
	provider := stage.Provider
	if provider == "" {
		provider = f.cfg.DefaultProvider
	}

	model, err := f.newModel(provider, stage.Model)
	if err != nil {
		return nil, err
	}

	return &client{
		model:       model,
		provider:    provider,
		temperature: stage.Temperature,
		maxTokens:   stage.MaxTokens,
	}, nil
}

func (f *Factory) newModel(provider, modelOverride string) (llms.Model, error) {
	switch provider {
	case "openai":
		model := modelOverride
		if model == "" {
			model = f.cfg.OpenAI.Model
		}
		opts := []openai.Option{
			openai.WithToken(f.cfg.OpenAI.APIKey.Value()),
			openai.WithModel(model),
		}
		if f.cfg.OpenAI.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(f.cfg.OpenAI.BaseURL))
		}
		m, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("creating OpenAI client: %w", err)
		}
		return m, nil

	case "anthropic":
		model := modelOverride
		if model == "" {
			model = f.cfg.Anthropic.Model
		}
		opts := []anthropic.Option{
			anthropic.WithToken(f.cfg.Anthropic.APIKey.Value()),
			anthropic.WithModel(model),
		}
		if f.cfg.Anthropic.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(f.cfg.Anthropic.BaseURL))
		}
		m, err := anthropic.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("creating Anthropic client: %w", err)
		}
		return m, nil

	case "ollama":
		model := modelOverride
		if model == "" {
			model = f.cfg.Ollama.Model
		}
		opts := []ollama.Option{
			ollama.WithModel(model),
		}
		if f.cfg.Ollama.ServerURL != "" {
			opts = append(opts, ollama.WithServerURL(f.cfg.Ollama.ServerURL))
		}
		m, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("creating Ollama client: %w", err)
		}
		return m, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider %q", provider)
	}
}

// client adapts an llms.Model to the Completer interface.
type client struct {
	model       llms.Model
	provider    string
	temperature *float64
	maxTokens   int
}

func (c *client) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]llms.MessageContent, 0, 2)
	if req.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.User))

	var opts []llms.CallOption
	switch {
	case req.Temperature != nil:
		opts = append(opts, llms.WithTemperature(*req.Temperature))
	case c.temperature != nil:
		opts = append(opts, llms.WithTemperature(*c.temperature))
	}
	switch {
	case req.MaxTokens > 0:
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	case c.maxTokens > 0:
		opts = append(opts, llms.WithMaxTokens(c.maxTokens))
	}

	resp, err := c.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("%s completion failed: %w", c.provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", c.provider)
	}
	return resp.Choices[0].Content, nil
}
