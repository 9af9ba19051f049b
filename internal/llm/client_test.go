package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/fyrsmithlabs/researchd/internal/config"
)

type fakeModel struct {
	lastMessages []llms.MessageContent
	lastOpts     llms.CallOptions
	response     string
	err          error
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.lastMessages = messages
	for _, opt := range options {
		opt(&f.lastOpts)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.response}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return f.response, f.err
}

func TestForStageUnknownProvider(t *testing.T) {
	factory := NewFactory(config.LLMConfig{DefaultProvider: "bedrock"})
	_, err := factory.ForStage(config.StageConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown LLM provider")
}

func TestForStageProviderOverride(t *testing.T) {
	factory := NewFactory(config.LLMConfig{DefaultProvider: "openai"})
	_, err := factory.ForStage(config.StageConfig{Provider: "nonexistent"})
	assert.Error(t, err, "stage provider wins over default")
}

func TestCompleteBuildsMessages(t *testing.T) {
	fake := &fakeModel{response: "VIABILITY SCORE: 70"}
	c := &client{model: fake, provider: "openai"}

	out, err := c.Complete(context.Background(), Request{
		System: "you are a critic",
		User:   "evaluate this",
	})
	require.NoError(t, err)
	assert.Equal(t, "VIABILITY SCORE: 70", out)

	require.Len(t, fake.lastMessages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, fake.lastMessages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, fake.lastMessages[1].Role)
}

func TestCompleteOmitsEmptySystem(t *testing.T) {
	fake := &fakeModel{response: "ok"}
	c := &client{model: fake, provider: "openai"}

	_, err := c.Complete(context.Background(), Request{User: "hi"})
	require.NoError(t, err)
	require.Len(t, fake.lastMessages, 1)
	assert.Equal(t, llms.ChatMessageTypeHuman, fake.lastMessages[0].Role)
}

func TestCompleteAppliesOptions(t *testing.T) {
	temp := 0.2
	fake := &fakeModel{response: "ok"}
	c := &client{model: fake, provider: "openai", temperature: &temp, maxTokens: 1024}

	_, err := c.Complete(context.Background(), Request{User: "hi"})
	require.NoError(t, err)
	assert.Equal(t, 0.2, fake.lastOpts.Temperature)
	assert.Equal(t, 1024, fake.lastOpts.MaxTokens)

	// Per-request values override the stage defaults.
	reqTemp := 0.9
	_, err = c.Complete(context.Background(), Request{User: "hi", Temperature: &reqTemp, MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, 0.9, fake.lastOpts.Temperature)
	assert.Equal(t, 64, fake.lastOpts.MaxTokens)
}

func TestCompleteErrors(t *testing.T) {
	fake := &fakeModel{err: errors.New("boom")}
	c := &client{model: fake, provider: "anthropic"}

	_, err := c.Complete(context.Background(), Request{User: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic completion failed")

	empty := &fakeModel{}
	c = &client{model: empty, provider: "openai"}
	empty.response = ""
	_, err = c.Complete(context.Background(), Request{User: "hi"})
	require.NoError(t, err, "empty content is still a choice")
}
