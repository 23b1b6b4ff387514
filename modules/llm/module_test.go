package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	content  string
	info     map[string]any
	err      error
	messages []llms.MessageContent
	calls    int
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls++
	f.messages = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.content, GenerationInfo: f.info}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func factory(m *fakeModel, gotModel *string) ModelFactory {
	return func(model, _ string) (llms.Model, error) {
		if gotModel != nil {
			*gotModel = model
		}
		return m, nil
	}
}

func TestRun(t *testing.T) {
	t.Run("returns text and tokens", func(t *testing.T) {
		m := &fakeModel{content: "hello", info: map[string]any{"TotalTokens": 42}}
		var model string
		out, err := Run(factory(m, &model))(context.Background(), &Input{Prompt: "hi", System: "be brief"})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"text": "hello"}, out.Value)
		assert.Equal(t, int64(42), out.TokensUsed)
		assert.Equal(t, DefaultModel, model)

		require.Len(t, m.messages, 2)
		assert.Equal(t, llms.ChatMessageTypeSystem, m.messages[0].Role)
		assert.Equal(t, llms.ChatMessageTypeHuman, m.messages[1].Role)
	})

	t.Run("sums prompt and completion tokens", func(t *testing.T) {
		m := &fakeModel{content: "x", info: map[string]any{"PromptTokens": 3, "CompletionTokens": float64(4)}}
		out, err := Run(factory(m, nil))(context.Background(), &Input{Prompt: "hi"})
		require.NoError(t, err)
		assert.Equal(t, int64(7), out.TokensUsed)
	})

	t.Run("repairs json output", func(t *testing.T) {
		m := &fakeModel{content: `{"name": 'grid', "count": 2,}`}
		out, err := Run(factory(m, nil))(context.Background(), &Input{Prompt: "hi", JSON: true})
		require.NoError(t, err)
		value := out.Value.(map[string]any)
		assert.Equal(t, map[string]any{"name": "grid", "count": float64(2)}, value["json"])
	})

	t.Run("provider error", func(t *testing.T) {
		m := &fakeModel{err: errors.New("rate limited")}
		_, err := Run(factory(m, nil))(context.Background(), &Input{Prompt: "hi"})
		assert.ErrorContains(t, err, "completion failed: rate limited")
	})

	t.Run("factory error", func(t *testing.T) {
		newModel := func(string, string) (llms.Model, error) { return nil, errors.New("no key") }
		_, err := Run(newModel)(context.Background(), &Input{Prompt: "hi", Model: "gpt-x"})
		assert.ErrorContains(t, err, `failed to create model "gpt-x"`)
	})
}
