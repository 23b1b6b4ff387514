// Package llm provides the "llm" node type: a single prompt completion
// through a langchaingo model. Token usage reported by the provider becomes
// the node's TokensUsed.
package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonrepair"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/vk/hookgrid/internal/ctxlog"
	"github.com/vk/hookgrid/internal/node"
	"github.com/vk/hookgrid/internal/registry"
)

// DefaultModel is used when a node does not name one.
const DefaultModel = "gpt-4o-mini"

// ModelFactory builds the model for one node execution.
type ModelFactory func(model, baseURL string) (llms.Model, error)

// Module implements the registry.Module interface for this package.
type Module struct {
	// NewModel defaults to OpenAIFactory.
	NewModel ModelFactory
}

// Input defines the arguments for the llm runner.
type Input struct {
	Prompt      string  `arg:"prompt"`
	System      string  `arg:"system,optional"`
	Model       string  `arg:"model,optional"`
	BaseURL     string  `arg:"base_url,optional"`
	Temperature float64 `arg:"temperature,optional"`
	MaxTokens   int     `arg:"max_tokens,optional"`
	// JSON parses the completion as JSON, repairing it when needed, and
	// exposes the result as output.json.
	JSON bool `arg:"json,optional"`
}

// OpenAIFactory builds an OpenAI chat model. The API key is read from
// OPENAI_API_KEY by the client.
func OpenAIFactory(model, baseURL string) (llms.Model, error) {
	opts := []openai.Option{openai.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	return openai.New(opts...)
}

// Run returns the handler bound to newModel.
func Run(newModel ModelFactory) func(ctx context.Context, input *Input) (node.Output, error) {
	return func(ctx context.Context, input *Input) (node.Output, error) {
		if input.Model == "" {
			input.Model = DefaultModel
		}
		logger := ctxlog.FromContext(ctx).With("model", input.Model)

		model, err := newModel(input.Model, input.BaseURL)
		if err != nil {
			return node.Output{}, fmt.Errorf("failed to create model %q: %w", input.Model, err)
		}

		var messages []llms.MessageContent
		if input.System != "" {
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, input.System))
		}
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, input.Prompt))

		var opts []llms.CallOption
		if input.Temperature > 0 {
			opts = append(opts, llms.WithTemperature(input.Temperature))
		}
		if input.MaxTokens > 0 {
			opts = append(opts, llms.WithMaxTokens(input.MaxTokens))
		}

		logger.Debug("Generating completion.", "promptLength", len(input.Prompt))
		resp, err := model.GenerateContent(ctx, messages, opts...)
		if err != nil {
			return node.Output{}, fmt.Errorf("completion failed: %w", err)
		}
		if resp == nil || len(resp.Choices) == 0 {
			return node.Output{}, fmt.Errorf("completion returned no choices")
		}

		choice := resp.Choices[0]
		tokens := tokensUsed(choice.GenerationInfo)
		logger.Info("Completion received.", "tokens", tokens, "stopReason", choice.StopReason)

		value := map[string]any{"text": choice.Content}
		if input.JSON {
			parsed, err := parseJSON(choice.Content)
			if err != nil {
				return node.Output{}, err
			}
			value["json"] = parsed
		}
		return node.Output{Value: value, TokensUsed: tokens}, nil
	}
}

// parseJSON decodes content, repairing malformed model output on failure.
func parseJSON(content string) (any, error) {
	var out any
	err := json.Unmarshal([]byte(content), &out)
	if err == nil {
		return out, nil
	}
	repaired, repairErr := jsonrepair.JSONRepair(content)
	if repairErr != nil {
		return nil, fmt.Errorf("completion is not valid JSON and could not be repaired: %w (repair error: %v)", err, repairErr)
	}
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal repaired JSON: %w", err)
	}
	return out, nil
}

// tokensUsed reads the provider's usage from generation info. Providers
// disagree on the numeric type.
func tokensUsed(info map[string]any) int64 {
	if n, ok := asInt64(info["TotalTokens"]); ok {
		return n
	}
	prompt, _ := asInt64(info["PromptTokens"])
	completion, _ := asInt64(info["CompletionTokens"])
	return prompt + completion
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

// Register registers the handler with the registry.
func (m *Module) Register(r *registry.Registry) {
	newModel := m.NewModel
	if newModel == nil {
		newModel = OpenAIFactory
	}
	r.RegisterRunner("llm", &registry.RegisteredRunner{
		NewInput: func() any { return &Input{Model: DefaultModel} },
		Fn:       Run(newModel),
	})
}
