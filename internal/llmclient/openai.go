// Package llmclient: OpenAI-backed implementation, grounded on the pack's
// relay/common/llm/openai.go adapter style (message conversion, chat
// completion params), trimmed to the two operations the core needs.
package llmclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient implements Client on top of the OpenAI Chat Completions API.
type OpenAIClient struct {
	client openai.Client
	model  string
}

// NewOpenAIClient builds an OpenAI-backed Client. When model is empty it
// defaults to "gpt-4o".
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAIClient{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Complete implements Client.
func (c *OpenAIClient) Complete(ctx context.Context, system, tmpl string, vars map[string]any) (string, error) {
	prompt, err := render(tmpl, vars)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("llmclient: openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llmclient: openai completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Structured implements Client by requesting JSON-mode output and decoding
// the single choice into into.
func (c *OpenAIClient) Structured(ctx context.Context, system, tmpl string, vars map[string]any, into any) error {
	prompt, err := render(tmpl, vars)
	if err != nil {
		return err
	}
	jsonSystem := system + "\nRespond with a single JSON object and no surrounding prose."
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(jsonSystem),
			openai.UserMessage(prompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return fmt.Errorf("llmclient: openai structured call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("llmclient: openai structured call returned no choices")
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), into); err != nil {
		return fmt.Errorf("llmclient: decode structured response: %w", err)
	}
	return nil
}
