// Package llmclient: Anthropic-backed implementation.
//
// Grounded on the teacher's features/model/anthropic adapter, trimmed to the
// two operations this core actually requires (spec §6): free-form
// completion and schema-constrained structured output. Tool/thinking/
// streaming support from the teacher's fuller adapter is not needed here —
// this system's LLM calls happen only at the Normalizer and Planner
// decision points (spec §5 "suspension points"), never mid-tool-execution.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient implements Client on top of the Anthropic Messages API.
type AnthropicClient struct {
	messages *sdk.MessageService
	model    string
	maxTokens int64
}

// NewAnthropicClient builds an Anthropic-backed Client. apiKey is passed
// through to the SDK via option.WithAPIKey; model is a Claude model
// identifier (e.g. string(sdk.ModelClaudeSonnet4_5)).
func NewAnthropicClient(apiKey, model string, maxTokens int64) *AnthropicClient {
	client := sdk.NewClient(option.WithAPIKey(apiKey))
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &AnthropicClient{messages: &client.Messages, model: model, maxTokens: maxTokens}
}

func render(tmpl string, vars map[string]any) (string, error) {
	t, err := template.New("prompt").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("llmclient: parse template: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("llmclient: render template: %w", err)
	}
	return buf.String(), nil
}

// Complete implements Client.
func (c *AnthropicClient) Complete(ctx context.Context, system, tmpl string, vars map[string]any) (string, error) {
	prompt, err := render(tmpl, vars)
	if err != nil {
		return "", err
	}
	resp, err := c.messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    []sdk.TextBlockParam{{Text: system}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("llmclient: anthropic completion: %w", err)
	}
	var out bytes.Buffer
	for _, block := range resp.Content {
		if text := block.AsText(); text.Text != "" {
			out.WriteString(text.Text)
		}
	}
	return out.String(), nil
}

// Structured implements Client by asking for a single JSON object and
// decoding it into into. The prompt is augmented with an explicit
// instruction to emit JSON only; the core treats a decode failure as a
// PlanningError/NormalizationError per spec §7.
func (c *AnthropicClient) Structured(ctx context.Context, system, tmpl string, vars map[string]any, into any) error {
	prompt, err := render(tmpl, vars)
	if err != nil {
		return err
	}
	jsonSystem := system + "\nRespond with a single JSON object and no surrounding prose."
	resp, err := c.messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    []sdk.TextBlockParam{{Text: jsonSystem}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return fmt.Errorf("llmclient: anthropic structured call: %w", err)
	}
	var raw bytes.Buffer
	for _, block := range resp.Content {
		if text := block.AsText(); text.Text != "" {
			raw.WriteString(text.Text)
		}
	}
	if err := json.Unmarshal(raw.Bytes(), into); err != nil {
		return fmt.Errorf("llmclient: decode structured response: %w", err)
	}
	return nil
}
