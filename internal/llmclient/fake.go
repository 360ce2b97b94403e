package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
)

// FakeClient is a scriptable Client used by tests and by the demo CLI when
// no provider API key is configured. Responses are queued per template name;
// each call to Complete/Structured for a given template pops the next queued
// response.
type FakeClient struct {
	completions map[string][]string
	structured  map[string][]any
}

// NewFakeClient constructs an empty FakeClient.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		completions: make(map[string][]string),
		structured:  make(map[string][]any),
	}
}

// QueueCompletion enqueues a free-form response for the given template name.
func (f *FakeClient) QueueCompletion(template, response string) *FakeClient {
	f.completions[template] = append(f.completions[template], response)
	return f
}

// QueueStructured enqueues a structured response value for the given
// template name. value is re-marshaled/unmarshaled through JSON so the
// caller's destination type is populated exactly as a real provider's
// response would be.
func (f *FakeClient) QueueStructured(template string, value any) *FakeClient {
	f.structured[template] = append(f.structured[template], value)
	return f
}

// Complete implements Client.
func (f *FakeClient) Complete(_ context.Context, _, template string, _ map[string]any) (string, error) {
	queue := f.completions[template]
	if len(queue) == 0 {
		return "", fmt.Errorf("llmclient: fake client has no queued completion for template %q", template)
	}
	f.completions[template] = queue[1:]
	return queue[0], nil
}

// Structured implements Client.
func (f *FakeClient) Structured(_ context.Context, _, template string, _ map[string]any, into any) error {
	queue := f.structured[template]
	if len(queue) == 0 {
		return fmt.Errorf("llmclient: fake client has no queued structured response for template %q", template)
	}
	f.structured[template] = queue[1:]
	raw, err := json.Marshal(queue[0])
	if err != nil {
		return fmt.Errorf("llmclient: marshal fake structured response: %w", err)
	}
	return json.Unmarshal(raw, into)
}
