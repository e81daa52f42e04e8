// Package llm is a thin chat-completions client. Configuration is resolved
// from the environment per call so the judge, banter and streaming paths can
// all point at different providers without plumbing.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrRefusal marks a completion the model explicitly declined to produce.
var ErrRefusal = errors.New("model refused")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options controls JSON mode + reasoning + tokens.
type Options struct {
	ReasoningEffort      string
	MaxOutputTokens      *int
	StructuredSchemaName string
	StructuredSchema     map[string]any
	StructuredStrict     bool
}

// CompleteText sends a single system+user exchange and returns the text.
func CompleteText(ctx context.Context, model, system, user string, opts Options) (string, error) {
	return CompleteMessages(ctx, model, system, []Message{{Role: "user", Content: user}}, opts)
}

// CompleteMessages sends a system instruction plus a full message history.
func CompleteMessages(ctx context.Context, model, system string, msgs []Message, opts Options) (string, error) {
	cfg, err := resolveAPIConfig(model)
	if err != nil {
		return "", err
	}

	body, err := doChatRequest(ctx, cfg, buildPayload(cfg.Model, system, msgs, opts, false))
	if err != nil {
		return "", err
	}
	defer body.Close()

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(body)
	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
				Refusal string `json:"refusal"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(buf.Bytes(), &cc); err != nil {
		return "", err
	}
	if len(cc.Choices) == 0 {
		return "", errors.New("no choices returned")
	}
	if r := cc.Choices[0].Message.Refusal; r != "" {
		return "", fmt.Errorf("%w: %s", ErrRefusal, r)
	}
	return cc.Choices[0].Message.Content, nil
}

func buildPayload(model, system string, msgs []Message, opts Options, stream bool) map[string]any {
	messages := make([]Message, 0, len(msgs)+1)
	if system != "" {
		messages = append(messages, Message{Role: "system", Content: system})
	}
	messages = append(messages, msgs...)

	payload := map[string]any{
		"model":    model,
		"messages": messages,
	}
	if stream {
		payload["stream"] = true
	}
	if opts.MaxOutputTokens != nil && *opts.MaxOutputTokens > 0 {
		payload["max_tokens"] = *opts.MaxOutputTokens
	}
	if opts.ReasoningEffort != "" {
		payload["reasoning"] = map[string]any{"effort": opts.ReasoningEffort}
	}
	if opts.StructuredSchema != nil {
		name := opts.StructuredSchemaName
		if name == "" {
			name = "structured"
		}
		payload["response_format"] = map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   name,
				"strict": opts.StructuredStrict,
				"schema": opts.StructuredSchema,
			},
		}
	}
	return payload
}

func doChatRequest(ctx context.Context, cfg apiConfig, payload map[string]any) (io.ReadCloser, error) {
	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(cfg.HeaderName, cfg.HeaderPrefix+cfg.APIKey)
	if cfg.Organization != "" {
		req.Header.Set("OpenAI-Organization", cfg.Organization)
	}
	for k, v := range cfg.ExtraHeaders {
		req.Header[k] = []string{v}
	}

	// No client timeout: streaming calls stay open as long as the model
	// talks; the request context bounds the call instead.
	client := &http.Client{Timeout: 0}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("openai http %d: %s", resp.StatusCode, truncate(buf.String(), 800))
	}
	return resp.Body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
