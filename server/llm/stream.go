package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"strings"
)

// StreamEvent is one server-sent increment from a streaming completion.
// Exactly one of Delta/Refusal is set.
type StreamEvent struct {
	Delta   string
	Refusal string
}

// StreamMessages runs a streaming chat completion and calls emit for every
// text or refusal delta, in arrival order, on the calling goroutine. It
// returns once the remote stream ends. The context bounds the whole call.
func StreamMessages(ctx context.Context, model, system string, msgs []Message, opts Options, emit func(StreamEvent)) error {
	cfg, err := resolveAPIConfig(model)
	if err != nil {
		return err
	}

	body, err := doChatRequest(ctx, cfg, buildPayload(cfg.Model, system, msgs, opts, true))
	if err != nil {
		return err
	}
	defer body.Close()

	sc := bufio.NewScanner(body)
	// Single deltas can carry whole code blocks; the default 64K cap is not
	// enough for pathological ones.
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}
		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
					Refusal string `json:"refusal"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Tolerate non-JSON keepalive lines.
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		d := chunk.Choices[0].Delta
		if d.Refusal != "" {
			emit(StreamEvent{Refusal: d.Refusal})
		}
		if d.Content != "" {
			emit(StreamEvent{Delta: d.Content})
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return sc.Err()
}
