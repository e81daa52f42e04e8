// Package sandbox runs untrusted code in a remote code-interpreter service.
// A broken sandbox never aborts a round: every failure is folded into the
// returned outcome's structured error.
package sandbox

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"ibreakdevs/server/engine"
)

type Client struct {
	apiBase    string
	runURL     string // pattern with one %s for the sandbox id
	apiKey     string
	template   string
	runTimeout time.Duration
	httpc      *http.Client
}

// NewFromEnv builds a client from E2B_* env vars. The API key may be empty;
// the first Execute will then produce a degraded outcome rather than panic.
func NewFromEnv() *Client {
	timeout := 120
	if v := strings.TrimSpace(os.Getenv("E2B_RUN_TIMEOUT_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			timeout = n
		}
	}
	base := strings.TrimSpace(os.Getenv("E2B_API_BASE"))
	if base == "" {
		base = "https://api.e2b.dev"
	}
	runURL := strings.TrimSpace(os.Getenv("E2B_RUN_URL"))
	if runURL == "" {
		runURL = "https://49999-%s.e2b.app/execute"
	}
	template := strings.TrimSpace(os.Getenv("E2B_TEMPLATE"))
	if template == "" {
		template = "code-interpreter-v1"
	}
	return &Client{
		apiBase:    strings.TrimRight(base, "/"),
		runURL:     runURL,
		apiKey:     strings.TrimSpace(os.Getenv("E2B_API_KEY")),
		template:   template,
		runTimeout: time.Duration(timeout) * time.Second,
		httpc:      &http.Client{Timeout: 30 * time.Second},
	}
}

// Execute provisions a sandbox, runs code in it, and tears the sandbox down
// on every exit path. It never returns an error: failures come back as an
// outcome whose Error field carries the diagnostic.
func (c *Client) Execute(ctx context.Context, code string) engine.ExecutionOutcome {
	ctx, cancel := context.WithTimeout(ctx, c.runTimeout)
	defer cancel()

	id, err := c.createSandbox(ctx)
	if err != nil {
		return failedOutcome("SandboxError", fmt.Sprintf("E2B Execution Failed: %v", err))
	}
	defer c.killSandbox(id)

	out, err := c.runCode(ctx, id, code)
	if err != nil {
		return failedOutcome("ExecutionError", fmt.Sprintf("E2B Execution Failed: %v", err))
	}
	return out
}

func failedOutcome(name, value string) engine.ExecutionOutcome {
	return engine.ExecutionOutcome{
		Results: []engine.Artifact{},
		Error: &engine.ExecError{
			Name:      name,
			Value:     value,
			Traceback: strings.Split(strings.TrimSpace(string(debug.Stack())), "\n"),
		},
	}
}

func (c *Client) createSandbox(ctx context.Context) (string, error) {
	body, _ := json.Marshal(map[string]any{
		"templateID": c.template,
		"timeout":    int(c.runTimeout.Seconds()),
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/sandboxes", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return "", fmt.Errorf("sandbox create http %d: %s", resp.StatusCode, strings.TrimSpace(buf.String()))
	}
	var created struct {
		SandboxID string `json:"sandboxID"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", err
	}
	if created.SandboxID == "" {
		return "", fmt.Errorf("sandbox create returned no id")
	}
	return created.SandboxID, nil
}

// killSandbox uses its own short deadline: teardown must run even when the
// execute context already expired.
func (c *Client) killSandbox(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.apiBase+"/sandboxes/"+id, nil)
	if err != nil {
		return
	}
	req.Header.Set("X-API-Key", c.apiKey)
	if resp, err := c.httpc.Do(req); err == nil {
		resp.Body.Close()
	}
}

// runEvent is one NDJSON line from the sandbox run endpoint.
type runEvent struct {
	Type      string `json:"type"` // stdout | stderr | result | error
	Text      string `json:"text,omitempty"`
	Name      string `json:"name,omitempty"`
	Value     string `json:"value,omitempty"`
	Traceback string `json:"traceback,omitempty"`
	PNG       string `json:"png,omitempty"`
	SVG       string `json:"svg,omitempty"`
	HTML      string `json:"html,omitempty"`
}

func (c *Client) runCode(ctx context.Context, id, code string) (engine.ExecutionOutcome, error) {
	body, _ := json.Marshal(map[string]string{"code": code})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf(c.runURL, id), bytes.NewReader(body))
	if err != nil {
		return engine.ExecutionOutcome{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	// Long runs stream events past the default client timeout.
	runClient := &http.Client{Timeout: c.runTimeout}
	resp, err := runClient.Do(req)
	if err != nil {
		return engine.ExecutionOutcome{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return engine.ExecutionOutcome{}, fmt.Errorf("sandbox run http %d: %s", resp.StatusCode, strings.TrimSpace(buf.String()))
	}

	out := engine.ExecutionOutcome{Results: []engine.Artifact{}}
	var stdout, stderr []string
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var ev runEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			continue
		}
		switch ev.Type {
		case "stdout":
			stdout = append(stdout, ev.Text)
		case "stderr":
			stderr = append(stderr, ev.Text)
		case "result":
			out.Results = append(out.Results, engine.Artifact{Text: ev.Text, PNG: ev.PNG, SVG: ev.SVG, HTML: ev.HTML})
		case "error":
			out.Error = &engine.ExecError{
				Name:      ev.Name,
				Value:     ev.Value,
				Traceback: strings.Split(ev.Traceback, "\n"),
			}
		}
	}
	if err := sc.Err(); err != nil {
		return engine.ExecutionOutcome{}, err
	}
	out.Stdout = strings.Join(stdout, "\n")
	out.Stderr = strings.Join(stderr, "\n")
	return out, nil
}
