package judge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ibreakdevs/server/engine"
)

func fakeLLM(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("OPENAI_API_BASE", srv.URL)
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("LLM_PROVIDER", "openai")
}

// chatReply wraps content in a chat-completions response body.
func chatReply(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return string(b)
}

func sampleVerdict() string {
	b, _ := json.Marshal(engine.Verdict{
		FeedbackPlayer: "solid",
		FeedbackAI:     "verbose",
		PointsPlayer:   engine.Points{Correctness: 9, Efficiency: 8, Style: 8, Total: 25},
		PointsAI:       engine.Points{Correctness: 7, Efficiency: 7, Style: 6, Total: 20},
		OverallWinner:  engine.WinnerPlayer,
		Reasoning:      "player output was correct",
	})
	return string(b)
}

func TestFormatOutcome(t *testing.T) {
	cases := []struct {
		name string
		res  engine.ExecutionOutcome
		want []string
	}{
		{
			name: "empty",
			res:  engine.ExecutionOutcome{},
			want: []string{"(No output or error)"},
		},
		{
			name: "stdout and stderr",
			res:  engine.ExecutionOutcome{Stdout: "42", Stderr: "warning"},
			want: []string{"STDOUT:\n42", "STDERR:\nwarning"},
		},
		{
			name: "error with long traceback keeps last five lines",
			res: engine.ExecutionOutcome{Error: &engine.ExecError{
				Name:      "ValueError",
				Value:     "bad input",
				Traceback: []string{"l1", "l2", "l3", "l4", "l5", "l6", "l7"},
			}},
			want: []string{"ERROR: ValueError: bad input", "TRACEBACK (last 5 lines):\nl3\nl4\nl5\nl6\nl7"},
		},
		{
			name: "non-text artifacts counted",
			res: engine.ExecutionOutcome{Results: []engine.Artifact{
				{Text: "shown"}, {PNG: "base64"}, {SVG: "<svg/>"},
			}},
			want: []string{"2 non-text result(s) generated (e.g., plots)."},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FormatOutcome(tc.res)
			for _, w := range tc.want {
				if !strings.Contains(got, w) {
					t.Fatalf("output %q missing %q", got, w)
				}
			}
		})
	}
	if got := FormatOutcome(engine.ExecutionOutcome{Error: &engine.ExecError{
		Name: "E", Value: "v", Traceback: []string{"a", "b", "c", "d", "e", "f"},
	}}); strings.Contains(got, "a\n") {
		t.Fatalf("traceback not truncated to last 5: %q", got)
	}
}

func TestEvaluateParsesVerdict(t *testing.T) {
	fakeLLM(t, func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if payload["response_format"] == nil {
			t.Errorf("judge call missing structured output format")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatReply(sampleVerdict())))
	})

	v, err := Evaluate(context.Background(), "gpt-4o", "task", "print(1)",
		engine.ExecutionOutcome{Stdout: "1"}, "print(2)", engine.ExecutionOutcome{Stdout: "2"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if v.OverallWinner != engine.WinnerPlayer || v.PointsPlayer.Total != 25 {
		t.Fatalf("verdict = %+v", v)
	}
}

func TestEvaluateRejectsMissingWinner(t *testing.T) {
	fakeLLM(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatReply(`{"feedbackPlayer": "ok", "feedbackAI": "ok"}`)))
	})

	_, err := Evaluate(context.Background(), "gpt-4o", "task", "c1",
		engine.ExecutionOutcome{}, "c2", engine.ExecutionOutcome{})
	var jerr *Error
	if !errors.As(err, &jerr) {
		t.Fatalf("got %v, want *judge.Error", err)
	}
	if !strings.Contains(jerr.Reason, "invalid or missing required fields") {
		t.Fatalf("Reason = %q", jerr.Reason)
	}
}

func TestEvaluateFailsOnTransportError(t *testing.T) {
	fakeLLM(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := Evaluate(context.Background(), "gpt-4o", "task", "c1",
		engine.ExecutionOutcome{}, "c2", engine.ExecutionOutcome{})
	var jerr *Error
	if !errors.As(err, &jerr) {
		t.Fatalf("got %v, want *judge.Error", err)
	}
}

func TestEvaluateFailsOnNonJSONVerdict(t *testing.T) {
	fakeLLM(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatReply("I think the player won!")))
	})

	_, err := Evaluate(context.Background(), "gpt-4o", "task", "c1",
		engine.ExecutionOutcome{}, "c2", engine.ExecutionOutcome{})
	var jerr *Error
	if !errors.As(err, &jerr) {
		t.Fatalf("got %v, want *judge.Error", err)
	}
}

func TestBanterReturnsTrimmedText(t *testing.T) {
	fakeLLM(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatReply("  Ha! Told you my circuits were faster!  ")))
	})

	got := Banter(context.Background(), "gpt-4o", nil, engine.Verdict{OverallWinner: engine.WinnerAI}, 1, "python")
	if got != "Ha! Told you my circuits were faster!" {
		t.Fatalf("Banter = %q", got)
	}
}

func TestBanterFallsBackOnFailure(t *testing.T) {
	fakeLLM(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})

	got := Banter(context.Background(), "gpt-4o", nil, engine.Verdict{OverallWinner: engine.WinnerTie}, 2, "python")
	if got != BanterFallback {
		t.Fatalf("Banter = %q, want fallback", got)
	}
}

func TestBanterEmptyResponseBecomesEllipsis(t *testing.T) {
	fakeLLM(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatReply("   ")))
	})

	got := Banter(context.Background(), "gpt-4o", nil, engine.Verdict{}, 1, "python")
	if got != "..." {
		t.Fatalf("Banter = %q, want ellipsis", got)
	}
}
