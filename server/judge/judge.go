// Package judge scores a finished round with an LLM and produces the round's
// banter. Judging failures are fatal to the round; banter failures never are.
package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ibreakdevs/server/agent"
	"ibreakdevs/server/engine"
	"ibreakdevs/server/llm"
)

// BanterFallback is returned whenever the banter call fails.
const BanterFallback = "... (CodeBot 5000 is speechless)"

const callBudget = 60 * time.Second

// Error is a judge failure. The orchestrator treats it as fatal to the
// round; there is no retry at this layer.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to get judgment: %s: %v", e.Reason, e.Err)
	}
	return "failed to get judgment: " + e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

const judgeSystem = `You are a fair and expert judge for a programming duel game called IBreakDevs. Evaluate the human player's and the AI opponent's Python code based on the given task, their execution results, and the following criteria:
1.  **Correctness & Output:** Does the code solve the task accurately AND produce the required output (check stdout)? Penalize errors (stderr) or missing/incorrect required output heavily.
2.  **Efficiency:** Is the code reasonably efficient? (Subjective, focus on major inefficiencies if apparent).
3.  **Style/Readability:** Is the code clean, well-formatted, and easy to understand? (Adhere to basic Python style like PEP 8).
Provide constructive feedback for both participants. Assign scores from 1 (poor) to 10 (excellent) for each criterion. Calculate the total score for each. Declare an overall winner ('player', 'ai', or 'tie') based on the total scores (higher score wins, tie if equal). Provide brief reasoning for your decision. Respond ONLY with the JSON object matching the provided schema.`

func scoreTriple(who string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"correctness": map[string]any{"type": "integer", "description": "Score 1-10 for correctness."},
			"efficiency":  map[string]any{"type": "integer", "description": "Score 1-10 for efficiency."},
			"style":       map[string]any{"type": "integer", "description": "Score 1-10 for code style/readability."},
			"total":       map[string]any{"type": "integer", "description": "Total score for the " + who + "."},
		},
		"required":             []string{"correctness", "efficiency", "style", "total"},
		"additionalProperties": false,
	}
}

var verdictSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"feedbackPlayer": map[string]any{"type": "string", "description": "Constructive feedback for the human player's code."},
		"feedbackAI":     map[string]any{"type": "string", "description": "Feedback for the AI opponent's code."},
		"pointsPlayer":   scoreTriple("player"),
		"pointsAI":       scoreTriple("AI"),
		"overallWinner": map[string]any{
			"type":        "string",
			"enum":        []string{"player", "ai", "tie"},
			"description": "Declare the winner of the round ('player', 'ai', or 'tie').",
		},
		"reasoning": map[string]any{"type": "string", "description": "Brief reasoning for the scores and winner declaration."},
	},
	"required":             []string{"feedbackPlayer", "feedbackAI", "pointsPlayer", "pointsAI", "overallWinner", "reasoning"},
	"additionalProperties": false,
}

// FormatOutcome renders an execution outcome the way the judge sees it:
// stdout, stderr, the error name/value, the last 5 traceback lines, and a
// count of non-text artifacts.
func FormatOutcome(res engine.ExecutionOutcome) string {
	var parts []string
	if res.Stdout != "" {
		parts = append(parts, "STDOUT:\n"+res.Stdout)
	}
	if res.Stderr != "" {
		parts = append(parts, "STDERR:\n"+res.Stderr)
	}
	if res.Error != nil {
		parts = append(parts, fmt.Sprintf("ERROR: %s: %s", res.Error.Name, res.Error.Value))
		if tb := res.Error.Traceback; len(tb) > 0 {
			if len(tb) > 5 {
				tb = tb[len(tb)-5:]
			}
			parts = append(parts, "TRACEBACK (last 5 lines):\n"+strings.Join(tb, "\n"))
		}
	}
	nonText := 0
	for _, a := range res.Results {
		if !a.IsText() {
			nonText++
		}
	}
	if nonText > 0 {
		parts = append(parts, fmt.Sprintf("%d non-text result(s) generated (e.g., plots).", nonText))
	}
	if len(parts) == 0 {
		return "(No output or error)"
	}
	return strings.Join(parts, "\n---\n")
}

func buildPrompt(task, playerCode string, playerRes engine.ExecutionOutcome, aiCode string, aiRes engine.ExecutionOutcome) string {
	return fmt.Sprintf("Judging Round:\nTask:\n```\n%s\n```\nPlayer Code:\n```python\n%s\n```\nPlayer Execution Result:\n```\n%s\n```\nAI Code:\n```python\n%s\n```\nAI Execution Result:\n```\n%s\n```\nPlease provide your judgment based on the criteria.",
		task, playerCode, FormatOutcome(playerRes), aiCode, FormatOutcome(aiRes))
}

// Evaluate judges one round. model is the judge model, not the opponent.
func Evaluate(ctx context.Context, model, task, playerCode string, playerRes engine.ExecutionOutcome, aiCode string, aiRes engine.ExecutionOutcome) (engine.Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, callBudget)
	defer cancel()

	text, err := llm.CompleteText(ctx, model, judgeSystem,
		buildPrompt(task, playerCode, playerRes, aiCode, aiRes),
		llm.Options{
			StructuredSchemaName: "duel_judgment",
			StructuredSchema:     verdictSchema,
			StructuredStrict:     true,
		})
	if err != nil {
		if errors.Is(err, llm.ErrRefusal) {
			return engine.Verdict{}, &Error{Reason: "judge LLM refused", Err: err}
		}
		return engine.Verdict{}, &Error{Reason: "judge LLM call failed", Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return engine.Verdict{}, &Error{Reason: "judge LLM response did not contain valid text output"}
	}

	var v engine.Verdict
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return engine.Verdict{}, &Error{Reason: "judge response was not valid JSON", Err: err}
	}
	if v.OverallWinner == "" {
		return engine.Verdict{}, &Error{Reason: "parsed judge result is invalid or missing required fields"}
	}
	return v, nil
}

// Banter asks the opponent persona for its round reaction. It never fails:
// any error degrades to the fixed fallback line, because banter is cosmetic
// and must not block round progression.
func Banter(ctx context.Context, model string, history []engine.Message, v engine.Verdict, round int, language string) string {
	ctx, cancel := context.WithTimeout(ctx, callBudget)
	defer cancel()

	msgs := agent.ToChatMessages(history)
	msgs = append(msgs, llm.Message{Role: "user", Content: "Provide your reaction banter for the round."})

	maxTok := 100
	text, err := llm.CompleteMessages(ctx, model, agent.BanterSystem(v, round, language), msgs, llm.Options{MaxOutputTokens: &maxTok})
	if err != nil {
		return BanterFallback
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "..."
	}
	return text
}
