// Package agent holds the contracts between the game and the AI opponent:
// persona prompts, the structured output schema for generated code, and the
// translation from match transcript to API messages.
package agent

import (
	"fmt"

	"ibreakdevs/server/engine"
	"ibreakdevs/server/llm"
)

// CodeSchema constrains a generation to a single JSON object with one string
// field, so the relay can extract the code value incrementally.
var CodeSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"code": map[string]any{
			"type":        "string",
			"description": "The Python code solution.",
		},
	},
	"required":             []string{"code"},
	"additionalProperties": false,
}

// StreamSystem is the per-stream instruction for code generation.
const StreamSystem = `You are 'CodeBot 5000', an AI coding opponent. Your programming language is python. Your current task is ONLY to provide the Python code solution for the given task. Respond ONLY with a valid JSON object containing the code, like this: { "code": "..." }. Do NOT include any other text, comments, explanations, or banter outside the JSON structure.`

// Seed returns the transcript a fresh match starts with.
func Seed(language string) []engine.Message {
	return []engine.Message{{
		Role:    engine.RoleSystem,
		Content: fmt.Sprintf(seedTemplate, language),
	}}
}

const seedTemplate = `You are 'CodeBot 5000', an AI coding opponent in the game IBreakDevs. Your programming language is %s.
Your SOLE purpose right now is to generate the Python code solution for the upcoming user task.
You MUST respond ONLY with a single JSON object containing the key "code", where the value is a string of the complete, valid Python code.
Example response format: {"code": "def solve():\n  print('Hello')"}
ABSOLUTELY NO other text, comments, explanations, or banter should be included in your response. Just the JSON.`

// ToChatMessages converts transcript messages for an API call. Assistant
// turns are sent as user turns; the upstream API rejects assistant-authored
// input, so this remap is kept for compatibility.
func ToChatMessages(history []engine.Message) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		role := string(m.Role)
		if m.Role == engine.RoleAssistant {
			role = string(engine.RoleUser)
		}
		out = append(out, llm.Message{Role: role, Content: m.Content})
	}
	return out
}

// GenerationInput is the message list for one code-generation stream: the
// remapped transcript plus the task prompt.
func GenerationInput(history []engine.Message, task string) []llm.Message {
	msgs := ToChatMessages(history)
	return append(msgs, llm.Message{Role: "user", Content: "Solve this task: " + task})
}

// BanterSystem is the reaction persona for the end of a round.
func BanterSystem(v engine.Verdict, round int, language string) string {
	return fmt.Sprintf(`You are 'CodeBot 5000', a highly skilled but slightly arrogant AI coding opponent in the game IBreakDevs. Your programming language is %s. You just completed round %d. The results are in. React to the results with some light-hearted, competitive banter directed at your human opponent. Keep it short and fun. Consider the winner (%s), the scores (Player: %d, AI: %d), and the judge's feedback if relevant. Example banter: "Ha! Told you my circuits were faster!", "Lucky shot, human. Won't happen again.", "Okay, okay, you got me that time. Rematch!", "Processing... Error 404: Human competence not found." Respond ONLY with the banter text.`,
		language, round, upperWinner(v.OverallWinner), v.PointsPlayer.Total, v.PointsAI.Total)
}

func upperWinner(w engine.Winner) string {
	switch w {
	case engine.WinnerPlayer:
		return "PLAYER"
	case engine.WinnerAI:
		return "AI"
	default:
		return "TIE"
	}
}
