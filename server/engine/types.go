package engine

type Status string

const (
	Idle           Status = "idle"
	Setup          Status = "setup"
	GeneratingTask Status = "generating_task"
	Coding         Status = "coding"
	Executing      Status = "executing"
	Judging        Status = "judging"
	Results        Status = "results"
	GameOver       Status = "game_over"
	Errored        Status = "error"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Winner string

const (
	WinnerPlayer Winner = "player"
	WinnerAI     Winner = "ai"
	WinnerTie    Winner = "tie"
)

// Points is the per-criterion score triple the judge assigns to one side.
// Each criterion is in [1,10]; Total is their sum.
type Points struct {
	Correctness int `json:"correctness"`
	Efficiency  int `json:"efficiency"`
	Style       int `json:"style"`
	Total       int `json:"total"`
}

type Verdict struct {
	FeedbackPlayer string `json:"feedbackPlayer"`
	FeedbackAI     string `json:"feedbackAI"`
	PointsPlayer   Points `json:"pointsPlayer"`
	PointsAI       Points `json:"pointsAI"`
	OverallWinner  Winner `json:"overallWinner"`
	Reasoning      string `json:"reasoning,omitempty"`
}

// ExecError mirrors the structured error the sandbox reports for a failed run.
type ExecError struct {
	Name      string   `json:"name"`
	Value     string   `json:"value"`
	Traceback []string `json:"traceback"`
}

// Artifact is one rich result from a run: displayable text, or an opaque
// rendering like a plot.
type Artifact struct {
	Text string `json:"text,omitempty"`
	PNG  string `json:"png,omitempty"`
	SVG  string `json:"svg,omitempty"`
	HTML string `json:"html,omitempty"`
}

func (a Artifact) IsText() bool { return a.Text != "" }

type ExecutionOutcome struct {
	Stdout  string     `json:"stdout"`
	Stderr  string     `json:"stderr"`
	Error   *ExecError `json:"error,omitempty"`
	Results []Artifact `json:"results"`
}

type Scores struct {
	Player int `json:"player"`
	AI     int `json:"ai"`
}
