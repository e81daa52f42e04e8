package engine

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Submit rejections. These are user-visible and must not change match state.
var (
	ErrEmptyCode    = errors.New("cannot submit empty code")
	ErrStreamOpen   = errors.New("please wait for the AI opponent to finish")
	ErrNoAICode     = errors.New("AI code is not available for submission")
	ErrInFlight     = errors.New("a submission is already being processed")
	ErrWrongState   = errors.New("operation not allowed in current state")
	ErrTaskMismatch = errors.New("submitted task does not match the current round")
)

// Match is the root aggregate for one duel. All mutation goes through its
// methods; the mutex is the single write gate (handlers and the relay run on
// separate goroutines).
type Match struct {
	mu sync.Mutex

	ID            string
	Language      string
	OpponentModel string
	MaxRounds     int

	status         Status
	round          int
	task           string
	playerCode     string
	aiCodeStreamed string
	aiCodeFinal    string
	streamOpen     bool
	generation     uint64
	playerResult   *ExecutionOutcome
	aiResult       *ExecutionOutcome
	verdict        *Verdict
	banter         string
	scores         Scores
	history        []Message
	errorDetail    string
}

// State is a point-in-time copy of a Match, safe to serialize.
type State struct {
	GameID         string            `json:"gameId"`
	Status         Status            `json:"status"`
	Language       string            `json:"language"`
	OpponentModel  string            `json:"opponentModel"`
	CurrentRound   int               `json:"currentRound"`
	CurrentTask    string            `json:"currentTask"`
	PlayerCode     string            `json:"playerCode"`
	AICodeStreamed string            `json:"aiCodeStreamed"`
	AICodeFinal    string            `json:"aiCodeFinal"`
	PlayerResult   *ExecutionOutcome `json:"playerExecutionResult"`
	AIResult       *ExecutionOutcome `json:"aiExecutionResult"`
	Verdict        *Verdict          `json:"judgeOutput"`
	Banter         string            `json:"aiBanter"`
	Scores         Scores            `json:"scores"`
	History        []Message         `json:"llmConversationHistory"`
	ErrorDetails   string            `json:"errorDetails"`
}

// New creates a match already in the coding state for round 1: setup and
// generating_task are transient inside the start call, nothing can observe
// them from outside.
func New(id, language, opponentModel string, maxRounds int, firstTask string, seed []Message) *Match {
	if maxRounds < 1 {
		maxRounds = 1
	}
	return &Match{
		ID:            id,
		Language:      language,
		OpponentModel: opponentModel,
		MaxRounds:     maxRounds,
		status:        Coding,
		round:         1,
		task:          firstTask,
		history:       append([]Message{}, seed...),
	}
}

func (m *Match) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Match) snapshotLocked() State {
	s := State{
		GameID:         m.ID,
		Status:         m.status,
		Language:       m.Language,
		OpponentModel:  m.OpponentModel,
		CurrentRound:   m.round,
		CurrentTask:    m.task,
		PlayerCode:     m.playerCode,
		AICodeStreamed: m.aiCodeStreamed,
		AICodeFinal:    m.aiCodeFinal,
		Banter:         m.banter,
		Scores:         m.scores,
		History:        append([]Message{}, m.history...),
		ErrorDetails:   m.errorDetail,
	}
	if m.playerResult != nil {
		r := *m.playerResult
		s.PlayerResult = &r
	}
	if m.aiResult != nil {
		r := *m.aiResult
		s.AIResult = &r
	}
	// The verdict is staged during judging; snapshots expose it only once
	// the round has actually closed.
	if m.verdict != nil && (m.status == Results || m.status == GameOver) {
		v := *m.verdict
		s.Verdict = &v
	}
	return s
}

// BeginStream opens a new AI generation stream for the current round and
// returns its generation number. Any previous stream is superseded: chunks
// carrying an older generation are dropped on arrival.
func (m *Match) BeginStream() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != Coding {
		return 0, fmt.Errorf("%w: cannot stream while %s", ErrWrongState, m.status)
	}
	m.generation++
	m.streamOpen = true
	m.aiCodeStreamed = ""
	m.aiCodeFinal = ""
	return m.generation, nil
}

// AppendStreamChunk appends a code delta from stream gen. Returns false when
// the chunk belongs to a superseded stream and was discarded.
func (m *Match) AppendStreamChunk(gen uint64, chunk string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation || !m.streamOpen {
		return false
	}
	m.aiCodeStreamed += chunk
	return true
}

// FinishStream records the terminal code for stream gen and closes it.
func (m *Match) FinishStream(gen uint64, finalCode string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation || !m.streamOpen {
		return false
	}
	m.streamOpen = false
	m.aiCodeFinal = finalCode
	return true
}

// Submit validates a player submission and, if accepted, moves the match to
// executing. clientAICode is the final AI code as seen by the client; it is
// only adopted when the server never observed the stream itself.
func (m *Match) Submit(playerCode, clientAICode, task string, round int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.status {
	case Executing, Judging:
		return ErrInFlight
	case Coding:
	default:
		return fmt.Errorf("%w: cannot submit while %s", ErrWrongState, m.status)
	}
	if strings.TrimSpace(playerCode) == "" {
		return ErrEmptyCode
	}
	if m.streamOpen {
		return ErrStreamOpen
	}
	if m.aiCodeFinal == "" && clientAICode == "" {
		return ErrNoAICode
	}
	if task != "" && task != m.task {
		return ErrTaskMismatch
	}
	if round != 0 && round != m.round {
		return ErrTaskMismatch
	}
	// All checks passed; only now may state change.
	if m.aiCodeFinal == "" {
		m.aiCodeFinal = clientAICode
	}
	m.playerCode = playerCode
	m.status = Executing
	return nil
}

// AICode returns the final AI code for the round. Valid only after Submit.
func (m *Match) AICode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.aiCodeFinal
}

// SetExecuted stores both execution outcomes and advances to judging.
func (m *Match) SetExecuted(playerRes, aiRes ExecutionOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != Executing {
		return fmt.Errorf("%w: not executing", ErrWrongState)
	}
	m.playerResult = &playerRes
	m.aiResult = &aiRes
	m.status = Judging
	return nil
}

// RecordVerdict stores the judge output and appends the AI's code plus the
// round summary to the transcript. It returns a copy of the transcript for
// the banter call; status stays judging until CompleteRound.
func (m *Match) RecordVerdict(v Verdict) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != Judging {
		return nil, fmt.Errorf("%w: not judging", ErrWrongState)
	}
	m.verdict = &v
	m.history = append(m.history,
		Message{Role: RoleAssistant, Content: m.aiCodeFinal},
		Message{Role: RoleSystem, Content: roundSummary(m.round, v)},
	)
	return append([]Message{}, m.history...), nil
}

func roundSummary(round int, v Verdict) string {
	return fmt.Sprintf(
		"Round %d Results:\nPlayer Score: %d (Correctness: %d, Efficiency: %d, Style: %d)\nAI Score: %d (Correctness: %d, Efficiency: %d, Style: %d)\nWinner: %s\nJudge Reasoning: %s\nPlayer Feedback: %s\nAI Feedback: %s",
		round,
		v.PointsPlayer.Total, v.PointsPlayer.Correctness, v.PointsPlayer.Efficiency, v.PointsPlayer.Style,
		v.PointsAI.Total, v.PointsAI.Correctness, v.PointsAI.Efficiency, v.PointsAI.Style,
		strings.ToUpper(string(v.OverallWinner)),
		v.Reasoning, v.FeedbackPlayer, v.FeedbackAI,
	)
}

// CompleteRound appends banter, accumulates scores, and moves to results or
// game_over. nextTask picks the following task excluding the one just played;
// it is not consulted when the round cap is reached.
func (m *Match) CompleteRound(banter string, nextTask func(exclude string) string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != Judging || m.verdict == nil {
		return State{}, fmt.Errorf("%w: no verdict to complete round with", ErrWrongState)
	}
	m.banter = banter
	m.history = append(m.history, Message{Role: RoleAssistant, Content: banter})
	m.scores.Player += m.verdict.PointsPlayer.Total
	m.scores.AI += m.verdict.PointsAI.Total

	if m.round >= m.MaxRounds {
		m.status = GameOver
		m.task = ""
		return m.snapshotLocked(), nil
	}
	next := nextTask(m.task)
	m.task = next
	m.history = append(m.history, Message{Role: RoleUser, Content: "Solve this task: " + next})
	m.status = Results
	return m.snapshotLocked(), nil
}

// NextRound clears the per-round transient fields and returns to coding for
// the task staged by CompleteRound. The transcript is kept: it is the
// conversational memory for the next generation call.
func (m *Match) NextRound() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != Results {
		return State{}, fmt.Errorf("%w: next round only from results", ErrWrongState)
	}
	if m.task == "" {
		return State{}, errors.New("could not start next round: task missing")
	}
	m.round++
	m.playerCode = ""
	m.aiCodeStreamed = ""
	m.aiCodeFinal = ""
	m.playerResult = nil
	m.aiResult = nil
	m.verdict = nil
	m.banter = ""
	m.status = Coding
	return m.snapshotLocked(), nil
}

// Fail moves the match into the absorbing error state. Only a full reset
// (a fresh match) recovers.
func (m *Match) Fail(detail string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = Errored
	m.errorDetail = detail
}

func (m *Match) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}
