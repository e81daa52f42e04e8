// server/router.go
package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ibreakdevs/server/agent"
	"ibreakdevs/server/engine"
	"ibreakdevs/server/judge"
	"ibreakdevs/server/sandbox"
	"ibreakdevs/server/store"
	"ibreakdevs/server/tasks"
)

func Router(st *store.Store, sb *sandbox.Client, ws http.Handler, maxRounds int, judgeModel string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]any{"ok": true, "activeGames": st.Len()})
	})

	r.Get("/ws", ws.ServeHTTP)

	// Start a new game: fresh id, seeded transcript, first task, round 1.
	r.Post("/api/game/start", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Language      string `json:"language"`
			OpponentModel string `json:"opponentModel"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			apiError(w, 400, "invalid JSON body", err.Error())
			return
		}
		lang := strings.ToLower(strings.TrimSpace(body.Language))
		if lang == "" {
			lang = "python"
		}
		if lang != "python" {
			apiError(w, 400, "unsupported language", "only python is supported")
			return
		}
		model := strings.TrimSpace(body.OpponentModel)
		if model == "" {
			model = "gpt-4o"
		}

		id := st.NewID()
		m := engine.New(id, lang, model, maxRounds, tasks.Next(""), agent.Seed(lang))
		st.Put(id, m)
		log.Printf("game %s started (model=%s rounds=%d)", id, model, maxRounds)
		writeJSON(w, m.Snapshot())
	})

	// Submit a round: validate, execute both sides, judge, banter, advance.
	r.Post("/api/game/submit", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			GameID     string `json:"gameId"`
			PlayerCode string `json:"playerCode"`
			AICode     string `json:"aiCode"`
			Task       string `json:"task"`
			Round      int    `json:"round"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			apiError(w, 400, "invalid JSON body", err.Error())
			return
		}
		m, ok := st.Get(body.GameID)
		if !ok {
			apiError(w, 404, "game not found", body.GameID)
			return
		}

		if err := m.Submit(body.PlayerCode, body.AICode, body.Task, body.Round); err != nil {
			status := 400
			if errors.Is(err, engine.ErrInFlight) || errors.Is(err, engine.ErrWrongState) {
				status = 409
			}
			apiError(w, status, "submission rejected", err.Error())
			return
		}

		snap := m.Snapshot()
		round := snap.CurrentRound
		ctx := req.Context()

		// Both runs in parallel; the sandbox client degrades failures into
		// outcomes, so neither branch can abort the round here.
		var playerRes, aiRes engine.ExecutionOutcome
		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); playerRes = sb.Execute(ctx, body.PlayerCode) }()
		go func() { defer wg.Done(); aiRes = sb.Execute(ctx, m.AICode()) }()
		wg.Wait()
		if err := m.SetExecuted(playerRes, aiRes); err != nil {
			apiError(w, 409, "submission rejected", err.Error())
			return
		}

		verdict, err := judge.Evaluate(ctx, judgeModel, snap.CurrentTask, body.PlayerCode, playerRes, m.AICode(), aiRes)
		if err != nil {
			log.Printf("game %s round %d: judge failed: %v", body.GameID, round, err)
			m.Fail(err.Error())
			apiError(w, 502, "judging failed", err.Error())
			return
		}
		history, err := m.RecordVerdict(verdict)
		if err != nil {
			apiError(w, 409, "submission rejected", err.Error())
			return
		}

		banter := judge.Banter(ctx, m.OpponentModel, history, verdict, round, m.Language)

		state, err := m.CompleteRound(banter, tasks.Next)
		if err != nil {
			apiError(w, 409, "submission rejected", err.Error())
			return
		}

		over := state.Status == engine.GameOver
		nextRound := state.CurrentRound
		if !over {
			nextRound++
		}
		log.Printf("game %s round %d judged: winner=%s player=%d ai=%d",
			body.GameID, round, verdict.OverallWinner, state.Scores.Player, state.Scores.AI)
		writeJSON(w, map[string]any{
			"judgeResult":    verdict,
			"playerResult":   playerRes,
			"aiResult":       aiRes,
			"aiBanter":       state.Banter,
			"nextTask":       state.CurrentTask,
			"updatedHistory": state.History,
			"nextRound":      nextRound,
			"isGameOver":     over,
			"scores":         state.Scores,
		})
	})

	// Advance results -> coding for the task staged at the end of the round.
	r.Post("/api/game/next", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			GameID string `json:"gameId"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			apiError(w, 400, "invalid JSON body", err.Error())
			return
		}
		m, ok := st.Get(body.GameID)
		if !ok {
			apiError(w, 404, "game not found", body.GameID)
			return
		}
		state, err := m.NextRound()
		if err != nil {
			apiError(w, 409, "cannot start next round", err.Error())
			return
		}
		writeJSON(w, state)
	})

	// Drop the session. The only way out of the error state.
	r.Post("/api/game/reset", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			GameID string `json:"gameId"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			apiError(w, 400, "invalid JSON body", err.Error())
			return
		}
		if body.GameID != "" {
			st.Delete(body.GameID)
			log.Printf("game %s reset", body.GameID)
		}
		writeJSON(w, map[string]any{"ok": true})
	})

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func apiError(w http.ResponseWriter, code int, msg, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	out := map[string]any{"error": msg}
	if details != "" {
		out["details"] = details
	}
	_ = json.NewEncoder(w).Encode(out)
}
