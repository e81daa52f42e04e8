// Package relay is the websocket endpoint that streams AI code generation to
// the browser: it feeds model output through the incremental code decoder and
// forwards only the newly appended suffix of the code field as it grows.
package relay

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"ibreakdevs/server/agent"
	"ibreakdevs/server/engine"
	"ibreakdevs/server/llm"
	"ibreakdevs/server/store"
)

// StreamFunc runs one streaming completion, calling emit per delta. Swapped
// out in tests for a canned stream.
type StreamFunc func(ctx context.Context, model string, msgs []llm.Message, emit func(llm.StreamEvent)) error

type Relay struct {
	store    *store.Store
	stream   StreamFunc
	upgrader websocket.Upgrader
}

func New(st *store.Store) *Relay {
	return &Relay{
		store:  st,
		stream: defaultStream,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The REST API and the websocket share an origin in production;
			// the dev frontend runs on another port.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func defaultStream(ctx context.Context, model string, msgs []llm.Message, emit func(llm.StreamEvent)) error {
	return llm.StreamMessages(ctx, model, agent.StreamSystem, msgs, llm.Options{
		StructuredSchemaName: "code_output",
		StructuredSchema:     agent.CodeSchema,
		StructuredStrict:     true,
	}, emit)
}

type startStreamMsg struct {
	Type          string           `json:"type"`
	Task          string           `json:"task"`
	History       []engine.Message `json:"history"`
	OpponentModel string           `json:"opponentModel"`
	GameID        string           `json:"gameId"`
}

type connectedMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type chunkMsg struct {
	Type  string `json:"type"`
	Chunk string `json:"chunk"`
}

type streamEndMsg struct {
	Type      string `json:"type"`
	FinalCode string `json:"finalCode"`
}

type errorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// wsConn serializes writes: gorilla permits one concurrent writer and the
// read loop, stream goroutines and handshake all send.
type wsConn struct {
	mu sync.Mutex
	c  *websocket.Conn
}

func (w *wsConn) send(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteJSON(v)
}

func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	raw, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer raw.Close()
	conn := &wsConn{c: raw}
	log.Println("client connected")
	_ = conn.send(connectedMsg{Type: "connected", Message: "WebSocket connection established"})

	// Streams outlive individual reads but not the connection.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// gen numbers the startStream requests on this connection; output from a
	// superseded stream is discarded so stale chunks are never attributed to
	// a newer round.
	var gen atomic.Uint64

	for {
		_, data, err := raw.ReadMessage()
		if err != nil {
			log.Println("client disconnected")
			return
		}
		var msg startStreamMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = conn.send(errorMsg{Type: "error", Message: "Server error processing request", Details: err.Error()})
			continue
		}
		if msg.Type != "startStream" || msg.Task == "" || msg.History == nil {
			_ = conn.send(errorMsg{Type: "error", Message: "Invalid message format"})
			continue
		}
		myGen := gen.Add(1)
		go r.runStream(ctx, conn, &gen, myGen, msg)
	}
}

func (r *Relay) runStream(ctx context.Context, conn *wsConn, gen *atomic.Uint64, myGen uint64, msg startStreamMsg) {
	model := msg.OpponentModel
	if model == "" {
		model = "gpt-4o"
	}

	// When the request names a known match, mirror the stream into it so the
	// orchestrator can gate submissions on the terminal event.
	var match *engine.Match
	var matchGen uint64
	if msg.GameID != "" {
		if m, ok := r.store.Get(msg.GameID); ok {
			g, err := m.BeginStream()
			if err != nil {
				_ = conn.send(errorMsg{Type: "error", Message: "Stream not accepted", Details: err.Error()})
				return
			}
			match = m
			matchGen = g
		}
	}

	dec := newCodeDecoder()
	sent := 0
	emit := func(ev llm.StreamEvent) {
		if gen.Load() != myGen {
			return
		}
		if ev.Refusal != "" {
			log.Printf("AI refusal delta: %s", ev.Refusal)
			_ = conn.send(errorMsg{Type: "error", Message: "AI Refusal: " + ev.Refusal})
			return
		}
		dec.Write([]byte(ev.Delta))
		code := dec.Code()
		// Hold back a trailing partial rune; it completes with the next delta.
		if n := completeUTF8(code); n > sent {
			delta := code[sent:n]
			sent = n
			if match != nil {
				match.AppendStreamChunk(matchGen, delta)
			}
			_ = conn.send(chunkMsg{Type: "aiChunk", Chunk: delta})
		}
	}

	err := r.stream(ctx, model, agent.GenerationInput(msg.History, msg.Task), emit)
	if gen.Load() != myGen {
		return
	}
	if err != nil {
		log.Printf("stream failed: %v", err)
		_ = conn.send(errorMsg{Type: "error", Message: "Server error processing request", Details: err.Error()})
		if match != nil {
			match.Fail("AI stream failed: " + err.Error())
		}
		return
	}

	final := dec.Code()
	// Flush anything still held back so chunks concatenate to the final code.
	if len(final) > sent {
		delta := final[sent:]
		if match != nil {
			match.AppendStreamChunk(matchGen, delta)
		}
		_ = conn.send(chunkMsg{Type: "aiChunk", Chunk: delta})
	}
	if match != nil {
		match.FinishStream(matchGen, final)
	}
	log.Println("stream finished")
	_ = conn.send(streamEndMsg{Type: "aiStreamEnd", FinalCode: final})
}
