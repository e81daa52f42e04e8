package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"ibreakdevs/server/relay"
	"ibreakdevs/server/sandbox"
	"ibreakdevs/server/store"
)

//
// ===== bootstrap =====
//

// Tries: env var file, ./secrets/openai_api_key.txt, ./server/openai_api_key.txt,
// ./openai_api_key.txt, /app/server/openai_api_key.txt (in container), and /run/secrets/openai_api_key.
func loadAPIKeyFromSecret() {
	if os.Getenv("OPENAI_API_KEY") != "" {
		return
	}
	var candidates []string
	if p := os.Getenv("OPENAI_API_KEY_FILE"); strings.TrimSpace(p) != "" {
		candidates = append(candidates, p)
	}
	candidates = append(candidates,
		"./secrets/openai_api_key.txt",
		"server/openai_api_key.txt",
		"./server/openai_api_key.txt",
		"./openai_api_key.txt",
		"/app/server/openai_api_key.txt",
		"/run/secrets/openai_api_key",
	)
	for _, path := range candidates {
		if b, err := os.ReadFile(path); err == nil {
			key := strings.TrimSpace(string(b))
			if key != "" {
				os.Setenv("OPENAI_API_KEY", key)
				return
			}
		}
	}
}

func mustEnv(keys ...string) {
	for _, k := range keys {
		if os.Getenv(k) == "" {
			log.Fatalf("Missing required env var %s. Put it in .env (dev) or set it on the host (prod).", k)
		}
	}
}
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
func atoiDef(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	_ = godotenv.Load()

	// Load API key from a file if present (before mustEnv)
	loadAPIKeyFromSecret()
	mustEnv("OPENAI_API_KEY", "E2B_API_KEY")

	port := getenv("PORT", "8080")
	maxRounds := atoiDef(os.Getenv("MAX_ROUNDS"), 5)
	judgeModel := getenv("JUDGE_MODEL", "gpt-4o")

	st := store.New()
	sb := sandbox.NewFromEnv()
	ws := relay.New(st)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: Router(st, sb, ws, maxRounds, judgeModel),
		// No Read/WriteTimeout: /ws holds long-lived streaming connections.
		ReadHeaderTimeout: 10 * time.Second,
	}

	go watchSignals(srv)

	log.Printf("listening on http://localhost:%s (Ctrl+C to stop)", port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
	log.Println("server stopped")
}

func watchSignals(srv *http.Server) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
