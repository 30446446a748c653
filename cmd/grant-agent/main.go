package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joelkehle/grant-agency/internal/assistant"
	"github.com/joelkehle/grant-agency/internal/audit"
	"github.com/joelkehle/grant-agency/internal/docanalysis"
	"github.com/joelkehle/grant-agency/internal/fetch"
	"github.com/joelkehle/grant-agency/internal/grantsearch"
	"github.com/joelkehle/grant-agency/internal/llm"
	"github.com/joelkehle/grant-agency/internal/profile"
	"github.com/joelkehle/grant-agency/internal/workspace"
)

func main() {
	addr := flag.String("addr", ":8090", "HTTP listen address")
	auditPath := flag.String("audit-db", "data/grant-agent.db", "SQLite audit database path")
	flag.Parse()

	caller, err := llm.NewAnthropicCallerFromEnv()
	if err != nil {
		log.Fatal(err)
	}
	store := workspace.NewClient(requiredEnv("GRANT_WORKSPACE_URL"), os.Getenv("GRANT_WORKSPACE_API_KEY"))

	recorder, err := audit.Open(*auditPath)
	if err != nil {
		log.Fatal(err)
	}
	defer recorder.Close()

	pipeline, err := grantsearch.NewPipeline(grantsearch.PipelineConfig{
		Generator:   caller,
		Store:       store,
		Profiles:    store,
		Fetcher:     fetch.NewFallback(),
		MaxSearches: envInt("GRANT_AGENT_MAX_SEARCHES", grantsearch.DefaultMaxSearches),
	})
	if err != nil {
		log.Fatal(err)
	}

	tiers := profile.DefaultTierTable()
	engine := profile.NewEngine(tiers, profile.NewLLMMerger(caller))

	server := assistant.NewServer(assistant.Config{
		Caller:     caller,
		Profiles:   store,
		Grants:     store,
		Engine:     engine,
		Tiers:      tiers,
		Discoverer: pipeline,
		Analyzer:   docanalysis.NewAnalyzer(caller, store),
		Recorder:   recorder,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Printf("starting grant-agent addr=%s model=%s", *addr, caller.ModelName())
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

func requiredEnv(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		log.Fatalf("missing required env var %s", key)
	}
	return v
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	if n <= 0 {
		return fallback
	}
	return n
}
