// grant-discovery runs one discovery cycle from the command line and prints
// the markdown report. Useful for cron-driven searches outside the chat
// surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joelkehle/grant-agency/internal/audit"
	"github.com/joelkehle/grant-agency/internal/fetch"
	"github.com/joelkehle/grant-agency/internal/grantsearch"
	"github.com/joelkehle/grant-agency/internal/llm"
	"github.com/joelkehle/grant-agency/internal/workspace"
)

func main() {
	auditPath := flag.String("audit-db", "data/grant-agent.db", "SQLite audit database path")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall run timeout")
	noFetch := flag.Bool("no-fetch", false, "skip source-page corroboration")
	flag.Parse()

	caller, err := llm.NewAnthropicCallerFromEnv()
	if err != nil {
		log.Fatal(err)
	}
	store := workspace.NewClient(requiredEnv("GRANT_WORKSPACE_URL"), os.Getenv("GRANT_WORKSPACE_API_KEY"))

	var fetcher grantsearch.ContentFetcher
	if !*noFetch {
		fetcher = fetch.NewFallback()
	}
	pipeline, err := grantsearch.NewPipeline(grantsearch.PipelineConfig{
		Generator:   caller,
		Store:       store,
		Profiles:    store,
		Fetcher:     fetcher,
		MaxSearches: envInt("GRANT_AGENT_MAX_SEARCHES", grantsearch.DefaultMaxSearches),
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	runCtx, runCancel := context.WithTimeout(ctx, *timeout)
	defer runCancel()

	res, err := pipeline.Run(runCtx)
	if err != nil {
		log.Fatal(err)
	}

	if *auditPath != "" {
		recorder, err := audit.Open(*auditPath)
		if err != nil {
			log.Printf("audit open failed err=%v, skipping run record", err)
		} else {
			if err := recorder.RecordRun(ctx, res); err != nil {
				log.Printf("audit record failed run=%s err=%v", res.RunID, err)
			}
			recorder.Close()
		}
	}

	fmt.Println(res.ReportMarkdown)
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
