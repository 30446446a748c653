// analyze-docs analyzes organization documents from the command line and
// saves the extracted profile as the active one.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joelkehle/grant-agency/internal/docanalysis"
	"github.com/joelkehle/grant-agency/internal/llm"
	"github.com/joelkehle/grant-agency/internal/workspace"
)

func main() {
	message := flag.String("message", "", "optional note to accompany the documents")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall analysis timeout")
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatal("usage: analyze-docs [flags] file.txt [file.md ...]")
	}

	caller, err := llm.NewAnthropicCallerFromEnv()
	if err != nil {
		log.Fatal(err)
	}
	store := workspace.NewClient(requiredEnv("GRANT_WORKSPACE_URL"), os.Getenv("GRANT_WORKSPACE_API_KEY"))
	analyzer := docanalysis.NewAnalyzer(caller, store)

	var docs []docanalysis.Document
	for _, path := range flag.Args() {
		content, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("reading %s: %v", path, err)
		}
		docs = append(docs, docanalysis.Document{Name: filepath.Base(path), Content: content})
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	runCtx, runCancel := context.WithTimeout(ctx, *timeout)
	defer runCancel()

	res, err := analyzer.Analyze(runCtx, docs, *message)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(res.Analysis)
	if res.ProfileID != "" {
		log.Printf("profile saved id=%s", res.ProfileID)
	}
	if len(res.FailedFiles) > 0 {
		log.Printf("could not extract text from: %s", strings.Join(res.FailedFiles, ", "))
	}
}

func requiredEnv(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		log.Fatalf("missing required env var %s", key)
	}
	return v
}
