// Package docanalysis turns uploaded organization documents into a readable
// analysis plus a structured profile saved to the workspace.
package docanalysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/joelkehle/grant-agency/internal/llm"
	"github.com/joelkehle/grant-agency/internal/workspace"
)

const (
	// perDocLimit bounds each document's contribution to the prompt.
	perDocLimit = 15000

	analysisMaxTokens   = 3000
	extractionMaxTokens = 1500
)

// Document is one uploaded file.
type Document struct {
	Name    string
	Content []byte
}

// Result is one analysis round: the conversational analysis, the structured
// profile (when one could be extracted and saved), and the files that could
// not be read.
type Result struct {
	Analysis    string
	Profile     *workspace.Profile
	ProfileID   string
	FailedFiles []string
}

// ProfileSaver is the slice of the workspace store the analyzer writes to.
type ProfileSaver interface {
	SaveProfile(ctx context.Context, p workspace.Profile) (string, error)
}

type Analyzer struct {
	caller llm.Caller
	store  ProfileSaver
}

func NewAnalyzer(caller llm.Caller, store ProfileSaver) *Analyzer {
	return &Analyzer{caller: caller, store: store}
}

// Analyze extracts text from every document, produces the conversational
// analysis, then attempts structured profile extraction and saves the result
// as the active profile. Profile extraction failure degrades to an
// analysis-only result.
func (a *Analyzer) Analyze(ctx context.Context, docs []Document, userMessage string) (Result, error) {
	if len(docs) == 0 {
		return Result{}, fmt.Errorf("no documents provided")
	}
	if userMessage == "" {
		userMessage = "Please analyze these documents to learn about my organization."
	}

	var combined strings.Builder
	var failed []string
	for _, doc := range docs {
		text, err := ExtractText(doc)
		if err != nil {
			log.Printf("docanalysis: extraction failed file=%s err=%v", doc.Name, err)
			failed = append(failed, doc.Name)
			continue
		}
		fmt.Fprintf(&combined, "\n\n=== %s ===\n%s", doc.Name, text)
	}
	if combined.Len() == 0 {
		return Result{FailedFiles: failed}, fmt.Errorf("no text could be extracted from %d document(s)", len(docs))
	}

	analysis, err := a.caller.Generate(ctx, "", buildAnalysisContent(userMessage, combined.String(), failed), analysisMaxTokens)
	if err != nil {
		return Result{FailedFiles: failed}, fmt.Errorf("document analysis: %w", err)
	}
	res := Result{Analysis: strings.TrimSpace(analysis), FailedFiles: failed}

	raw, err := a.caller.Generate(ctx, "", buildExtractionContent(combined.String()), extractionMaxTokens)
	if err != nil {
		log.Printf("docanalysis: profile extraction failed err=%v", err)
		return res, nil
	}
	profile, ok := ParseProfile(raw)
	if !ok {
		log.Printf("docanalysis: profile extraction returned no structured data")
		return res, nil
	}
	profile.Active = true
	id, err := a.store.SaveProfile(ctx, profile)
	if err != nil {
		log.Printf("docanalysis: profile save failed err=%v", err)
		return res, nil
	}
	res.Profile = &profile
	res.ProfileID = id
	log.Printf("docanalysis: profile saved id=%s name=%s", id, profile.ProfileName)
	return res, nil
}

// ExtractText reads a document's text. Plain-text and markdown files are
// decoded directly; anything else is unsupported. Invalid UTF-8 is reduced to
// its printable runes rather than rejected, since exported documents often
// carry stray bytes.
func ExtractText(doc Document) (string, error) {
	ext := strings.ToLower(filepath.Ext(doc.Name))
	if ext != ".txt" && ext != ".md" {
		return "", fmt.Errorf("unsupported file %s: only .txt and .md are supported", doc.Name)
	}
	text := string(doc.Content)
	if !utf8.ValidString(text) {
		text = printableOnly(text)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("no text content in %s", doc.Name)
	}
	if len(text) > perDocLimit {
		text = text[:perDocLimit]
	}
	return text, nil
}

func printableOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == utf8.RuneError {
			continue
		}
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseProfile decodes the structured-extraction completion, tolerating code
// fences and truncated JSON. ok is false when no usable profile came back.
func ParseProfile(raw string) (workspace.Profile, bool) {
	cleaned := llm.StripCodeFences(raw)
	if cleaned == "" || strings.EqualFold(cleaned, "null") || !strings.HasPrefix(cleaned, "{") {
		return workspace.Profile{}, false
	}
	var p workspace.Profile
	if err := json.Unmarshal([]byte(cleaned), &p); err != nil {
		recovered, ok := llm.RecoverObject(cleaned)
		if !ok {
			return workspace.Profile{}, false
		}
		if err := json.Unmarshal([]byte(recovered), &p); err != nil {
			return workspace.Profile{}, false
		}
	}
	if strings.TrimSpace(p.ProfileName) == "" {
		return workspace.Profile{}, false
	}
	return p, true
}

func buildAnalysisContent(userMessage, combined string, failed []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The user said: %q\n\nHere are the documents they uploaded:\n%s\n", userMessage, combined)
	if len(failed) > 0 {
		fmt.Fprintf(&b, "\nNote: I couldn't extract text from these files: %s. Please mention this to the user.\n", strings.Join(failed, ", "))
	}
	b.WriteString("\n")
	b.WriteString(analysisPrompt)
	return b.String()
}

func buildExtractionContent(combined string) string {
	return "Here are the organization's documents:\n" + combined + "\n\n" + profileExtractionPrompt
}
