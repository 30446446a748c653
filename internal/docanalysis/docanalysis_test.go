package docanalysis

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/joelkehle/grant-agency/internal/llm"
	"github.com/joelkehle/grant-agency/internal/workspace"
)

type fakeCaller struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (f *fakeCaller) Generate(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)
	var resp string
	var err error
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return resp, err
}

func (f *fakeCaller) GenerateChat(ctx context.Context, system string, turns []llm.Turn, maxTokens int) (string, error) {
	return "", fmt.Errorf("not used")
}

func (f *fakeCaller) GenerateWithWebSearch(ctx context.Context, prompt string, maxTokens, maxSearches int) (string, error) {
	return "", fmt.Errorf("not used")
}

func (f *fakeCaller) ModelName() string { return "fake-model" }

type fakeSaver struct {
	saved *workspace.Profile
	id    string
	err   error
}

func (f *fakeSaver) SaveProfile(ctx context.Context, p workspace.Profile) (string, error) {
	f.saved = &p
	return f.id, f.err
}

func TestExtractText(t *testing.T) {
	text, err := ExtractText(Document{Name: "about.txt", Content: []byte("  We plant trees.  ")})
	if err != nil {
		t.Fatal(err)
	}
	if text != "We plant trees." {
		t.Fatalf("unexpected text %q", text)
	}

	if _, err := ExtractText(Document{Name: "deck.pdf", Content: []byte("binary")}); err == nil {
		t.Fatal("expected unsupported-type error")
	}
	if _, err := ExtractText(Document{Name: "empty.md", Content: []byte("   ")}); err == nil {
		t.Fatal("expected empty-content error")
	}
}

func TestExtractTextInvalidUTF8Reduced(t *testing.T) {
	content := append([]byte("We plant trees"), 0xff, 0xfe)
	text, err := ExtractText(Document{Name: "about.txt", Content: content})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "We plant trees") {
		t.Fatalf("expected printable text kept, got %q", text)
	}
}

func TestExtractTextCapped(t *testing.T) {
	text, err := ExtractText(Document{Name: "big.md", Content: []byte(strings.Repeat("a", perDocLimit+500))})
	if err != nil {
		t.Fatal(err)
	}
	if len(text) != perDocLimit {
		t.Fatalf("expected cap at %d, got %d", perDocLimit, len(text))
	}
}

func TestParseProfile(t *testing.T) {
	p, ok := ParseProfile("```json\n{\"profileName\": \"Forest Org\", \"location\": \"Maui\"}\n```")
	if !ok || p.ProfileName != "Forest Org" || p.Location != "Maui" {
		t.Fatalf("unexpected profile %+v ok=%v", p, ok)
	}

	if _, ok := ParseProfile("null"); ok {
		t.Fatal("expected null rejected")
	}
	if _, ok := ParseProfile(`{"location": "Maui"}`); ok {
		t.Fatal("expected nameless profile rejected")
	}
	if _, ok := ParseProfile("The documents describe a nonprofit."); ok {
		t.Fatal("expected prose rejected")
	}
}

func TestAnalyzeSavesActiveProfile(t *testing.T) {
	caller := &fakeCaller{responses: []string{
		"# Organization Analysis\n\nA reforestation nonprofit.",
		`{"profileName": "Forest Org", "missionStatement": "We plant trees."}`,
	}}
	saver := &fakeSaver{id: "p1"}
	a := NewAnalyzer(caller, saver)

	res, err := a.Analyze(context.Background(), []Document{
		{Name: "about.txt", Content: []byte("We plant trees across the islands.")},
	}, "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Analysis, "Organization Analysis") {
		t.Fatalf("unexpected analysis %q", res.Analysis)
	}
	if res.ProfileID != "p1" || res.Profile == nil || res.Profile.ProfileName != "Forest Org" {
		t.Fatalf("unexpected result %+v", res)
	}
	if saver.saved == nil || !saver.saved.Active {
		t.Fatalf("expected profile saved as active, got %+v", saver.saved)
	}
	if !strings.Contains(caller.prompts[0], "=== about.txt ===") {
		t.Fatalf("expected document block in analysis prompt")
	}
}

func TestAnalyzeFailsWhenAnalysisCallFails(t *testing.T) {
	caller := &fakeCaller{errs: []error{fmt.Errorf("api down")}}
	a := NewAnalyzer(caller, &fakeSaver{})

	_, err := a.Analyze(context.Background(), []Document{
		{Name: "about.txt", Content: []byte("We plant trees.")},
	}, "")
	if err == nil {
		t.Fatal("expected hard failure when analysis generation fails")
	}
}

func TestAnalyzeDegradesWhenExtractionFails(t *testing.T) {
	caller := &fakeCaller{
		responses: []string{"# Analysis", ""},
		errs:      []error{nil, fmt.Errorf("api down")},
	}
	saver := &fakeSaver{}
	a := NewAnalyzer(caller, saver)

	res, err := a.Analyze(context.Background(), []Document{
		{Name: "about.txt", Content: []byte("We plant trees.")},
	}, "tell me about us")
	if err != nil {
		t.Fatalf("expected analysis-only degradation, got %v", err)
	}
	if res.Analysis != "# Analysis" || res.Profile != nil {
		t.Fatalf("unexpected result %+v", res)
	}
	if saver.saved != nil {
		t.Fatalf("expected no save, got %+v", saver.saved)
	}
}

func TestAnalyzeCollectsFailedFiles(t *testing.T) {
	caller := &fakeCaller{responses: []string{"# Analysis", "null"}}
	a := NewAnalyzer(caller, &fakeSaver{})

	res, err := a.Analyze(context.Background(), []Document{
		{Name: "deck.pdf", Content: []byte("binary")},
		{Name: "about.txt", Content: []byte("We plant trees.")},
	}, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.FailedFiles) != 1 || res.FailedFiles[0] != "deck.pdf" {
		t.Fatalf("unexpected failed files %v", res.FailedFiles)
	}
	if !strings.Contains(caller.prompts[0], "couldn't extract text from these files: deck.pdf") {
		t.Fatalf("expected failure note in prompt")
	}
}

func TestAnalyzeAllFilesUnreadable(t *testing.T) {
	a := NewAnalyzer(&fakeCaller{}, &fakeSaver{})
	_, err := a.Analyze(context.Background(), []Document{
		{Name: "deck.pdf", Content: []byte("binary")},
	}, "")
	if err == nil {
		t.Fatal("expected error when nothing is extractable")
	}
}
