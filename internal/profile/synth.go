package profile

import (
	"context"
	"fmt"
	"strings"

	"github.com/joelkehle/grant-agency/internal/llm"
)

const mergeMaxTokens = 1000

// LLMMerger synthesizes narrative merges through a text-generation call.
type LLMMerger struct {
	caller llm.Caller
}

func NewLLMMerger(caller llm.Caller) *LLMMerger {
	return &LLMMerger{caller: caller}
}

func (m *LLMMerger) MergeNarrative(ctx context.Context, field, existing, incoming string) (string, error) {
	out, err := m.caller.Generate(ctx, "", buildMergePrompt(field, existing, incoming), mergeMaxTokens)
	if err != nil {
		return "", fmt.Errorf("narrative merge for %s: %w", field, err)
	}
	return strings.TrimSpace(out), nil
}

func buildMergePrompt(field, existing, incoming string) string {
	var b strings.Builder
	b.WriteString("You are helping merge organization profile information intelligently. You need to combine existing content with new information to create enhanced, cohesive content.\n\n")
	fmt.Fprintf(&b, "FIELD: %s\n", field)
	fmt.Fprintf(&b, "EXISTING CONTENT: %q\n", existing)
	fmt.Fprintf(&b, "NEW INFORMATION: %q\n", incoming)
	b.WriteString(`
INSTRUCTIONS:
- Analyze both the existing content and new information
- If new information expands or enhances existing content, integrate it seamlessly
- If new information conflicts with existing content, prioritize the new information but preserve valuable existing details
- If new information duplicates existing content, avoid redundancy
- Maintain a natural, professional tone
- Keep the same style and format as the existing content
- Return ONLY the enhanced merged content, no explanation

ENHANCED MERGED CONTENT:`)
	return b.String()
}
