package profile

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"
)

// Merger synthesizes an existing narrative and new content into one passage.
// Implementations may fail or degenerate; the engine always has a
// deterministic fallback, so a Merger error is never a hard failure.
type Merger interface {
	MergeNarrative(ctx context.Context, field, existing, incoming string) (string, error)
}

// Result is the outcome of applying one batch of extracted updates.
// Committed holds the values to persist. MergedNarratives tracks the post-merge
// text of narrative fields separately, because callers keeping an in-session
// copy of the profile must apply the merged value, not the raw extracted one.
type Result struct {
	Committed        map[string]FieldValue
	MergedNarratives map[string]string
	Warnings         []string
}

// Engine applies tier policy when reconciling extracted fields against the
// stored profile. The tier table is injected and never mutated.
type Engine struct {
	tiers  TierTable
	merger Merger
}

func NewEngine(tiers TierTable, merger Merger) *Engine {
	return &Engine{tiers: tiers, merger: merger}
}

// Apply processes each update independently. A field that fails or is
// unrecognized is skipped with a warning; it never blocks the other fields.
// Empty values carry no intent to change and are skipped without warning.
func (e *Engine) Apply(ctx context.Context, existing map[string]FieldValue, updates map[string]FieldValue) Result {
	res := Result{
		Committed:        make(map[string]FieldValue),
		MergedNarratives: make(map[string]string),
	}

	for field, update := range updates {
		if update.Zero() {
			continue
		}
		spec, ok := e.tiers.Lookup(field)
		if !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("unknown profile field %q skipped", field))
			continue
		}
		switch spec.Tier {
		case TierReplace:
			res.Committed[field] = update
		case TierList:
			e.mergeList(&res, field, existing[field], update)
		case TierNarrative:
			e.mergeNarrative(ctx, &res, field, spec, existing[field], update)
		}
	}
	return res
}

func (e *Engine) mergeList(res *Result, field string, existing, update FieldValue) {
	switch field {
	case FieldFocusAreas:
		res.Committed[field] = List(unionKeepOrder(existing.List, update.List)...)
	default:
		// targetPopulation and any future comma-list field. New text is
		// always appended, even when it restates part of the existing list.
		cur := strings.TrimSpace(existing.Text)
		incoming := strings.TrimSpace(update.Text)
		if cur == "" {
			res.Committed[field] = Text(incoming)
		} else {
			res.Committed[field] = Text(cur + ", " + incoming)
		}
	}
}

func (e *Engine) mergeNarrative(ctx context.Context, res *Result, field string, spec FieldSpec, existing, update FieldValue) {
	cur := strings.TrimSpace(existing.Text)
	incoming := strings.TrimSpace(update.Text)

	if cur != "" {
		if shared := sharedSubstantiveWords(cur, incoming); shared > 3 {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("potential conflict in %s: %d overlapping terms between existing and new content", field, shared))
		}
	}

	var merged string
	switch {
	case field == FieldLeadership:
		merged = e.mergeLeadershipText(cur, incoming)
	case cur == "":
		merged = incoming
	default:
		merged = e.synthesize(ctx, field, cur, incoming)
	}

	if spec.Limit > 0 && len(merged) > spec.Limit {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("%s field exceeds limit (%d/%d characters), truncated suggestion applied", field, len(merged), spec.Limit))
		merged = cutRunes(merged, spec.Limit-50) + "..."
	} else if spec.Limit > 0 && len(merged)*10 >= spec.Limit*9 {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("%s field approaching capacity (%d/%d characters)", field, len(merged), spec.Limit))
	}

	res.Committed[field] = Text(merged)
	res.MergedNarratives[field] = merged
}

// mergeLeadershipText folds each person mentioned in the incoming text into
// the existing narrative. Incoming text that parses to nobody is treated as a
// single unnamed-role mention so the information is never dropped outright.
func (e *Engine) mergeLeadershipText(existing, incoming string) string {
	people := ParseLeadership(incoming)
	if len(people) == 0 {
		people = []Person{{Name: incoming, Roles: []string{"team member"}}}
	}
	merged := existing
	for _, person := range people {
		merged = MergeLeadership(merged, person.Name, person.Roles)
	}
	return merged
}

// synthesize asks the Merger to combine the two texts, falling back to plain
// concatenation when the call fails or its output is shorter than the shorter
// input, which signals the call degenerated rather than merged.
func (e *Engine) synthesize(ctx context.Context, field, existing, incoming string) string {
	if e.merger != nil {
		merged, err := e.merger.MergeNarrative(ctx, field, existing, incoming)
		if err != nil {
			log.Printf("profile: narrative merge failed field=%s err=%v, using concatenation", field, err)
		} else {
			merged = strings.TrimSpace(merged)
			if len(merged) >= min(len(existing), len(incoming)) {
				return merged
			}
			log.Printf("profile: narrative merge degenerated field=%s got=%d chars, using concatenation", field, len(merged))
		}
	}
	return concatMerge(existing, incoming)
}

// cutRunes shortens s to at most n bytes without splitting a rune.
func cutRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func concatMerge(existing, incoming string) string {
	if strings.HasSuffix(existing, ".") {
		return existing + " " + incoming
	}
	return existing + ". " + incoming
}

func unionKeepOrder(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing)+len(incoming))
	out := make([]string, 0, len(existing)+len(incoming))
	for _, v := range append(append([]string{}, existing...), incoming...) {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(v))
	}
	return out
}

// sharedSubstantiveWords counts distinct words longer than three characters
// appearing in both texts, case-insensitively.
func sharedSubstantiveWords(a, b string) int {
	inA := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(a)) {
		w = strings.Trim(w, ".,;:!?()\"'")
		if len(w) > 3 {
			inA[w] = true
		}
	}
	count := 0
	counted := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(b)) {
		w = strings.Trim(w, ".,;:!?()\"'")
		if len(w) > 3 && inA[w] && !counted[w] {
			counted[w] = true
			count++
		}
	}
	return count
}
