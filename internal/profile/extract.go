package profile

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/joelkehle/grant-agency/internal/llm"
)

// legacyAliases maps deprecated field names onto their modern equivalent.
// The shim is one-way and only applies when the modern field is absent from
// the same extraction.
var legacyAliases = map[string]string{
	"mainPrograms":    FieldFocusAreas,
	"communities":     FieldTargetPopulation,
	"geographicScope": FieldLocation,
}

var firstIntRe = regexp.MustCompile(`\d+`)

// BuildExtractionPrompt asks the model for a JSON object of profile fields
// mentioned in the user message, or the literal "null" when nothing is there.
// Existing narrative content is included so extraction favors genuinely new
// information.
func BuildExtractionPrompt(userMessage string, contexts []string, existing map[string]FieldValue) string {
	contextFields := "any profile information"
	if len(contexts) > 0 {
		contextFields = strings.Join(contexts, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this user message and extract organization profile information for intelligent updating. Focus on: %s. Return ONLY a JSON object with the extracted information, or null if no profile information is present.\n\n", contextFields)
	fmt.Fprintf(&b, "User message: %q\n", userMessage)

	currentLabels := []struct{ field, label string }{
		{FieldLeadership, "Current Leadership"},
		{FieldLocation, "Current Location"},
		{FieldMissionStatement, "Current Mission"},
		{FieldUniqueQualifications, "Current Qualifications"},
		{FieldProgramDetails, "Current Programs"},
		{FieldFocusAreas, "Current Focus Areas"},
		{FieldTargetPopulation, "Current Target Population"},
	}
	wroteHeader := false
	for _, cl := range currentLabels {
		v, ok := existing[cl.field]
		if !ok || v.Zero() {
			continue
		}
		if !wroteHeader {
			b.WriteString("\nCURRENT PROFILE CONTENT (for context and intelligent merging):\n")
			wroteHeader = true
		}
		text := v.Text
		if v.Kind == KindList {
			text = strings.Join(v.List, ", ")
		}
		fmt.Fprintf(&b, "- %s: %s\n", cl.label, text)
	}

	b.WriteString(`
INSTRUCTIONS FOR INTELLIGENT EXTRACTION:
- For leadership: Extract person names and their roles. The system will intelligently merge with existing leadership.
- For narrative fields (mission, qualifications): Extract new content that should be added or updated.
- Only include fields that are explicitly mentioned or clearly implied in the user message.
- For leadership updates, focus on extracting the specific person and their role(s).

Extract information for these fields:
- leadership: Person name and role(s) mentioned (will be intelligently merged)
- website: Organization website URL
- missionStatement: New mission content or updates
- uniqueQualifications: New qualifications or strengths mentioned
- focusAreas: Array of new focus areas, programs, or activities
- targetPopulation: New communities or populations mentioned
- location: Geographic location, city, island, state, country information
- programDetails: Program descriptions, activities, ceremonies, initiatives
- teamSize: Number only (e.g., 3, not "3 people")
- yearFounded: Year as string
- budgetRange: Budget range or financial information
- legalStructure: "501(c)(3)", "LLC", "Corporation", etc.
- legalName: Official legal name of organization

Return only JSON or null:`)
	return b.String()
}

// ParseExtraction converts a raw model completion into typed field values.
// It tolerates markdown code fences and completions truncated before the
// closing bracket. A "null" or unparseable completion means no profile data,
// not an error.
func ParseExtraction(raw string, tiers TierTable) map[string]FieldValue {
	cleaned := llm.StripCodeFences(raw)
	if cleaned == "" || strings.EqualFold(cleaned, "null") || !strings.HasPrefix(cleaned, "{") {
		return nil
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		recovered, ok := llm.RecoverObject(cleaned)
		if !ok {
			return nil
		}
		if err := json.Unmarshal([]byte(recovered), &payload); err != nil {
			return nil
		}
	}
	if len(payload) == 0 {
		return nil
	}

	updates := make(map[string]FieldValue)
	for field, raw := range payload {
		if target, ok := legacyAliases[field]; ok {
			if _, modernPresent := payload[target]; modernPresent {
				continue
			}
			field = target
		}
		spec, ok := tiers.Lookup(field)
		if !ok {
			continue
		}
		value, ok := coerceValue(field, spec, raw)
		if !ok || value.Zero() {
			continue
		}
		updates[field] = value
	}
	if len(updates) == 0 {
		return nil
	}
	return updates
}

// coerceValue validates raw extraction output into the closed value union for
// the field's tier. Mistyped values are dropped rather than guessed at,
// except teamSize, where a numeric prefix inside a phrase is accepted.
func coerceValue(field string, spec FieldSpec, raw any) (FieldValue, bool) {
	if field == FieldTeamSize {
		switch v := raw.(type) {
		case float64:
			return Number(int(v)), true
		case string:
			if m := firstIntRe.FindString(v); m != "" {
				n := 0
				fmt.Sscanf(m, "%d", &n)
				return Number(n), true
			}
		}
		return FieldValue{}, false
	}

	if spec.Tier == TierList && field == FieldFocusAreas {
		switch v := raw.(type) {
		case []any:
			var items []string
			for _, item := range v {
				if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
					items = append(items, strings.TrimSpace(s))
				}
			}
			return List(items...), len(items) > 0
		case string:
			var items []string
			for _, part := range strings.Split(v, ",") {
				if part = strings.TrimSpace(part); part != "" {
					items = append(items, part)
				}
			}
			return List(items...), len(items) > 0
		}
		return FieldValue{}, false
	}

	switch v := raw.(type) {
	case string:
		return Text(strings.TrimSpace(v)), true
	case float64:
		// yearFounded and similar sometimes come back as bare numbers.
		return Text(strings.TrimSuffix(fmt.Sprintf("%v", v), ".0")), true
	case []any:
		// targetPopulation often comes back as an array; comma-list fields
		// store it joined.
		if spec.Tier != TierList {
			break
		}
		var items []string
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				items = append(items, strings.TrimSpace(s))
			}
		}
		return Text(strings.Join(items, ", ")), len(items) > 0
	}
	return FieldValue{}, false
}
