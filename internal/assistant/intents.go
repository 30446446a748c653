package assistant

import (
	"regexp"
	"strings"

	"github.com/joelkehle/grant-agency/internal/grantsearch"
	"github.com/joelkehle/grant-agency/internal/profile"
)

// Intent classifies one user message. Detection is plain phrase matching;
// anything unmatched falls through to open conversation.
type Intent string

const (
	IntentChat         Intent = "chat"
	IntentFindGrants   Intent = "find_grants"
	IntentShowGrants   Intent = "show_grants"
	IntentStatusUpdate Intent = "status_update"
)

var findGrantPhrases = []string{
	"find grants",
	"search grants",
	"grant search",
	"find me grants",
	"look for grants",
	"find new grants",
}

var showGrantPhrases = []string{
	"show my grants",
	"show grants",
	"list grants",
	"view grants",
	"my grant database",
}

var statusWords = []struct {
	word   string
	status string
}{
	{"applied", grantsearch.StatusApplied},
	{"awarded", grantsearch.StatusAwarded},
	{"rejected", grantsearch.StatusRejected},
	{"interested", grantsearch.StatusInterested},
}

func DetectIntent(message string) Intent {
	lower := strings.ToLower(message)
	for _, phrase := range findGrantPhrases {
		if strings.Contains(lower, phrase) {
			return IntentFindGrants
		}
	}
	for _, phrase := range showGrantPhrases {
		if strings.Contains(lower, phrase) {
			return IntentShowGrants
		}
	}
	if strings.Contains(lower, "mark") || strings.Contains(lower, "update") {
		for _, sw := range statusWords {
			if strings.Contains(lower, sw.word) {
				return IntentStatusUpdate
			}
		}
	}
	return IntentChat
}

// statusTargetRe pulls the grant name out of "mark <name> as applied" or
// "update <name> to interested".
var statusTargetRe = regexp.MustCompile(`(?i)(?:mark|update)\s+(?:the\s+)?(.+?)\s+(?:as|to)\s+`)

// parseStatusRequest extracts the requested lifecycle status and, when the
// phrasing allows, the grant name it applies to.
func parseStatusRequest(message string) (name, status string) {
	lower := strings.ToLower(message)
	for _, sw := range statusWords {
		if strings.Contains(lower, sw.word) {
			status = sw.status
			break
		}
	}
	if m := statusTargetRe.FindStringSubmatch(message); m != nil {
		name = strings.TrimSpace(strings.Trim(m[1], `"'`))
	}
	return name, status
}

// profileContextKeywords maps each profile field to the conversational
// vocabulary that suggests the user is talking about it. Extraction only runs
// when at least one field's vocabulary appears, so ordinary chat turns skip
// the extra model call.
var profileContextKeywords = map[string][]string{
	profile.FieldLeadership:           {"leadership", "director", "executive", "ceo", "founder", "board", "chair"},
	profile.FieldWebsite:              {"website", "site", "url", "web", "https", "http"},
	profile.FieldMissionStatement:     {"mission", "purpose", "goal", "objective", "vision"},
	profile.FieldTeamSize:             {"team size", "staff", "people", "members", "employees"},
	profile.FieldFocusAreas:           {"focus", "programs", "areas", "activities", "services"},
	profile.FieldTargetPopulation:     {"serve", "community", "population", "audience", "participants"},
	profile.FieldUniqueQualifications: {"unique", "qualifications", "strengths", "expertise", "experience"},
	profile.FieldLocation:             {"located", "location", "based", "operate", "island", "city", "state", "country", "geographic"},
	profile.FieldProgramDetails:       {"program", "initiative", "project", "ceremony", "ceremonies", "activities", "offerings"},
}

// DetectProfileContexts returns the profile fields the message appears to
// talk about.
func DetectProfileContexts(message string) []string {
	lower := strings.ToLower(message)
	var contexts []string
	for field, words := range profileContextKeywords {
		for _, word := range words {
			if strings.Contains(lower, word) {
				contexts = append(contexts, field)
				break
			}
		}
	}
	return contexts
}
