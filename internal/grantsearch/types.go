package grantsearch

import "time"

const (
	// Grant lifecycle statuses. Transitions beyond the default are driven by
	// explicit user requests, never by the discovery pipeline itself.
	StatusDiscovered = "Discovered"
	StatusInterested = "Interested"
	StatusApplied    = "Applied"
	StatusAwarded    = "Awarded"
	StatusRejected   = "Rejected"

	DefaultLLMModel     = "claude-sonnet-4-20250514"
	DefaultMaxSearches  = 18
	DefaultMaxTokens    = 6000
	minValidationScore  = 50
	maxCorroborations   = 5
	corroborationBudget = 20 * time.Second
)

// Grant is one structured funding opportunity extracted from model output.
// Amount is free text ("$25K-$100K"): the store renders it verbatim and the
// scorer only inspects it for scale markers. Deadline, when set, is an ISO
// calendar date string (2006-01-02).
type Grant struct {
	GrantName      string `json:"grantName"`
	Funder         string `json:"funder,omitempty"`
	Amount         string `json:"amount,omitempty"`
	Deadline       string `json:"deadline,omitempty"`
	Description    string `json:"description,omitempty"`
	Requirements   string `json:"requirements,omitempty"`
	ApplicationURL string `json:"applicationUrl,omitempty"`
	SourceURL      string `json:"sourceUrl,omitempty"`
	Notes          string `json:"notes,omitempty"`
	RelevanceScore int    `json:"relevanceScore"`
	PriorityRank   int    `json:"priorityRank"`
	Status         string `json:"status"`

	// Set during discovery, after validation and corroboration.
	ValidationScore    int    `json:"validationScore,omitempty"`
	VerificationStatus string `json:"verificationStatus,omitempty"`
}

type Urgency string

const (
	UrgencyUrgent Urgency = "urgent"
	UrgencySoon   Urgency = "soon"
	UrgencyNormal Urgency = "normal"
)

// DeadlineTime reparses the stored ISO deadline. ok is false when the grant
// has no deadline.
func (g Grant) DeadlineTime() (time.Time, bool) {
	if g.Deadline == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", g.Deadline)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// UrgencyAt tags the grant by deadline proximity: within 14 days is urgent,
// within 30 is soon, everything else (including no deadline) is normal.
func (g Grant) UrgencyAt(now time.Time) Urgency {
	deadline, ok := g.DeadlineTime()
	if !ok {
		return UrgencyNormal
	}
	days := int(deadline.Sub(now).Hours() / 24)
	switch {
	case days <= 14:
		return UrgencyUrgent
	case days <= 30:
		return UrgencySoon
	default:
		return UrgencyNormal
	}
}

// ItemOutcome records the fate of one numbered segment, so batch callers can
// assert "N of M parsed" instead of relying on log side effects.
type ItemOutcome struct {
	Rank   int    `json:"rank"`
	Parsed bool   `json:"parsed"`
	Reason string `json:"reason,omitempty"`
}

// BatchResult is the parser's output for one model response: the grants that
// parsed, in list order, plus a per-segment outcome report.
type BatchResult struct {
	Grants   []Grant       `json:"grants"`
	Outcomes []ItemOutcome `json:"outcomes"`
}

// Validation is the persistence gate's verdict for one grant.
type Validation struct {
	Valid   bool              `json:"valid"`
	Score   int               `json:"score"`
	Reason  string            `json:"reason,omitempty"`
	Details ValidationDetails `json:"details"`
}

type ValidationDetails struct {
	HasGrantName     bool `json:"hasGrantName"`
	HasFunder        bool `json:"hasFunder"`
	HasSourceURL     bool `json:"hasSourceUrl"`
	HasDeadline      bool `json:"hasDeadline"`
	DeadlineIsFuture bool `json:"deadlineIsFuture"`
	HasAmount        bool `json:"hasAmount"`
	HasWebsiteQuote  bool `json:"hasWebsiteQuote"`
}

// SavedGrant reports one store write from a discovery run.
type SavedGrant struct {
	Grant  Grant  `json:"grant"`
	ID     string `json:"id,omitempty"`
	Status string `json:"status"` // "saved" or "duplicate"
}

// RejectedGrant pairs a failed candidate with its validation reason.
type RejectedGrant struct {
	GrantName string `json:"grantName"`
	Reason    string `json:"reason"`
}

// DiscoveryResult is the envelope produced by one discovery run.
type DiscoveryResult struct {
	RunID          string          `json:"run_id"`
	Queries        []string        `json:"queries"`
	RawResponse    string          `json:"raw_response,omitempty"`
	TotalFound     int             `json:"total_found"`
	TotalValidated int             `json:"total_validated"`
	Validated      []Grant         `json:"validated"`
	Rejected       []RejectedGrant `json:"rejected"`
	Saved          []SavedGrant    `json:"saved"`
	Outcomes       []ItemOutcome   `json:"outcomes"`
	ReportMarkdown string          `json:"report_markdown"`
	StartedAt      time.Time       `json:"started_at"`
	CompletedAt    time.Time       `json:"completed_at"`
}
