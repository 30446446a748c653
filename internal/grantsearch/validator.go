package grantsearch

import (
	"fmt"
	"strings"
	"time"
)

// Validator gates persistence of discovered grants. The upstream web-search
// generation has no guaranteed grounding, so this deterministic score is the
// only trust boundary before writing to the store.
type Validator struct{}

// Validate computes an independent plausibility score for one record. A grant
// is valid iff the score reaches 50 and both name and funder are present.
// The same record always reproduces the same verdict.
func (Validator) Validate(grant Grant, now time.Time) Validation {
	var v Validation

	if len(strings.TrimSpace(grant.GrantName)) > 5 {
		v.Details.HasGrantName = true
		v.Score += 20
	}
	if len(strings.TrimSpace(grant.Funder)) > 3 {
		v.Details.HasFunder = true
		v.Score += 20
	}
	if strings.HasPrefix(grant.SourceURL, "http") {
		v.Details.HasSourceURL = true
		v.Score += 15
	}
	if grant.Deadline != "" {
		v.Details.HasDeadline = true
		v.Score += 15
		if deadline, ok := grant.DeadlineTime(); ok {
			if deadline.After(now) {
				v.Details.DeadlineIsFuture = true
				v.Score += 10
			} else {
				v.Score -= 20
			}
		} else {
			v.Score -= 10
		}
	}
	if strings.Contains(grant.Amount, "$") {
		v.Details.HasAmount = true
		v.Score += 10
	}
	if strings.Contains(grant.Notes, "QUOTE:") || strings.Contains(grant.Notes, "Website Quote:") {
		v.Details.HasWebsiteQuote = true
		v.Score += 10
	}

	v.Valid = v.Score >= minValidationScore && v.Details.HasGrantName && v.Details.HasFunder
	if !v.Valid {
		v.Reason = rejectionReason(v)
	}
	return v
}

func rejectionReason(v Validation) string {
	var b strings.Builder
	b.WriteString("Failed validation:")
	if !v.Details.HasGrantName {
		b.WriteString(" Missing grant name.")
	}
	if !v.Details.HasFunder {
		b.WriteString(" Missing funder.")
	}
	if !v.Details.HasDeadline {
		b.WriteString(" Missing deadline.")
	}
	if v.Details.HasDeadline && !v.Details.DeadlineIsFuture {
		b.WriteString(" Past deadline.")
	}
	if v.Score < minValidationScore {
		fmt.Fprintf(&b, " Low validation score (%d/100).", v.Score)
	}
	return b.String()
}
