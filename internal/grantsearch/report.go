package grantsearch

import (
	"fmt"
	"strings"
	"time"
)

// RenderReport builds the markdown summary for one discovery run. It is pure
// over the result envelope, so a stored run replays to the same report.
func RenderReport(res DiscoveryResult, now time.Time) string {
	var b strings.Builder
	b.WriteString("**WEB SEARCH GRANT DISCOVERY COMPLETE**\n\n")
	fmt.Fprintf(&b, "Executed %d strategic web searches using keyword matrix\n", len(res.Queries))
	fmt.Fprintf(&b, "Found %d potential grants from web search\n", res.TotalFound)
	fmt.Fprintf(&b, "✅ %d grants passed validation and quality checks\n", res.TotalValidated)
	fmt.Fprintf(&b, "❌ %d grants failed validation\n\n", res.TotalFound-res.TotalValidated)

	if len(res.Validated) > 0 {
		b.WriteString("**VALIDATED GRANT OPPORTUNITIES:**\n\n")
		for _, grant := range res.Validated {
			b.WriteString(FormatGrant(grant, now))
			b.WriteString("\n")
		}
	}

	if len(res.Rejected) > 0 {
		b.WriteString("**REJECTED CANDIDATES:**\n\n")
		for _, rej := range res.Rejected {
			fmt.Fprintf(&b, "- %s — %s\n", rej.GrantName, rej.Reason)
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n\n")
	saved, duplicates := 0, 0
	for _, s := range res.Saved {
		if s.Status == "saved" {
			saved++
		} else {
			duplicates++
		}
	}
	if len(res.Saved) > 0 {
		fmt.Fprintf(&b, "**DATABASE UPDATE**: Saved %d validated grants to your database (%d duplicates found)\n", saved, duplicates)
	} else {
		b.WriteString("**DATABASE UPDATE**: No grants to save or database error occurred\n")
	}
	return b.String()
}

// FormatGrant renders one grant for chat display with an urgency tag derived
// from deadline proximity.
func FormatGrant(grant Grant, now time.Time) string {
	icon := "📅"
	switch grant.UrgencyAt(now) {
	case UrgencyUrgent:
		icon = "🚨 URGENT"
	case UrgencySoon:
		icon = "⏰ SOON"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s **%s** - %s\n", icon, grant.GrantName, grant.Amount)
	if grant.Funder != "" {
		fmt.Fprintf(&b, "   • **Funder:** %s\n", grant.Funder)
	}
	if grant.Deadline != "" {
		fmt.Fprintf(&b, "   • **Deadline:** %s\n", grant.Deadline)
	}
	if grant.Description != "" {
		fmt.Fprintf(&b, "   • **Relevance:** %s\n", grant.Description)
	}
	if grant.Requirements != "" {
		fmt.Fprintf(&b, "   • **Requirements:** %s\n", grant.Requirements)
	}
	if grant.ApplicationURL != "" {
		fmt.Fprintf(&b, "   • **Apply:** %s\n", grant.ApplicationURL)
	}
	return b.String()
}
