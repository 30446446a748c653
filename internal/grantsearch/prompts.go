package grantsearch

import (
	"fmt"
	"strings"
	"time"
)

// OrgContext is the slice of the active organization profile the search
// prompt needs. Empty fields render as "Not specified" so the model never
// invents them.
type OrgContext struct {
	Name                 string
	Mission              string
	FocusAreas           []string
	Location             string
	TargetPopulation     string
	UniqueQualifications string
}

var foundationTypes = []string{
	"private foundation", "family foundation", "philanthropist",
	"corporate giving", "CSR grants", "community foundation",
	"endowment", "charitable trust", "donor advised fund",
}

// BuildQueryMatrix combines organization keywords with foundation types into
// the strategic search queries the model is told to execute. Keywords come
// from the profile's focus areas when present, falling back to the default
// relevance keywords.
func BuildQueryMatrix(org OrgContext, year int) []string {
	keywords := org.FocusAreas
	if len(keywords) == 0 {
		keywords = DefaultRelevanceKeywords
	}
	if len(keywords) > 6 {
		keywords = keywords[:6]
	}
	types := foundationTypes[:3]

	var queries []string
	for _, kw := range keywords {
		for _, ft := range types {
			queries = append(queries, fmt.Sprintf("%q %q grants %d", kw, ft, year))
		}
	}
	if org.Location != "" {
		queries = append(queries,
			fmt.Sprintf("%q \"private foundation\" grants %d", org.Location, year),
			fmt.Sprintf("%q \"community foundation\" funding %d", org.Location, year),
		)
	}
	if org.Name != "" {
		queries = append(queries, fmt.Sprintf("organizations similar to %q grant funding received", org.Name))
	}
	return queries
}

func buildSearchPrompt(org OrgContext, queries []string, now time.Time) string {
	currentDate := now.Format("January 2, 2006")

	var b strings.Builder
	b.WriteString("**CRITICAL INSTRUCTION: You MUST use web search to find grant opportunities.**\n")
	b.WriteString("**DO NOT use your training data for grant information.**\n")
	b.WriteString("**ONLY provide grants found through current web searches.**\n\n")

	b.WriteString("**ORGANIZATION CONTEXT:**\n")
	fmt.Fprintf(&b, "- Name: %s\n", orDefault(org.Name))
	fmt.Fprintf(&b, "- Mission: %s\n", orDefault(org.Mission))
	fmt.Fprintf(&b, "- Focus Areas: %s\n", orDefault(strings.Join(org.FocusAreas, ", ")))
	fmt.Fprintf(&b, "- Location: %s\n", orDefault(org.Location))
	fmt.Fprintf(&b, "- Target Population: %s\n", orDefault(org.TargetPopulation))
	fmt.Fprintf(&b, "- Unique Qualifications: %s\n\n", orDefault(org.UniqueQualifications))

	fmt.Fprintf(&b, "**TODAY'S DATE:** %s\n\n", currentDate)

	b.WriteString("**SEARCH QUERIES TO EXECUTE:**\n")
	for _, q := range queries {
		fmt.Fprintf(&b, "- %s\n", q)
	}
	b.WriteString("\n")

	b.WriteString("**MANDATORY REQUIREMENTS:**\n")
	b.WriteString("1. Use web search for ALL grant information - never rely on training data\n")
	b.WriteString("2. Focus on private, family, and corporate foundations (avoid government grants)\n")
	fmt.Fprintf(&b, "3. Find grants currently accepting applications with deadlines after %s\n", currentDate)
	b.WriteString("4. Extract real application URLs and contact information\n")
	b.WriteString("5. After searching, ANALYZE all results and extract structured grants - do not stop after the search phase\n\n")

	b.WriteString("**FOR EACH REAL GRANT FOUND, PROVIDE EXACTLY THIS STRUCTURE:**\n\n")
	b.WriteString("1. **[GRANT NAME FROM WEBSITE]** - $[AMOUNT FROM SITE]\n")
	b.WriteString("- **Funder:** [Foundation name]\n")
	b.WriteString("- **Deadline:** [Exact deadline from website]\n")
	b.WriteString("- **Requirements:** [Key eligibility requirements]\n")
	b.WriteString("- **Relevance:** [Why this matches the organization's mission]\n")
	b.WriteString("- **Application URL:** [Direct link to apply]\n")
	b.WriteString("- **Source URL:** [Where you found this information]\n")
	b.WriteString("- **Website Quote:** \"[Exact text proving this grant exists]\"\n\n")

	b.WriteString("**QUALITY STANDARDS:**\n")
	b.WriteString("- Maximum 8-10 grants (quality over quantity)\n")
	b.WriteString("- Only include grants with future deadlines\n")
	b.WriteString("- Verify each grant exists on the foundation website\n")
	b.WriteString("- Provide exact quotes as proof\n")
	b.WriteString("- Focus on $25K-$500K range opportunities\n")
	return b.String()
}

func orDefault(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not specified"
	}
	return s
}
