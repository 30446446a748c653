package grantsearch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// The model is prompted to emit a numbered list where each entry opens with
// "N. **Grant Name** - $Amount" followed by bolded field bullets. Partial or
// garbled entries are expected and skipped, never fatal for the batch.
var (
	listMarkerRe = regexp.MustCompile(`\d+\.\s*\*\*`)
	firstLineRe  = regexp.MustCompile(`^(.+?)\*\*\s*-\s*(.+)$`)
	bulletRe     = regexp.MustCompile(`^[-*•]\s*`)
	numberRe     = regexp.MustCompile(`\d+`)

	deadlinePrefixRe = regexp.MustCompile(`(?i)^(due\s+|deadline:\s*)`)
	parentheticalRe  = regexp.MustCompile(`\s*\(.*\)$`)
)

// DefaultRelevanceKeywords mirror the organization domains the discovery
// prompt targets. Each keyword present in a segment adds 10 to the relevance
// score.
var DefaultRelevanceKeywords = []string{
	"indigenous", "native", "traditional knowledge", "cultural preservation",
	"community healing", "spiritual practices", "land stewardship", "ceremony",
}

// fieldRule assigns one recognized bolded label to a grant field. Rules are
// tried in order; the first matching label wins and the rest of the line is
// the value.
type fieldRule struct {
	label  string
	assign func(g *Grant, value string)
}

var fieldRules = []fieldRule{
	{"**Funder:**", func(g *Grant, v string) { g.Funder = v }},
	{"**Deadline:**", func(g *Grant, v string) { g.Deadline = normalizeDeadline(v) }},
	{"**Relevance:**", func(g *Grant, v string) { g.Description = v }},
	{"**Application Notes:**", func(g *Grant, v string) { g.Requirements = v }},
	{"**Requirements:**", func(g *Grant, v string) { g.Requirements = v }},
	{"**Application URL:**", func(g *Grant, v string) { g.ApplicationURL = usableURL(v) }},
	{"**URL:**", func(g *Grant, v string) { g.ApplicationURL = usableURL(v) }},
	{"**Source URL:**", func(g *Grant, v string) { g.SourceURL = usableURL(v) }},
	{"**Website Quote:**", func(g *Grant, v string) { g.Notes = "Website Quote: " + v }},
}

// Parser converts free-text numbered grant lists into structured records.
// Keywords drive relevance scoring and default to DefaultRelevanceKeywords.
type Parser struct {
	keywords []string
}

func NewParser(keywords []string) *Parser {
	if len(keywords) == 0 {
		keywords = DefaultRelevanceKeywords
	}
	return &Parser{keywords: keywords}
}

// Parse splits text on the numbered-list marker and parses each segment
// independently. Segments whose first line does not match the
// "Name** - Amount" shape are skipped with a recorded reason. now anchors
// past-deadline scoring.
func (p *Parser) Parse(text string, now time.Time) BatchResult {
	var res BatchResult
	rank := 0
	for _, segment := range listMarkerRe.Split(text, -1) {
		if strings.TrimSpace(segment) == "" {
			continue
		}
		rank++
		grant, err := p.parseSegment(segment, rank, now)
		if err != nil {
			res.Outcomes = append(res.Outcomes, ItemOutcome{Rank: rank, Reason: err.Error()})
			continue
		}
		res.Grants = append(res.Grants, grant)
		res.Outcomes = append(res.Outcomes, ItemOutcome{Rank: rank, Parsed: true})
	}
	return res
}

func (p *Parser) parseSegment(segment string, rank int, now time.Time) (Grant, error) {
	var lines []string
	for _, line := range strings.Split(segment, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if len(lines) == 0 {
		return Grant{}, fmt.Errorf("empty segment")
	}

	m := firstLineRe.FindStringSubmatch(lines[0])
	if m == nil {
		return Grant{}, fmt.Errorf("first line %q does not match name/amount shape", lines[0])
	}
	grant := Grant{
		GrantName:    strings.TrimSpace(m[1]),
		Amount:       strings.TrimSpace(m[2]),
		PriorityRank: rank,
		Status:       StatusDiscovered,
	}

	for _, line := range lines[1:] {
		clean := strings.TrimSpace(bulletRe.ReplaceAllString(line, ""))
		for _, rule := range fieldRules {
			if strings.HasPrefix(clean, rule.label) {
				rule.assign(&grant, strings.TrimSpace(strings.TrimPrefix(clean, rule.label)))
				break
			}
		}
		// Unrecognized lines are ignored.
	}

	grant.RelevanceScore = p.relevanceScore(segment, grant, now)
	return grant, nil
}

// normalizeDeadline turns free deadline text into an ISO date string, or ""
// when the deadline is ongoing or unparseable. Never an error: rejecting
// stale records is the validator's job.
func normalizeDeadline(text string) string {
	if text == "" || strings.Contains(strings.ToLower(text), "ongoing") {
		return ""
	}
	clean := deadlinePrefixRe.ReplaceAllString(text, "")
	clean = strings.TrimSpace(parentheticalRe.ReplaceAllString(clean, ""))
	t, ok := parseCalendarDate(clean)
	if !ok {
		return ""
	}
	return t.Format("2006-01-02")
}

var dateLayouts = []string{
	"2006-01-02",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"01/02/2006",
	"1/2/2006",
	"January 2006",
	"Jan 2006",
}

var embeddedDateRe = regexp.MustCompile(`(?i)\b(January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+(\d{1,2}),?\s+(20\d{2})\b`)
var embeddedISORe = regexp.MustCompile(`\b20\d{2}-\d{2}-\d{2}\b`)

func parseCalendarDate(text string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}
	if m := embeddedISORe.FindString(text); m != "" {
		if t, err := time.Parse("2006-01-02", m); err == nil {
			return t, true
		}
	}
	if m := embeddedDateRe.FindStringSubmatch(text); m != nil {
		for _, layout := range []string{"January 2 2006", "Jan 2 2006"} {
			if t, err := time.Parse(layout, fmt.Sprintf("%s %s %s", m[1], m[2], m[3])); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func usableURL(text string) string {
	if text == "" || strings.EqualFold(text, "Not available") || !strings.HasPrefix(text, "http") {
		return ""
	}
	return text
}

// relevanceScore is a deterministic function of the full segment text and the
// parsed fields: base 50, urgency and keyword boosts, amount-scale bonus, and
// a heavy penalty for past deadlines, clamped to [0,100].
func (p *Parser) relevanceScore(segment string, grant Grant, now time.Time) int {
	score := 50
	lower := strings.ToLower(segment)

	if strings.Contains(lower, "🚨") || strings.Contains(lower, "urgent") {
		score += 30
	}
	for _, keyword := range p.keywords {
		if strings.Contains(lower, keyword) {
			score += 10
		}
	}
	score += amountBonus(grant.Amount)

	if deadline, ok := grant.DeadlineTime(); ok && deadline.Before(now.Truncate(24*time.Hour)) {
		score -= 50
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func amountBonus(amount string) int {
	lower := strings.ToLower(amount)
	if strings.Contains(lower, "million") {
		return 15
	}
	if !strings.Contains(lower, "k") && !strings.Contains(lower, "000") {
		return 0
	}
	m := numberRe.FindString(amount)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	bonus := 0
	if n >= 100 {
		bonus += 10
	}
	if n >= 50 {
		bonus += 5
	}
	return bonus
}
