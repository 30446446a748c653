package grantsearch

import (
	"strings"
	"testing"
)

func fullyFormedGrant() Grant {
	return Grant{
		GrantName: "Community Education Fund",
		Funder:    "Bright Futures Foundation",
		Amount:    "$50,000",
		Deadline:  "2026-12-01",
		SourceURL: "https://brightfutures.org/grants",
		Notes:     "Website Quote: \"grants for community education\"",
	}
}

func TestValidateFullScore(t *testing.T) {
	v := Validator{}.Validate(fullyFormedGrant(), testNow)
	if v.Score != 100 {
		t.Fatalf("expected 100, got %d", v.Score)
	}
	if !v.Valid {
		t.Fatalf("expected valid, got %+v", v)
	}
	if v.Reason != "" {
		t.Fatalf("valid grant should carry no reason, got %q", v.Reason)
	}
}

func TestValidateRequiresNameAndFunder(t *testing.T) {
	g := fullyFormedGrant()
	g.GrantName = "Fund" // too short to count
	v := Validator{}.Validate(g, testNow)
	if v.Valid {
		t.Fatalf("expected invalid without a grant name, got %+v", v)
	}
	if !strings.Contains(v.Reason, "Missing grant name") {
		t.Fatalf("unexpected reason %q", v.Reason)
	}

	g = fullyFormedGrant()
	g.Funder = ""
	v = Validator{}.Validate(g, testNow)
	if v.Valid {
		t.Fatalf("expected invalid without a funder even at score %d", v.Score)
	}
	if !strings.Contains(v.Reason, "Missing funder") {
		t.Fatalf("unexpected reason %q", v.Reason)
	}
}

func TestValidatePastDeadlinePenalty(t *testing.T) {
	g := fullyFormedGrant()
	g.Deadline = "2026-01-01"
	v := Validator{}.Validate(g, testNow)
	// Deadline presence +15, past deadline -20 instead of +10.
	if v.Score != 70 {
		t.Fatalf("expected 70, got %d", v.Score)
	}
	if !v.Details.HasDeadline || v.Details.DeadlineIsFuture {
		t.Fatalf("unexpected details %+v", v.Details)
	}
}

func TestValidateLowScoreRejection(t *testing.T) {
	g := Grant{GrantName: "Some Named Grant", Funder: "Fund Org"}
	v := Validator{}.Validate(g, testNow)
	if v.Score != 40 {
		t.Fatalf("expected 40, got %d", v.Score)
	}
	if v.Valid {
		t.Fatalf("expected invalid below threshold")
	}
	if !strings.Contains(v.Reason, "Low validation score (40/100)") {
		t.Fatalf("unexpected reason %q", v.Reason)
	}
	if !strings.Contains(v.Reason, "Missing deadline") {
		t.Fatalf("unexpected reason %q", v.Reason)
	}
}

func TestValidateIsDeterministic(t *testing.T) {
	g := fullyFormedGrant()
	first := Validator{}.Validate(g, testNow)
	second := Validator{}.Validate(g, testNow)
	if first != second {
		t.Fatalf("expected identical verdicts, got %+v vs %+v", first, second)
	}
}
