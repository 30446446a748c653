package assistant

import (
	"testing"

	"github.com/joelkehle/grant-agency/internal/profile"
)

func TestDetectIntent(t *testing.T) {
	cases := []struct {
		message string
		want    Intent
	}{
		{"Can you find grants for us?", IntentFindGrants},
		{"please look for grants in education", IntentFindGrants},
		{"Show my grants", IntentShowGrants},
		{"list grants please", IntentShowGrants},
		{"Mark the Forest Fund as applied", IntentStatusUpdate},
		{"update the Youth Initiative to interested", IntentStatusUpdate},
		{"We were awarded the grant, update it!", IntentStatusUpdate},
		{"Tell me about our mission", IntentChat},
		{"I applied sunscreen today", IntentChat},
		{"", IntentChat},
	}
	for _, tc := range cases {
		if got := DetectIntent(tc.message); got != tc.want {
			t.Errorf("DetectIntent(%q)=%q want=%q", tc.message, got, tc.want)
		}
	}
}

func TestParseStatusRequest(t *testing.T) {
	cases := []struct {
		message    string
		wantName   string
		wantStatus string
	}{
		{"Mark the Forest Fund as applied", "Forest Fund", "Applied"},
		{"update Youth Initiative to interested", "Youth Initiative", "Interested"},
		{`mark "Community Grant" as rejected`, "Community Grant", "Rejected"},
		{"we got awarded!", "", "Awarded"},
		{"mark something", "", ""},
	}
	for _, tc := range cases {
		name, status := parseStatusRequest(tc.message)
		if name != tc.wantName || status != tc.wantStatus {
			t.Errorf("parseStatusRequest(%q)=(%q,%q) want=(%q,%q)", tc.message, name, status, tc.wantName, tc.wantStatus)
		}
	}
}

func TestDetectProfileContexts(t *testing.T) {
	contexts := DetectProfileContexts("Our mission is restoring forests and our website is https://example.org")
	found := map[string]bool{}
	for _, c := range contexts {
		found[c] = true
	}
	if !found[profile.FieldMissionStatement] {
		t.Fatalf("expected mission context, got %v", contexts)
	}
	if !found[profile.FieldWebsite] {
		t.Fatalf("expected website context, got %v", contexts)
	}
}

func TestDetectProfileContextsNoneForSmallTalk(t *testing.T) {
	if contexts := DetectProfileContexts("thanks, that was helpful!"); len(contexts) != 0 {
		t.Fatalf("expected no contexts, got %v", contexts)
	}
}
