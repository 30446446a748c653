package profile

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseExtractionFencedJSON(t *testing.T) {
	raw := "```json\n{\"website\": \"https://example.org\", \"teamSize\": 12}\n```"
	updates := ParseExtraction(raw, DefaultTierTable())
	if updates[FieldWebsite].Text != "https://example.org" {
		t.Fatalf("expected website, got %+v", updates)
	}
	if updates[FieldTeamSize].Number != 12 {
		t.Fatalf("expected team size 12, got %+v", updates[FieldTeamSize])
	}
}

func TestParseExtractionNullMeansNoData(t *testing.T) {
	for _, raw := range []string{"null", "NULL", "```\nnull\n```", "", "I found no profile information."} {
		if updates := ParseExtraction(raw, DefaultTierTable()); updates != nil {
			t.Fatalf("expected nil for %q, got %+v", raw, updates)
		}
	}
}

func TestParseExtractionRecoversObjectWithTrailingProse(t *testing.T) {
	raw := "{\"missionStatement\": \"We restore native forests\"}\nNote: extracted from the message above."
	updates := ParseExtraction(raw, DefaultTierTable())
	if updates == nil {
		t.Fatal("expected recovery around trailing prose")
	}
	if updates[FieldMissionStatement].Text != "We restore native forests" {
		t.Fatalf("expected mission kept, got %+v", updates)
	}
}

func TestParseExtractionTeamSizeFromPhrase(t *testing.T) {
	updates := ParseExtraction(`{"teamSize": "12 people"}`, DefaultTierTable())
	if updates[FieldTeamSize].Number != 12 {
		t.Fatalf("expected 12, got %+v", updates[FieldTeamSize])
	}
}

func TestParseExtractionFocusAreasFromCommaString(t *testing.T) {
	updates := ParseExtraction(`{"focusAreas": "youth education, food security"}`, DefaultTierTable())
	want := []string{"youth education", "food security"}
	if !reflect.DeepEqual(updates[FieldFocusAreas].List, want) {
		t.Fatalf("expected %v, got %+v", want, updates[FieldFocusAreas])
	}
}

func TestParseExtractionTargetPopulationFromArray(t *testing.T) {
	updates := ParseExtraction(`{"targetPopulation": ["rural families", "veterans"]}`, DefaultTierTable())
	if updates[FieldTargetPopulation].Text != "rural families, veterans" {
		t.Fatalf("expected array joined, got %+v", updates[FieldTargetPopulation])
	}

	updates = ParseExtraction(`{"communities": ["rural families", "veterans"]}`, DefaultTierTable())
	if updates[FieldTargetPopulation].Text != "rural families, veterans" {
		t.Fatalf("expected legacy array joined, got %+v", updates[FieldTargetPopulation])
	}
}

func TestParseExtractionLegacyAliases(t *testing.T) {
	updates := ParseExtraction(`{"communities": "rural families", "geographicScope": "Maui"}`, DefaultTierTable())
	if updates[FieldTargetPopulation].Text != "rural families" {
		t.Fatalf("expected communities mapped to targetPopulation, got %+v", updates)
	}
	if updates[FieldLocation].Text != "Maui" {
		t.Fatalf("expected geographicScope mapped to location, got %+v", updates)
	}
}

func TestParseExtractionLegacyAliasYieldsToModernField(t *testing.T) {
	updates := ParseExtraction(`{"communities": "old value", "targetPopulation": "new value"}`, DefaultTierTable())
	if updates[FieldTargetPopulation].Text != "new value" {
		t.Fatalf("expected modern field to win, got %+v", updates[FieldTargetPopulation])
	}
}

func TestParseExtractionDropsUnknownAndMistyped(t *testing.T) {
	updates := ParseExtraction(`{"favoriteColor": "blue", "website": 42, "teamSize": true}`, DefaultTierTable())
	if _, ok := updates[FieldTeamSize]; ok {
		t.Fatalf("expected boolean team size dropped, got %+v", updates[FieldTeamSize])
	}
	if _, ok := updates["favoriteColor"]; ok {
		t.Fatalf("expected unknown field dropped, got %+v", updates)
	}
	// Bare numbers for text fields are stringified, not dropped.
	if updates[FieldWebsite].Text != "42" {
		t.Fatalf("expected numeric coercion to text, got %+v", updates[FieldWebsite])
	}
}

func TestBuildExtractionPromptIncludesCurrentContent(t *testing.T) {
	existing := map[string]FieldValue{
		FieldMissionStatement: Text("We restore native forests."),
		FieldFocusAreas:       List("reforestation", "education"),
	}
	prompt := BuildExtractionPrompt("our mission has grown", []string{"missionStatement"}, existing)
	if !strings.Contains(prompt, "Focus on: missionStatement") {
		t.Fatalf("expected context focus, got:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Current Mission: We restore native forests.") {
		t.Fatalf("expected current mission block, got:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Current Focus Areas: reforestation, education") {
		t.Fatalf("expected list joined for context, got:\n%s", prompt)
	}
	if !strings.Contains(prompt, `User message: "our mission has grown"`) {
		t.Fatalf("expected quoted user message, got:\n%s", prompt)
	}
}

func TestBuildExtractionPromptDefaultsWithoutContexts(t *testing.T) {
	prompt := BuildExtractionPrompt("hello", nil, nil)
	if !strings.Contains(prompt, "Focus on: any profile information") {
		t.Fatalf("expected default focus, got:\n%s", prompt)
	}
	if strings.Contains(prompt, "CURRENT PROFILE CONTENT") {
		t.Fatalf("expected no current-content block for empty profile, got:\n%s", prompt)
	}
}
