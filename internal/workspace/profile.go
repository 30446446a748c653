package workspace

import (
	"context"

	"github.com/joelkehle/grant-agency/internal/grantsearch"
	"github.com/joelkehle/grant-agency/internal/profile"
)

// Profile is one organization profile record as stored by the workspace.
// ProfileName is the human label for the record; LegalName is the registered
// entity name.
type Profile struct {
	ID                   string   `json:"id,omitempty"`
	ProfileName          string   `json:"profileName"`
	LegalName            string   `json:"legalName,omitempty"`
	LegalStructure       string   `json:"legalStructure,omitempty"`
	Location             string   `json:"location,omitempty"`
	MissionStatement     string   `json:"missionStatement,omitempty"`
	FocusAreas           []string `json:"focusAreas,omitempty"`
	TargetPopulation     string   `json:"targetPopulation,omitempty"`
	UniqueQualifications string   `json:"uniqueQualifications,omitempty"`
	Leadership           string   `json:"leadership,omitempty"`
	ProgramDetails       string   `json:"programDetails,omitempty"`
	Website              string   `json:"website,omitempty"`
	YearFounded          string   `json:"yearFounded,omitempty"`
	TeamSize             int      `json:"teamSize,omitempty"`
	BudgetRange          string   `json:"budgetRange,omitempty"`
	Active               bool     `json:"activeStatus,omitempty"`
}

// FieldValues exposes the profile as the merge engine's typed field map.
func (p Profile) FieldValues() map[string]profile.FieldValue {
	values := map[string]profile.FieldValue{
		profile.FieldWebsite:              profile.Text(p.Website),
		profile.FieldYearFounded:          profile.Text(p.YearFounded),
		profile.FieldTeamSize:             profile.Number(p.TeamSize),
		profile.FieldBudgetRange:          profile.Text(p.BudgetRange),
		profile.FieldLegalStructure:       profile.Text(p.LegalStructure),
		profile.FieldLegalName:            profile.Text(p.LegalName),
		profile.FieldFocusAreas:           profile.List(p.FocusAreas...),
		profile.FieldTargetPopulation:     profile.Text(p.TargetPopulation),
		profile.FieldLeadership:           profile.Text(p.Leadership),
		profile.FieldMissionStatement:     profile.Text(p.MissionStatement),
		profile.FieldUniqueQualifications: profile.Text(p.UniqueQualifications),
		profile.FieldLocation:             profile.Text(p.Location),
		profile.FieldProgramDetails:       profile.Text(p.ProgramDetails),
	}
	for field, v := range values {
		if v.Zero() {
			delete(values, field)
		}
	}
	return values
}

// ApplyCommitted folds merge-engine output back into the in-memory profile so
// the session view matches what the store now holds.
func (p *Profile) ApplyCommitted(committed map[string]profile.FieldValue) {
	for field, v := range committed {
		switch field {
		case profile.FieldWebsite:
			p.Website = v.Text
		case profile.FieldYearFounded:
			p.YearFounded = v.Text
		case profile.FieldTeamSize:
			p.TeamSize = v.Number
		case profile.FieldBudgetRange:
			p.BudgetRange = v.Text
		case profile.FieldLegalStructure:
			p.LegalStructure = v.Text
		case profile.FieldLegalName:
			p.LegalName = v.Text
		case profile.FieldFocusAreas:
			p.FocusAreas = v.List
		case profile.FieldTargetPopulation:
			p.TargetPopulation = v.Text
		case profile.FieldLeadership:
			p.Leadership = v.Text
		case profile.FieldMissionStatement:
			p.MissionStatement = v.Text
		case profile.FieldUniqueQualifications:
			p.UniqueQualifications = v.Text
		case profile.FieldLocation:
			p.Location = v.Text
		case profile.FieldProgramDetails:
			p.ProgramDetails = v.Text
		}
	}
}

// UpdatePayload converts committed values into the store's partial-update
// shape.
func UpdatePayload(committed map[string]profile.FieldValue) map[string]any {
	out := make(map[string]any, len(committed))
	for field, v := range committed {
		switch v.Kind {
		case profile.KindList:
			out[field] = v.List
		case profile.KindNumber:
			out[field] = v.Number
		default:
			out[field] = v.Text
		}
	}
	return out
}

// ActiveOrgContext adapts the active profile into the discovery pipeline's
// prompt context. ok is false when no profile is active.
func (c *Client) ActiveOrgContext(ctx context.Context) (grantsearch.OrgContext, bool, error) {
	p, ok, err := c.FetchActiveProfile(ctx)
	if err != nil || !ok {
		return grantsearch.OrgContext{}, false, err
	}
	name := p.ProfileName
	if p.LegalName != "" {
		name = p.LegalName
	}
	return grantsearch.OrgContext{
		Name:                 name,
		Mission:              p.MissionStatement,
		FocusAreas:           p.FocusAreas,
		Location:             p.Location,
		TargetPopulation:     p.TargetPopulation,
		UniqueQualifications: p.UniqueQualifications,
	}, true, nil
}
