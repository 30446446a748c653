// Package profile reconciles newly extracted organization facts against the
// stored profile. Every field belongs to exactly one of three merge tiers;
// the tier table is immutable and injected into the engine so merge policy is
// testable in isolation and never mutated at runtime.
package profile

// Tier selects the merge policy for a field.
type Tier int

const (
	// TierReplace fields take the new value unconditionally.
	TierReplace Tier = iota + 1
	// TierList fields merge as a set (focusAreas) or comma-append
	// (targetPopulation).
	TierList
	// TierNarrative fields merge via field-specific synthesis under a
	// character limit.
	TierNarrative
)

// Profile field names as stored in the workspace database.
const (
	FieldWebsite              = "website"
	FieldYearFounded          = "yearFounded"
	FieldTeamSize             = "teamSize"
	FieldBudgetRange          = "budgetRange"
	FieldLegalStructure       = "legalStructure"
	FieldLegalName            = "legalName"
	FieldFocusAreas           = "focusAreas"
	FieldTargetPopulation     = "targetPopulation"
	FieldLeadership           = "leadership"
	FieldMissionStatement     = "missionStatement"
	FieldUniqueQualifications = "uniqueQualifications"
	FieldLocation             = "location"
	FieldProgramDetails       = "programDetails"
)

// FieldSpec is one row of the tier table. Limit applies to narrative fields
// only; it tracks the backing store's field-size constraint.
type FieldSpec struct {
	Tier  Tier
	Limit int
}

// TierTable maps field names to their merge policy.
type TierTable struct {
	fields map[string]FieldSpec
}

func (t TierTable) Lookup(field string) (FieldSpec, bool) {
	spec, ok := t.fields[field]
	return spec, ok
}

// DefaultTierTable returns the fixed production field classification.
func DefaultTierTable() TierTable {
	return TierTable{fields: map[string]FieldSpec{
		FieldWebsite:        {Tier: TierReplace},
		FieldYearFounded:    {Tier: TierReplace},
		FieldTeamSize:       {Tier: TierReplace},
		FieldBudgetRange:    {Tier: TierReplace},
		FieldLegalStructure: {Tier: TierReplace},
		FieldLegalName:      {Tier: TierReplace},

		FieldFocusAreas:       {Tier: TierList},
		FieldTargetPopulation: {Tier: TierList},

		FieldLeadership:           {Tier: TierNarrative, Limit: 1000},
		FieldMissionStatement:     {Tier: TierNarrative, Limit: 2000},
		FieldUniqueQualifications: {Tier: TierNarrative, Limit: 2000},
		FieldLocation:             {Tier: TierNarrative, Limit: 2000},
		FieldProgramDetails:       {Tier: TierNarrative, Limit: 2000},
	}}
}

// ValueKind tags the closed union of field values. The kind is validated at
// the extraction boundary so the engine never inspects types dynamically.
type ValueKind int

const (
	KindText ValueKind = iota + 1
	KindList
	KindNumber
)

// FieldValue is one extracted or committed field value.
type FieldValue struct {
	Kind   ValueKind
	Text   string
	List   []string
	Number int
}

func Text(s string) FieldValue      { return FieldValue{Kind: KindText, Text: s} }
func List(v ...string) FieldValue   { return FieldValue{Kind: KindList, List: v} }
func Number(n int) FieldValue       { return FieldValue{Kind: KindNumber, Number: n} }

// Zero reports whether the value carries no update intent. Absent or falsy
// extracted values never clear a stored field.
func (v FieldValue) Zero() bool {
	switch v.Kind {
	case KindText:
		return v.Text == ""
	case KindList:
		return len(v.List) == 0
	case KindNumber:
		return v.Number == 0
	default:
		return true
	}
}
