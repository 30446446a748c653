package profile

import (
	"regexp"
	"strings"
)

// Person is one leadership entry: a name and an ordered, deduplicated role
// set. Entries are never stored individually; they serialize to and from the
// flat leadership narrative field.
type Person struct {
	Name  string
	Roles []string
}

var (
	formalRe    = regexp.MustCompile(`([^(),]+)\s*\(([^)]+)\)`)
	naturalRe   = regexp.MustCompile(`(?i)(.+?)\s+(?:is|serves as|acts as|works as)\s+(.+)`)
	roleFirstRe = regexp.MustCompile(`(?i)(.+?)\s+(?:is|:)\s+(.+)`)

	roleKeywords = []string{"director", "chair", "founder", "executive"}
)

// leadershipRule is one grammar tried against a sentence. Rules run in order;
// the first match wins, and a sentence matching none is dropped — the
// narrative field stays the source of truth, so losing an unparseable mention
// is acceptable.
type leadershipRule func(sentence string) ([]Person, bool)

var leadershipRules = []leadershipRule{
	// Formal: "Name (Role1, Role2)". The serialized narrative joins entries
	// with commas inside one sentence, so this rule extracts every
	// name/parenthetical group it finds.
	func(s string) ([]Person, bool) {
		matches := formalRe.FindAllStringSubmatch(s, -1)
		if matches == nil {
			return nil, false
		}
		var people []Person
		for _, m := range matches {
			name := strings.TrimSpace(strings.Trim(strings.TrimSpace(m[1]), ","))
			if name == "" {
				continue
			}
			var roles []string
			for _, role := range strings.Split(m[2], ",") {
				if role = strings.TrimSpace(role); role != "" {
					roles = append(roles, role)
				}
			}
			people = append(people, Person{Name: name, Roles: roles})
		}
		return people, len(people) > 0
	},
	// Natural language: "Name is/serves as/acts as/works as Role".
	func(s string) ([]Person, bool) {
		m := naturalRe.FindStringSubmatch(s)
		if m == nil {
			return nil, false
		}
		return []Person{{Name: strings.TrimSpace(m[1]), Roles: []string{strings.TrimSpace(m[2])}}}, true
	},
	// Role-first: "Role is Name" or "Role: Name", only when the left side
	// looks like a role and is not a "who"-relative clause.
	func(s string) ([]Person, bool) {
		m := roleFirstRe.FindStringSubmatch(s)
		if m == nil || strings.Contains(m[1], "who") {
			return nil, false
		}
		role := strings.TrimSpace(m[1])
		lower := strings.ToLower(role)
		for _, kw := range roleKeywords {
			if strings.Contains(lower, kw) {
				return []Person{{Name: strings.TrimSpace(m[2]), Roles: []string{role}}}, true
			}
		}
		return nil, false
	},
}

// ParseLeadership extracts (person, roles) pairs from leadership narrative
// text by splitting on sentence terminators and trying each grammar in order.
func ParseLeadership(text string) []Person {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var people []Person
	for _, sentence := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == ';'
	}) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		for _, rule := range leadershipRules {
			if parsed, ok := rule(sentence); ok {
				people = append(people, parsed...)
				break
			}
		}
	}
	return people
}

// MergeLeadership folds one newly mentioned person into the existing
// narrative. Matching is bidirectional case-insensitive substring containment,
// deliberately loose to tolerate partial-name mentions; a stricter
// normalized-equality match would also satisfy callers if short-name false
// merges become a problem. On a match the new name becomes canonical and the
// roles union keeps existing casing; otherwise the person is appended.
func MergeLeadership(existing string, name string, roles []string) string {
	people := ParseLeadership(existing)

	matched := -1
	lowerName := strings.ToLower(name)
	for i, person := range people {
		lowerExisting := strings.ToLower(person.Name)
		if strings.Contains(lowerExisting, lowerName) || strings.Contains(lowerName, lowerExisting) {
			matched = i
			break
		}
	}

	if matched >= 0 {
		merged := people[matched]
		merged.Name = name
		for _, role := range roles {
			if !containsFold(merged.Roles, role) {
				merged.Roles = append(merged.Roles, role)
			}
		}
		people[matched] = merged
	} else {
		people = append(people, Person{Name: name, Roles: roles})
	}

	return FormatLeadership(people)
}

// FormatLeadership serializes entries back to the flat narrative form
// "Name (RoleA, RoleB), Name2 (RoleC)".
func FormatLeadership(people []Person) string {
	parts := make([]string, 0, len(people))
	for _, person := range people {
		parts = append(parts, person.Name+" ("+strings.Join(person.Roles, ", ")+")")
	}
	return strings.Join(parts, ", ")
}

func containsFold(roles []string, role string) bool {
	for _, r := range roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}
