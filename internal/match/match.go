// Package match resolves extracted entities against canonical records.
//
// Department matching runs tiered strategies in strict priority order and
// stops at the first hit; a code mismatch on a name or alias hit
// downgrades confidence and is reported as a warning, never fixed
// automatically. Organizational codes are identity fields.
// Program and fund matching is exact-key only.
package match

import "strings"

// Confidence levels per matching tier.
const (
	ConfidenceCode          = 100
	ConfidenceName          = 95
	ConfidenceNameMismatch  = 70
	ConfidenceAlias         = 85
	ConfidenceAliasMismatch = 60
)

// CanonicalDepartment is the minimal view of a department the matcher
// needs; the store's Department satisfies it structurally via Adapt.
type CanonicalDepartment struct {
	OrgCode       string
	Name          string
	CanonicalName string
	Aliases       []string
}

// DepartmentMatch is the outcome of one tiered department lookup.
type DepartmentMatch struct {
	Index        int // position in the candidate slice
	Confidence   int
	Method       string // "code", "name", "alias"
	CodeMismatch bool
}

// Department matches an extracted (orgCode, name) pair against canonical
// candidates. Returns nil when no tier hits; callers must escalate to
// operator creation rather than auto-creating.
func Department(candidates []CanonicalDepartment, orgCode, name string) *DepartmentMatch {
	// Tier 1: exact organizational code.
	for i, c := range candidates {
		if c.OrgCode == orgCode {
			return &DepartmentMatch{Index: i, Confidence: ConfidenceCode, Method: "code"}
		}
	}

	// Tier 2: case-insensitive name or canonical name. A missing extracted
	// code is not a mismatch, only a disagreeing one.
	for i, c := range candidates {
		if strings.EqualFold(c.Name, name) || (c.CanonicalName != "" && strings.EqualFold(c.CanonicalName, name)) {
			m := &DepartmentMatch{Index: i, Confidence: ConfidenceName, Method: "name"}
			if orgCode != "" && c.OrgCode != orgCode {
				m.Confidence = ConfidenceNameMismatch
				m.CodeMismatch = true
			}
			return m
		}
	}

	// Tier 3: case-insensitive alias.
	for i, c := range candidates {
		for _, alias := range c.Aliases {
			if strings.EqualFold(alias, name) {
				m := &DepartmentMatch{Index: i, Confidence: ConfidenceAlias, Method: "alias"}
				if orgCode != "" && c.OrgCode != orgCode {
					m.Confidence = ConfidenceAliasMismatch
					m.CodeMismatch = true
				}
				return m
			}
		}
	}

	return nil
}
