// Package merge reconciles extracted facts against canonical storage.
//
// Classification and mutation are split: Plan walks the canonical state
// and labels every extracted fact new/update/unchanged without touching
// anything; Apply commits an approved plan to the in-memory canonical
// state and emits the rows for the per-section store transaction.
package merge

import (
	"sort"

	"github.com/hurttlocker/bluebook/internal/store"
)

// BudgetKey addresses one leaf of the budget tree.
type BudgetKey struct {
	OrgCode     string
	FiscalYear  string
	ProjectCode string
	FundingType string
	FundCode    string
}

// FundLeaf is the amount at one budget key. Count is how many times the
// leaf has been written; re-processing resets it to 1, never increments.
type FundLeaf struct {
	FundName   string
	Amount     int64
	Count      int
	SourceFile string
}

// BudgetTree is the canonical budget hierarchy
// org → fiscal year → project → funding type → fund, with typed nodes and
// lookup-or-create accessors at every level.
type BudgetTree struct {
	orgs map[string]*OrgNode
}

// OrgNode holds one organization's fiscal years.
type OrgNode struct {
	years map[string]*YearNode
}

// YearNode holds one fiscal year's projects.
type YearNode struct {
	projects map[string]*ProjectNode
}

// ProjectNode holds one project's funding types.
type ProjectNode struct {
	fundingTypes map[string]*FundingNode
}

// FundingNode holds one funding type's fund leaves.
type FundingNode struct {
	funds map[string]*FundLeaf
}

// NewBudgetTree builds an empty tree.
func NewBudgetTree() *BudgetTree {
	return &BudgetTree{orgs: map[string]*OrgNode{}}
}

// Org returns the node for an org code, creating the path when missing.
func (t *BudgetTree) Org(code string) *OrgNode {
	n, ok := t.orgs[code]
	if !ok {
		n = &OrgNode{years: map[string]*YearNode{}}
		t.orgs[code] = n
	}
	return n
}

// Year returns the node for a fiscal year, creating it when missing.
func (o *OrgNode) Year(fy string) *YearNode {
	n, ok := o.years[fy]
	if !ok {
		n = &YearNode{projects: map[string]*ProjectNode{}}
		o.years[fy] = n
	}
	return n
}

// Project returns the node for a project code, creating it when missing.
func (y *YearNode) Project(code string) *ProjectNode {
	n, ok := y.projects[code]
	if !ok {
		n = &ProjectNode{fundingTypes: map[string]*FundingNode{}}
		y.projects[code] = n
	}
	return n
}

// FundingType returns the node for a funding type, creating it when missing.
func (p *ProjectNode) FundingType(ft string) *FundingNode {
	n, ok := p.fundingTypes[ft]
	if !ok {
		n = &FundingNode{funds: map[string]*FundLeaf{}}
		p.fundingTypes[ft] = n
	}
	return n
}

// Lookup finds a leaf without creating any intermediate node.
func (t *BudgetTree) Lookup(k BudgetKey) (*FundLeaf, bool) {
	o, ok := t.orgs[k.OrgCode]
	if !ok {
		return nil, false
	}
	y, ok := o.years[k.FiscalYear]
	if !ok {
		return nil, false
	}
	p, ok := y.projects[k.ProjectCode]
	if !ok {
		return nil, false
	}
	f, ok := p.fundingTypes[k.FundingType]
	if !ok {
		return nil, false
	}
	leaf, ok := f.funds[k.FundCode]
	return leaf, ok
}

// Set writes a leaf, creating every missing intermediate node. The leaf's
// amount is replaced and its count reset to 1.
func (t *BudgetTree) Set(k BudgetKey, fundName string, amount int64, sourceFile string) {
	fn := t.Org(k.OrgCode).Year(k.FiscalYear).Project(k.ProjectCode).FundingType(k.FundingType)
	fn.funds[k.FundCode] = &FundLeaf{
		FundName:   fundName,
		Amount:     amount,
		Count:      1,
		SourceFile: sourceFile,
	}
}

// LoadLines populates the tree from persisted budget lines, preserving
// stored occurrence counts.
func (t *BudgetTree) LoadLines(lines []store.BudgetLine) {
	for _, b := range lines {
		fn := t.Org(b.OrgCode).Year(b.FiscalYear).Project(b.ProjectCode).FundingType(b.FundingType)
		fn.funds[b.FundCode] = &FundLeaf{
			FundName:   b.FundName,
			Amount:     b.Amount,
			Count:      b.Count,
			SourceFile: b.SourceFile,
		}
	}
}

// Lines exports the tree in deterministic key order.
func (t *BudgetTree) Lines() []store.BudgetLine {
	var lines []store.BudgetLine
	for org, o := range t.orgs {
		for fy, y := range o.years {
			for proj, p := range y.projects {
				for ft, f := range p.fundingTypes {
					for fund, leaf := range f.funds {
						lines = append(lines, store.BudgetLine{
							OrgCode:     org,
							FiscalYear:  fy,
							ProjectCode: proj,
							FundingType: ft,
							FundCode:    fund,
							FundName:    leaf.FundName,
							Amount:      leaf.Amount,
							Count:       leaf.Count,
							SourceFile:  leaf.SourceFile,
						})
					}
				}
			}
		}
	}
	sort.Slice(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		switch {
		case a.OrgCode != b.OrgCode:
			return a.OrgCode < b.OrgCode
		case a.FiscalYear != b.FiscalYear:
			return a.FiscalYear < b.FiscalYear
		case a.ProjectCode != b.ProjectCode:
			return a.ProjectCode < b.ProjectCode
		case a.FundingType != b.FundingType:
			return a.FundingType < b.FundingType
		default:
			return a.FundCode < b.FundCode
		}
	})
	return lines
}
