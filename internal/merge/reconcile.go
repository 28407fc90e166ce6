package merge

import (
	"sort"

	"github.com/hurttlocker/bluebook/internal/extract"
	"github.com/hurttlocker/bluebook/internal/match"
	"github.com/hurttlocker/bluebook/internal/review"
	"github.com/hurttlocker/bluebook/internal/store"
)

// DefaultFundGroup is assigned to funds first seen during a merge.
const DefaultFundGroup = "Other"

// ChangeKind classifies one extracted fact against canonical storage.
type ChangeKind int

const (
	KindNew ChangeKind = iota
	KindUpdate // overwrite for allocations
	KindUnchanged
)

// DescriptionChange proposes replacing a department description.
type DescriptionChange struct {
	Old        string
	Proposed   string
	Similarity float64
}

// ProgramChange is one program's classification.
type ProgramChange struct {
	Code           string
	Name           string
	Description    string
	Kind           ChangeKind
	AddDescription bool // (description, source file) pair is new
}

// FundChange is one fund's classification.
type FundChange struct {
	Code    string
	Name    string
	OldName string
	Kind    ChangeKind
}

// AllocationChange is one budget leaf's classification.
type AllocationChange struct {
	Key       BudgetKey
	FundName  string
	Amount    int64
	OldAmount int64
	Kind      ChangeKind
}

// SectionPlan is every pending change for one section, classified but
// not applied. It is shown to the operator before any mutation.
type SectionPlan struct {
	SourceFile    string
	Department    *store.Department
	NewDepartment bool
	Confidence    int

	Description *DescriptionChange
	Programs    []ProgramChange
	Funds       []FundChange
	Allocations []AllocationChange
}

// PlanInput carries one section's extraction and matching results.
type PlanInput struct {
	SourceFile           string
	Department           *store.Department
	NewDepartment        bool
	Confidence           int
	ExtractedDescription string
	Programs             []extract.Program
	Allocations          []extract.Allocation
}

// Reconciler owns the in-memory canonical state for one run. It is
// loaded once from the store at startup and updated by Apply, so later
// sections classify against earlier approved changes.
type Reconciler struct {
	threshold   float64
	departments []*store.Department
	programs    map[string]*store.Program
	funds       map[string]*store.Fund
	tree        *BudgetTree
}

// NewReconciler builds the canonical state from loaded collections.
func NewReconciler(depts []*store.Department, progs []*store.Program, funds []*store.Fund, lines []store.BudgetLine, threshold float64) *Reconciler {
	if threshold <= 0 {
		threshold = match.DefaultSimilarityThreshold
	}
	r := &Reconciler{
		threshold:   threshold,
		departments: depts,
		programs:    map[string]*store.Program{},
		funds:       map[string]*store.Fund{},
		tree:        NewBudgetTree(),
	}
	for _, p := range progs {
		r.programs[p.ProjectCode] = p
	}
	for _, f := range funds {
		r.funds[f.Code] = f
	}
	r.tree.LoadLines(lines)
	return r
}

// Tree exposes the canonical budget tree (read-mostly, used by tests).
func (r *Reconciler) Tree() *BudgetTree { return r.tree }

// MatchDepartment runs the tiered matcher over the canonical departments.
func (r *Reconciler) MatchDepartment(orgCode, name string) (*store.Department, *match.DepartmentMatch) {
	candidates := make([]match.CanonicalDepartment, len(r.departments))
	for i, d := range r.departments {
		candidates[i] = match.CanonicalDepartment{
			OrgCode:       d.OrgCode,
			Name:          d.Name,
			CanonicalName: d.CanonicalName,
			Aliases:       d.Aliases,
		}
	}
	m := match.Department(candidates, orgCode, name)
	if m == nil {
		return nil, nil
	}
	return r.departments[m.Index], m
}

// Plan classifies a section's extracted facts without mutating anything.
func (r *Reconciler) Plan(in PlanInput) *SectionPlan {
	plan := &SectionPlan{
		SourceFile:    in.SourceFile,
		Department:    in.Department,
		NewDepartment: in.NewDepartment,
		Confidence:    in.Confidence,
	}

	if match.NeedsDescriptionUpdate(in.Department.Description, in.ExtractedDescription, r.threshold) {
		plan.Description = &DescriptionChange{
			Old:        in.Department.Description,
			Proposed:   in.ExtractedDescription,
			Similarity: match.Similarity(in.Department.Description, in.ExtractedDescription),
		}
	}

	for _, p := range in.Programs {
		plan.Programs = append(plan.Programs, r.planProgram(p, in.SourceFile))
	}

	for _, code := range distinctFundCodes(in.Allocations) {
		plan.Funds = append(plan.Funds, r.planFund(code, fundNameFor(in.Allocations, code)))
	}

	for _, a := range in.Allocations {
		key := BudgetKey{
			OrgCode:     a.OrganizationCode,
			FiscalYear:  a.FiscalYear,
			ProjectCode: a.ProjectCode,
			FundingType: string(a.FundingType),
			FundCode:    a.FundCode,
		}
		change := AllocationChange{Key: key, FundName: a.FundName, Amount: a.Amount, Kind: KindNew}
		if leaf, ok := r.tree.Lookup(key); ok {
			change.Kind = KindUpdate
			change.OldAmount = leaf.Amount
		}
		plan.Allocations = append(plan.Allocations, change)
	}

	return plan
}

func (r *Reconciler) planProgram(p extract.Program, sourceFile string) ProgramChange {
	change := ProgramChange{
		Code:        p.ProjectCode,
		Name:        p.Name,
		Description: p.Description,
	}

	canonical, ok := r.programs[p.ProjectCode]
	if !ok {
		change.Kind = KindNew
		change.AddDescription = p.Description != ""
		return change
	}

	change.AddDescription = p.Description != "" && !hasDescriptionPair(canonical, p.Description, sourceFile)
	nameChanges := p.Name != "" && p.Name != canonical.Name
	if nameChanges || change.AddDescription {
		change.Kind = KindUpdate
	} else {
		change.Kind = KindUnchanged
	}
	return change
}

func (r *Reconciler) planFund(code, name string) FundChange {
	canonical, ok := r.funds[code]
	if !ok {
		return FundChange{Code: code, Name: name, Kind: KindNew}
	}
	if canonical.Name != name && name != "" {
		return FundChange{Code: code, Name: name, OldName: canonical.Name, Kind: KindUpdate}
	}
	return FundChange{Code: code, Name: canonical.Name, Kind: KindUnchanged}
}

// Apply commits an approved plan: the in-memory canonical state is
// updated and the rows for the section transaction are returned.
// Callers must not invoke Apply for rejected or skipped sections.
func (r *Reconciler) Apply(plan *SectionPlan, decision review.ChangeDecision) store.SectionSave {
	dept := plan.Department

	if plan.Description != nil {
		switch decision.Action {
		case review.ActionAccept:
			dept.Description = plan.Description.Proposed
		case review.ActionCrop:
			dept.Description = review.CropLines(plan.Description.Proposed, decision.KeepRanges)
		case review.ActionKeepExisting:
			// canonical description stands
		}
	}
	if plan.NewDepartment {
		r.departments = append(r.departments, dept)
	}

	save := store.SectionSave{Department: dept}

	for _, pc := range plan.Programs {
		if pc.Kind == KindUnchanged {
			continue
		}
		canonical, ok := r.programs[pc.Code]
		if !ok {
			canonical = &store.Program{ProjectCode: pc.Code}
			r.programs[pc.Code] = canonical
		}
		if pc.Name != "" {
			canonical.Name = pc.Name
		}
		if pc.AddDescription {
			canonical.Descriptions = append(canonical.Descriptions, store.ProgramDescription{
				Text:       pc.Description,
				SourceFile: plan.SourceFile,
			})
		}
		save.Programs = append(save.Programs, canonical)
	}

	for _, fc := range plan.Funds {
		if fc.Kind == KindUnchanged {
			continue
		}
		canonical, ok := r.funds[fc.Code]
		if !ok {
			canonical = &store.Fund{Code: fc.Code, Group: DefaultFundGroup}
			r.funds[fc.Code] = canonical
		}
		if fc.Kind == KindUpdate && canonical.Description == canonical.Name {
			// description only mirrored the old name; keep it in sync
			canonical.Description = fc.Name
		}
		canonical.Name = fc.Name
		save.Funds = append(save.Funds, canonical)
	}

	for _, ac := range plan.Allocations {
		r.tree.Set(ac.Key, ac.FundName, ac.Amount, plan.SourceFile)
		save.Lines = append(save.Lines, store.BudgetLine{
			OrgCode:     ac.Key.OrgCode,
			FiscalYear:  ac.Key.FiscalYear,
			ProjectCode: ac.Key.ProjectCode,
			FundingType: ac.Key.FundingType,
			FundCode:    ac.Key.FundCode,
			FundName:    ac.FundName,
			Amount:      ac.Amount,
			Count:       1,
			SourceFile:  plan.SourceFile,
		})
	}

	return save
}

// ChangeRequest builds the operator-facing summary for a plan.
func (plan *SectionPlan) ChangeRequest() review.ChangeRequest {
	req := review.ChangeRequest{
		SourceFile:     plan.SourceFile,
		OrgCode:        plan.Department.OrgCode,
		DepartmentName: plan.Department.Name,
		NewDepartment:  plan.NewDepartment,
		Confidence:     plan.Confidence,
	}
	if plan.Description != nil {
		req.DescriptionProposed = true
		req.OldDescription = plan.Description.Old
		req.NewDescription = plan.Description.Proposed
		req.DescriptionSimilarity = plan.Description.Similarity
	}
	for _, pc := range plan.Programs {
		switch pc.Kind {
		case KindNew:
			req.ProgramsNew++
		case KindUpdate:
			req.ProgramsUpdated++
		}
	}
	for _, fc := range plan.Funds {
		switch fc.Kind {
		case KindNew:
			req.NewFunds = append(req.NewFunds, fc.Code+" "+fc.Name)
		case KindUpdate:
			req.UpdatedFunds = append(req.UpdatedFunds, fc.Code+" "+fc.Name)
		}
	}
	for _, ac := range plan.Allocations {
		if ac.Kind == KindNew {
			req.AllocationsNew++
		} else {
			req.AllocationsOverwritten++
		}
	}
	return req
}

func distinctFundCodes(allocs []extract.Allocation) []string {
	seen := map[string]bool{}
	var codes []string
	for _, a := range allocs {
		if !seen[a.FundCode] {
			seen[a.FundCode] = true
			codes = append(codes, a.FundCode)
		}
	}
	sort.Strings(codes)
	return codes
}

func fundNameFor(allocs []extract.Allocation, code string) string {
	for _, a := range allocs {
		if a.FundCode == code && a.FundName != "" {
			return a.FundName
		}
	}
	return ""
}

func hasDescriptionPair(p *store.Program, text, sourceFile string) bool {
	for _, d := range p.Descriptions {
		if d.Text == text && d.SourceFile == sourceFile {
			return true
		}
	}
	return false
}
