// Package review defines the operator checkpoints of the merge pipeline
// as a request/decision message exchange.
//
// The pipeline never resolves an ambiguous section boundary or an
// uncertain merge on its own; it builds a request, hands it to a
// Reviewer, and acts on the decision. The default Reviewer is a
// synchronous console (console.go), but nothing in segmentation or merge
// logic depends on that: a queued or batched approval workflow only has
// to implement the same interface.
package review

// Reviewer answers the two human checkpoints plus department creation.
//
// Implementations must treat a missing or unparseable operator response
// as "skip": there is no timeout and no automatic default.
type Reviewer interface {
	// ReviewSegmentation resolves an expenditure marker whose section
	// header could not be located. Review happens immediately, before
	// the next marker is examined, so a wrong pairing cannot cascade.
	ReviewSegmentation(req SegmentationRequest) (SegmentationDecision, error)

	// ReviewChanges approves or rejects one section's pending changes.
	ReviewChanges(req ChangeRequest) (ChangeDecision, error)

	// CreateDepartment handles an extracted department with no canonical
	// match. There is no silent auto-create: the operator must supply
	// workforce status and parent agency, or decline.
	CreateDepartment(req DepartmentCreateRequest) (DepartmentCreateDecision, error)
}

// HeaderCandidate is a line inside the failed search range that begins
// with a 4-digit organizational code.
type HeaderCandidate struct {
	Line int // index into the document's positional lines
	Text string
}

// SegmentationRequest describes a marker with no located section header.
type SegmentationRequest struct {
	SourceFile     string
	MarkerLine     int
	MarkerText     string
	ExpectedHeader string // normalized base text of the unconsumed group
	SearchStart    int
	SearchEnd      int
	PrevDepartment string // department of the previous matched section
	Candidates     []HeaderCandidate
}

// SegmentationDecision picks one candidate or skips the marker entirely.
type SegmentationDecision struct {
	Pick int // index into SegmentationRequest.Candidates
	Skip bool
}

// ChangeRequest is the diff-style summary shown before a section's
// changes are committed to canonical storage.
type ChangeRequest struct {
	SourceFile     string
	OrgCode        string
	DepartmentName string
	NewDepartment  bool
	Confidence     int

	OldDescription        string
	NewDescription        string
	DescriptionSimilarity float64
	DescriptionProposed   bool

	ProgramsNew     int
	ProgramsUpdated int

	AllocationsNew         int
	AllocationsOverwritten int

	NewFunds     []string
	UpdatedFunds []string
}

// ChangeAction enumerates the operator's answers to a change review.
type ChangeAction int

const (
	// ActionReject discards the section's changes. Missing or invalid
	// responses resolve to ActionReject.
	ActionReject ChangeAction = iota
	// ActionAccept commits every pending change.
	ActionAccept
	// ActionKeepExisting commits everything except the description
	// proposal, keeping the canonical description.
	ActionKeepExisting
	// ActionCrop commits everything but keeps only the selected line
	// ranges of the proposed description.
	ActionCrop
	// ActionSkipFile aborts the remaining sections of the current file.
	ActionSkipFile
)

// LineRange is a 1-based inclusive range over the proposed description's
// lines, used by ActionCrop.
type LineRange struct {
	Start int
	End   int
}

// ChangeDecision is the operator's answer to a ChangeRequest.
type ChangeDecision struct {
	Action     ChangeAction
	KeepRanges []LineRange // only meaningful for ActionCrop
}

// DepartmentCreateRequest asks the operator to create a canonical record
// for an unmatched department.
type DepartmentCreateRequest struct {
	SourceFile string
	OrgCode    string
	Name       string
}

// DepartmentCreateDecision carries the required fields for a new
// canonical department, or declines creation.
type DepartmentCreateDecision struct {
	Create       bool
	Active       bool
	ParentAgency string
}
