// Package extract pulls structured facts out of a segmented department
// section: program descriptions from the narrative block and budget
// allocations from the 3-year expenditure table.
//
// Both extractors operate on positional lines and are tolerant of shape
// mismatches: a row that fits no known pattern is reported through the
// Warnings list and skipped, never aborting the section.
package extract

// FundingType is the top-level split of a budget line item.
type FundingType string

const (
	StateOperations FundingType = "state_operations"
	LocalAssistance FundingType = "local_assistance"
)

// Program is an extracted program description. ProjectCode is always
// 7 digits: a 4-digit org/program code widened with "000", or a genuine
// 7-digit subprogram code.
type Program struct {
	ProjectCode string
	Name        string
	Description string
}

// Allocation is one (fund, fiscal year) budget amount inside a section.
// A flushed fund always yields three of these, one per fiscal year.
type Allocation struct {
	ProjectCode      string
	OrganizationCode string
	FundingType      FundingType
	FundCode         string
	FundName         string
	Amount           int64
	FiscalYear       string // "YYYY-YY"
}

// Warning records a line that matched no known extraction shape.
type Warning struct {
	Line int
	Text string
	Why  string
}
