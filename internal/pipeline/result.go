package pipeline

import (
	"fmt"
	"strings"
)

// FileError records a file-level failure that did not stop the run.
type FileError struct {
	File    string
	Message string
}

// Result summarizes one run. It is threaded explicitly through every
// processing call and merged with Add; there is no shared mutable
// counter state between file or section iterations.
type Result struct {
	FilesScanned   int
	FilesProcessed int
	FilesSkipped   int
	FilesFailed    int

	SectionsFound    int
	SectionsMerged   int
	SectionsSkipped  int
	SectionsRejected int

	DepartmentsMatched int
	DepartmentsCreated int
	ProgramsNew        int
	ProgramsUpdated    int
	FundsNew           int
	FundsUpdated       int

	AllocationsNew         int
	AllocationsOverwritten int

	Errors []FileError
}

// Add merges another Result into this one.
func (r *Result) Add(other *Result) {
	r.FilesScanned += other.FilesScanned
	r.FilesProcessed += other.FilesProcessed
	r.FilesSkipped += other.FilesSkipped
	r.FilesFailed += other.FilesFailed
	r.SectionsFound += other.SectionsFound
	r.SectionsMerged += other.SectionsMerged
	r.SectionsSkipped += other.SectionsSkipped
	r.SectionsRejected += other.SectionsRejected
	r.DepartmentsMatched += other.DepartmentsMatched
	r.DepartmentsCreated += other.DepartmentsCreated
	r.ProgramsNew += other.ProgramsNew
	r.ProgramsUpdated += other.ProgramsUpdated
	r.FundsNew += other.FundsNew
	r.FundsUpdated += other.FundsUpdated
	r.AllocationsNew += other.AllocationsNew
	r.AllocationsOverwritten += other.AllocationsOverwritten
	r.Errors = append(r.Errors, other.Errors...)
}

// FormatResult renders the end-of-run summary. It is printed even when
// some files failed.
func FormatResult(r *Result) string {
	var sb strings.Builder
	sb.WriteString("Run summary:\n")
	fmt.Fprintf(&sb, "  Files:       %d scanned, %d processed, %d skipped, %d failed\n",
		r.FilesScanned, r.FilesProcessed, r.FilesSkipped, r.FilesFailed)
	fmt.Fprintf(&sb, "  Sections:    %d found, %d merged, %d rejected, %d skipped\n",
		r.SectionsFound, r.SectionsMerged, r.SectionsRejected, r.SectionsSkipped)
	fmt.Fprintf(&sb, "  Departments: %d matched, %d created\n",
		r.DepartmentsMatched, r.DepartmentsCreated)
	fmt.Fprintf(&sb, "  Programs:    %d new, %d updated\n", r.ProgramsNew, r.ProgramsUpdated)
	fmt.Fprintf(&sb, "  Funds:       %d new, %d updated\n", r.FundsNew, r.FundsUpdated)
	fmt.Fprintf(&sb, "  Allocations: %d new, %d overwritten\n",
		r.AllocationsNew, r.AllocationsOverwritten)
	if len(r.Errors) > 0 {
		sb.WriteString("  Failed files:\n")
		for _, e := range r.Errors {
			fmt.Fprintf(&sb, "    %s: %s\n", e.File, e.Message)
		}
	}
	return sb.String()
}
