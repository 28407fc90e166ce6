package review

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Console is the synchronous line-oriented Reviewer. It blocks the
// pipeline until the operator answers; every prompt and response is
// mirrored to the run's audit logger.
type Console struct {
	in  *bufio.Scanner
	out io.Writer
	log *zap.Logger
}

// NewConsole builds a console reviewer over the given streams. Pass
// zap.NewNop() when no audit logger is wanted.
func NewConsole(in io.Reader, out io.Writer, log *zap.Logger) *Console {
	if log == nil {
		log = zap.NewNop()
	}
	return &Console{
		in:  bufio.NewScanner(in),
		out: out,
		log: log,
	}
}

// ReviewSegmentation lists every candidate header line in the failed
// search range and lets the operator pick one or skip the marker.
func (c *Console) ReviewSegmentation(req SegmentationRequest) (SegmentationDecision, error) {
	fmt.Fprintf(c.out, "\n--- Segmentation review: %s ---\n", req.SourceFile)
	fmt.Fprintf(c.out, "Expenditure marker at line %d: %s\n", req.MarkerLine, req.MarkerText)
	fmt.Fprintf(c.out, "Expected section header: %s\n", req.ExpectedHeader)
	if req.PrevDepartment != "" {
		fmt.Fprintf(c.out, "Previous section: %s\n", req.PrevDepartment)
	}
	fmt.Fprintf(c.out, "Candidate header lines %d..%d:\n", req.SearchStart, req.SearchEnd)
	for i, cand := range req.Candidates {
		fmt.Fprintf(c.out, "  [%d] line %d: %s\n", i+1, cand.Line, cand.Text)
	}
	fmt.Fprint(c.out, "Pick a candidate number, or press Enter to skip this marker: ")

	c.log.Info("segmentation review",
		zap.String("file", req.SourceFile),
		zap.Int("marker_line", req.MarkerLine),
		zap.String("expected_header", req.ExpectedHeader),
		zap.Int("candidates", len(req.Candidates)))

	answer, ok := c.readLine()
	if !ok || answer == "" {
		c.log.Info("segmentation decision", zap.String("answer", answer), zap.Bool("skip", true))
		return SegmentationDecision{Skip: true}, nil
	}

	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > len(req.Candidates) {
		fmt.Fprintf(c.out, "Invalid choice %q — skipping marker.\n", answer)
		c.log.Warn("segmentation decision invalid", zap.String("answer", answer))
		return SegmentationDecision{Skip: true}, nil
	}

	c.log.Info("segmentation decision",
		zap.String("answer", answer),
		zap.Int("picked_line", req.Candidates[n-1].Line))
	return SegmentationDecision{Pick: n - 1}, nil
}

// ReviewChanges prints the section's diff-style summary and reads one of
// accept / reject / keep-existing / crop / skip-file.
func (c *Console) ReviewChanges(req ChangeRequest) (ChangeDecision, error) {
	fmt.Fprintf(c.out, "\n=== Section: %s %s (%s) ===\n", req.OrgCode, req.DepartmentName, req.SourceFile)
	if req.NewDepartment {
		fmt.Fprintln(c.out, "Department: NEW canonical record")
	} else {
		fmt.Fprintf(c.out, "Department: matched at confidence %d\n", req.Confidence)
	}

	if req.DescriptionProposed {
		fmt.Fprintf(c.out, "Description update proposed (similarity %.1f):\n", req.DescriptionSimilarity)
		fmt.Fprintf(c.out, "  old: %s\n", summarize(req.OldDescription))
		fmt.Fprintf(c.out, "  new: %s\n", summarize(req.NewDescription))
	}

	fmt.Fprintf(c.out, "Programs:    %d new, %d updated\n", req.ProgramsNew, req.ProgramsUpdated)
	fmt.Fprintf(c.out, "Allocations: %d new, %d overwrite\n", req.AllocationsNew, req.AllocationsOverwritten)
	if len(req.NewFunds) > 0 {
		fmt.Fprintf(c.out, "New funds:     %s\n", strings.Join(req.NewFunds, ", "))
	}
	if len(req.UpdatedFunds) > 0 {
		fmt.Fprintf(c.out, "Updated funds: %s\n", strings.Join(req.UpdatedFunds, ", "))
	}
	fmt.Fprint(c.out, "[a]ccept / [r]eject / [k]eep existing description / [c]rop description / [s]kip file: ")

	c.log.Info("change review",
		zap.String("file", req.SourceFile),
		zap.String("org_code", req.OrgCode),
		zap.String("department", req.DepartmentName),
		zap.Bool("new_department", req.NewDepartment),
		zap.Int("programs_new", req.ProgramsNew),
		zap.Int("programs_updated", req.ProgramsUpdated),
		zap.Int("allocations_new", req.AllocationsNew),
		zap.Int("allocations_overwritten", req.AllocationsOverwritten))

	answer, _ := c.readLine()
	decision := ChangeDecision{Action: ActionReject}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "a", "accept":
		decision.Action = ActionAccept
	case "k", "keep":
		decision.Action = ActionKeepExisting
	case "s", "skip":
		decision.Action = ActionSkipFile
	case "c", "crop":
		ranges, ok := c.readCropRanges(req.NewDescription)
		if ok {
			decision = ChangeDecision{Action: ActionCrop, KeepRanges: ranges}
		}
	case "r", "reject", "":
		// reject stays
	default:
		fmt.Fprintf(c.out, "Unrecognized answer %q — rejecting section.\n", answer)
	}

	c.log.Info("change decision",
		zap.String("answer", answer),
		zap.Int("action", int(decision.Action)))
	return decision, nil
}

// CreateDepartment walks the operator through the required fields of a
// new canonical department. Declining leaves the section unprocessed.
func (c *Console) CreateDepartment(req DepartmentCreateRequest) (DepartmentCreateDecision, error) {
	fmt.Fprintf(c.out, "\n--- Unmatched department in %s ---\n", req.SourceFile)
	fmt.Fprintf(c.out, "Org code %s: %s\n", req.OrgCode, req.Name)
	fmt.Fprint(c.out, "Create canonical record? [y/N]: ")

	c.log.Info("department create review",
		zap.String("file", req.SourceFile),
		zap.String("org_code", req.OrgCode),
		zap.String("name", req.Name))

	answer, _ := c.readLine()
	if !isYes(answer) {
		c.log.Info("department create declined", zap.String("answer", answer))
		return DepartmentCreateDecision{}, nil
	}

	fmt.Fprint(c.out, "Workforce status — active? [y/n]: ")
	active, ok := c.readLine()
	if !ok || (!isYes(active) && !isNo(active)) {
		fmt.Fprintln(c.out, "Workforce status is required — declining creation.")
		c.log.Warn("department create missing workforce status", zap.String("answer", active))
		return DepartmentCreateDecision{}, nil
	}

	fmt.Fprint(c.out, "Parent agency: ")
	parent, _ := c.readLine()
	parent = strings.TrimSpace(parent)
	if parent == "" {
		fmt.Fprintln(c.out, "Parent agency is required — declining creation.")
		c.log.Warn("department create missing parent agency")
		return DepartmentCreateDecision{}, nil
	}

	c.log.Info("department create approved",
		zap.Bool("active", isYes(active)),
		zap.String("parent_agency", parent))
	return DepartmentCreateDecision{Create: true, Active: isYes(active), ParentAgency: parent}, nil
}

// readCropRanges shows the proposed description numbered by line and
// parses a range expression like "1-3,5".
func (c *Console) readCropRanges(proposed string) ([]LineRange, bool) {
	lines := strings.Split(proposed, "\n")
	fmt.Fprintln(c.out, "Proposed description:")
	for i, l := range lines {
		fmt.Fprintf(c.out, "  %3d: %s\n", i+1, l)
	}
	fmt.Fprint(c.out, "Lines to keep (e.g. 1-3,5): ")

	answer, ok := c.readLine()
	if !ok {
		return nil, false
	}
	ranges, err := ParseLineRanges(answer, len(lines))
	if err != nil {
		fmt.Fprintf(c.out, "Invalid ranges %q: %v — rejecting section.\n", answer, err)
		c.log.Warn("crop ranges invalid", zap.String("answer", answer), zap.Error(err))
		return nil, false
	}
	c.log.Info("crop ranges", zap.String("answer", answer))
	return ranges, true
}

func (c *Console) readLine() (string, bool) {
	if !c.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.in.Text()), true
}

// ParseLineRanges parses "1-3,5" into validated line ranges over a
// document of max lines.
func ParseLineRanges(expr string, max int) ([]LineRange, error) {
	var ranges []LineRange
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		start, end := 0, 0
		if dash := strings.Index(part, "-"); dash >= 0 {
			var err error
			start, err = strconv.Atoi(strings.TrimSpace(part[:dash]))
			if err != nil {
				return nil, fmt.Errorf("bad range start %q", part)
			}
			end, err = strconv.Atoi(strings.TrimSpace(part[dash+1:]))
			if err != nil {
				return nil, fmt.Errorf("bad range end %q", part)
			}
		} else {
			n, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("bad line number %q", part)
			}
			start, end = n, n
		}
		if start < 1 || end < start || end > max {
			return nil, fmt.Errorf("range %q out of bounds 1..%d", part, max)
		}
		ranges = append(ranges, LineRange{Start: start, End: end})
	}
	if len(ranges) == 0 {
		return nil, fmt.Errorf("no ranges in %q", expr)
	}
	return ranges, nil
}

// CropLines applies keep-ranges to a multi-line text.
func CropLines(text string, ranges []LineRange) string {
	lines := strings.Split(text, "\n")
	var kept []string
	for _, r := range ranges {
		for i := r.Start; i <= r.End && i <= len(lines); i++ {
			kept = append(kept, lines[i-1])
		}
	}
	return strings.Join(kept, "\n")
}

func summarize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 160 {
		return s[:157] + "..."
	}
	if s == "" {
		return "(empty)"
	}
	return s
}

func isYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	}
	return false
}

func isNo(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "n", "no":
		return true
	}
	return false
}
