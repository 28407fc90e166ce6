// Package segment carves a budget document into ordered per-department
// sections.
//
// Continuation headers, not expenditure markers, delimit true section
// starts: a marker can appear anywhere inside a section, while the
// "ORGCODE NAME - Continued" header reliably reopens the section at
// every page break. The engine pairs each marker, in document order,
// with the next unconsumed continuation-header group and searches
// backward for the literal header line that opened the section. A failed
// pairing is reviewed immediately so a bad marker cannot misalign every
// section after it.
package segment

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hurttlocker/bluebook/internal/review"
	"github.com/hurttlocker/bluebook/internal/textpos"
)

// splitHeaderWindow is how many lines after a header-prefix line a
// standalone "Continued" suffix may appear and still join it.
const splitHeaderWindow = 5

// Section is one department's slice of a document.
type Section struct {
	OrgCode        string
	DepartmentName string
	StartLine      int // index of the section-header line
	Content        []textpos.Line
}

// Result counts segmentation outcomes for the run summary.
type Result struct {
	Markers         int
	Sections        int
	ReviewsRaised   int
	ReviewsResolved int
	MarkersSkipped  int
}

// headerGroup is one continuation header's appearances, keyed by
// normalized base text with coordinates and the suffix stripped.
type headerGroup struct {
	base     string
	orgCode  string
	name     string
	first    int // line index of first appearance
	lastSeen int // highest line index any appearance was verified at
}

// Engine segments documents, escalating failed pairings to a Reviewer.
type Engine struct {
	reviewer review.Reviewer
	log      *zap.Logger
}

// New builds a segmentation engine.
func New(reviewer review.Reviewer, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{reviewer: reviewer, log: log}
}

// Split segments one document into sections.
func (e *Engine) Split(doc *textpos.Document, sourceFile string) ([]Section, *Result, error) {
	res := &Result{}

	markers := findMarkers(doc)
	res.Markers = len(markers)
	groups := collectHeaderGroups(doc)

	type boundary struct {
		header int
		marker int
		code   string
		name   string
	}
	var bounds []boundary

	groupIdx := 0
	searchFloor := 0
	prevDepartment := ""

	for _, m := range markers {
		if groupIdx >= len(groups) {
			res.MarkersSkipped++
			e.log.Warn("expenditure marker without continuation header group",
				zap.String("file", sourceFile), zap.Int("line", m))
			continue
		}
		g := groups[groupIdx]

		header := findHeaderLine(doc, g.base, searchFloor, m)
		if header < 0 {
			res.ReviewsRaised++
			decision, err := e.reviewSegmentation(doc, sourceFile, m, g, searchFloor, prevDepartment)
			if err != nil {
				return nil, res, err
			}
			if decision.Skip {
				// The marker may be spurious; keep the group for the
				// next genuine marker.
				res.MarkersSkipped++
				continue
			}
			res.ReviewsResolved++
			header = decision.Pick
		}

		code, name := splitHeaderText(doc.Lines[header].Text)
		if code == "" {
			code, name = g.orgCode, g.name
		}
		bounds = append(bounds, boundary{header: header, marker: m, code: code, name: name})

		searchFloor = maxInt(g.lastSeen, header)
		prevDepartment = code + " " + name
		groupIdx++
	}

	sections := make([]Section, 0, len(bounds))
	for i, b := range bounds {
		end := len(doc.Lines)
		if i+1 < len(bounds) {
			end = bounds[i+1].header
		}
		sections = append(sections, Section{
			OrgCode:        b.code,
			DepartmentName: b.name,
			StartLine:      b.header,
			Content:        doc.Lines[b.header:end],
		})
	}
	res.Sections = len(sections)
	return sections, res, nil
}

// reviewSegmentation builds and resolves a segmentation review for a
// marker whose header could not be located. The decision's Pick is
// translated back to a document line index.
func (e *Engine) reviewSegmentation(doc *textpos.Document, sourceFile string, marker int, g *headerGroup, floor int, prevDepartment string) (struct {
	Pick int
	Skip bool
}, error) {
	out := struct {
		Pick int
		Skip bool
	}{Skip: true}

	var candidates []review.HeaderCandidate
	for i := floor; i < marker; i++ {
		if textpos.HeaderPrefixRE.MatchString(textpos.NormalizeText(doc.Lines[i].Text)) {
			candidates = append(candidates, review.HeaderCandidate{Line: i, Text: doc.Lines[i].Text})
		}
	}

	decision, err := e.reviewer.ReviewSegmentation(review.SegmentationRequest{
		SourceFile:     sourceFile,
		MarkerLine:     marker,
		MarkerText:     doc.Lines[marker].Text,
		ExpectedHeader: g.base,
		SearchStart:    floor,
		SearchEnd:      marker,
		PrevDepartment: prevDepartment,
		Candidates:     candidates,
	})
	if err != nil {
		return out, fmt.Errorf("segmentation review: %w", err)
	}
	if decision.Skip || decision.Pick < 0 || decision.Pick >= len(candidates) {
		return out, nil
	}
	out.Skip = false
	out.Pick = candidates[decision.Pick].Line
	return out, nil
}

// findMarkers returns the line indexes of every expenditure marker.
func findMarkers(doc *textpos.Document) []int {
	var markers []int
	for i, ln := range doc.Lines {
		if textpos.ExpenditureMarkerRE.MatchString(textpos.NormalizeText(ln.Text)) {
			markers = append(markers, i)
		}
	}
	return markers
}

// collectHeaderGroups scans for continuation headers in both forms and
// groups them by normalized base text, in order of first appearance.
func collectHeaderGroups(doc *textpos.Document) []*headerGroup {
	byBase := map[string]*headerGroup{}
	var order []*headerGroup

	record := func(base string, idx int) {
		m := textpos.HeaderPrefixRE.FindStringSubmatch(base)
		if m == nil {
			return
		}
		g, ok := byBase[base]
		if !ok {
			g = &headerGroup{base: base, orgCode: m[1], name: m[2], first: idx, lastSeen: idx}
			byBase[base] = g
			order = append(order, g)
		}
		if idx > g.lastSeen {
			g.lastSeen = idx
		}
	}

	for i, ln := range doc.Lines {
		text := textpos.NormalizeText(ln.Text)

		if textpos.ContinuationHeaderRE.MatchString(text) {
			record(textpos.NormalizeHeader(text), i)
			continue
		}

		// Split form: a header-prefix line whose "Continued" suffix
		// landed on its own line within the next few lines. The joined
		// header text is reconstructed from the prefix.
		if textpos.HeaderPrefixRE.MatchString(text) {
			limit := i + splitHeaderWindow
			if limit >= len(doc.Lines) {
				limit = len(doc.Lines) - 1
			}
			for j := i + 1; j <= limit; j++ {
				if textpos.ContinuedSuffixRE.MatchString(textpos.NormalizeText(doc.Lines[j].Text)) {
					record(textpos.NormalizeHeader(text), i)
					break
				}
			}
		}
	}
	return order
}

// findHeaderLine searches backward from the marker to the floor for a
// literal line whose normalized text equals the group's base text.
func findHeaderLine(doc *textpos.Document, base string, floor, marker int) int {
	for i := marker - 1; i >= floor; i-- {
		if textpos.NormalizeHeader(doc.Lines[i].Text) == base &&
			!textpos.ContinuationHeaderRE.MatchString(textpos.NormalizeText(doc.Lines[i].Text)) {
			return i
		}
	}
	return -1
}

// splitHeaderText parses "CODE NAME" from a section-header line.
func splitHeaderText(text string) (code, name string) {
	m := textpos.HeaderPrefixRE.FindStringSubmatch(textpos.NormalizeText(text))
	if m == nil {
		return "", ""
	}
	return m[1], m[2]
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
