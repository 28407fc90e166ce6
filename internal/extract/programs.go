package extract

import (
	"strings"

	"github.com/hurttlocker/bluebook/internal/textpos"
)

// headerXTolerance is how far (in points) a line's x may drift from the
// primary header column and still count as part of it. Matches the
// coordinate jitter observed in the upstream PDF extraction.
const headerXTolerance = 3

// Programs extracts program descriptions from a section's positional
// lines. The narrative block runs from the PROGRAM DESCRIPTIONS heading
// to the nearest of the known subsequent headings; within it, lines at
// the primary header x-coordinate that carry a project code start a new
// program, similar-x lines extend its name, and deeper-indented lines
// accumulate into its description.
func Programs(lines []textpos.Line) ([]Program, []Warning) {
	start, end := descriptionBounds(lines)
	if start < 0 {
		return nil, nil
	}

	block := lines[start+1 : end]

	headerX, found := primaryHeaderX(block)
	if !found {
		return nil, []Warning{{
			Line: lines[start].Seq,
			Text: lines[start].Text,
			Why:  "no project-code lines under PROGRAM DESCRIPTIONS",
		}}
	}

	var (
		programs []Program
		current  *Program
		warnings []Warning
	)

	flush := func() {
		if current != nil {
			current.Name = textpos.NormalizeText(current.Name)
			current.Description = strings.TrimSpace(current.Description)
			programs = append(programs, *current)
			current = nil
		}
	}

	for _, ln := range block {
		text := textpos.NormalizeText(ln.Text)
		if text == "" {
			continue
		}
		// Page-break artifacts reopening the section mid-block.
		if textpos.ContinuationHeaderRE.MatchString(text) || textpos.ContinuedSuffixRE.MatchString(text) {
			continue
		}

		atHeader := ln.X <= headerX+headerXTolerance

		if atHeader {
			if m := textpos.ProjectCodeRE.FindStringSubmatch(text); m != nil {
				flush()
				current = &Program{
					ProjectCode: textpos.WidenProjectCode(m[1]),
					Name:        m[2],
				}
				continue
			}
			if current != nil && !textpos.NumericNoiseRE.MatchString(text) {
				current.Name += " " + text
				continue
			}
			warnings = append(warnings, Warning{Line: ln.Seq, Text: ln.Text, Why: "header-column line without project code"})
			continue
		}

		// Indented: description text for the current program. Pure
		// numeric/currency lines are column spillover, not narrative.
		if current == nil || textpos.NumericNoiseRE.MatchString(text) {
			continue
		}
		if current.Description != "" {
			current.Description += "\n"
		}
		current.Description += text
	}
	flush()

	return programs, warnings
}

// SynthesizeFromAllocations builds placeholder programs for project
// codes that appear in the expenditure table of a section without a
// narrative description block. Names stay empty so a later merge never
// clobbers a real canonical name with a synthetic one.
func SynthesizeFromAllocations(allocs []Allocation) []Program {
	seen := map[string]bool{}
	var programs []Program
	for _, a := range allocs {
		if seen[a.ProjectCode] {
			continue
		}
		seen[a.ProjectCode] = true
		programs = append(programs, Program{ProjectCode: a.ProjectCode})
	}
	return programs
}

// descriptionBounds locates the PROGRAM DESCRIPTIONS heading and the
// nearest following end heading. Returns start = -1 when the section has
// no narrative block.
func descriptionBounds(lines []textpos.Line) (start, end int) {
	start = -1
	for i, ln := range lines {
		if textpos.IsHeading(ln.Text, textpos.HeadingProgramDescriptions) {
			start = i
			break
		}
	}
	if start < 0 {
		return -1, -1
	}

	end = len(lines)
	for i := start + 1; i < len(lines); i++ {
		for _, h := range textpos.DescriptionEndHeadings {
			if textpos.IsHeading(lines[i].Text, h) {
				return start, i
			}
		}
	}
	return start, end
}

// primaryHeaderX is the minimum x among lines that look like a project
// code header; that column is where program entries begin.
func primaryHeaderX(block []textpos.Line) (int, bool) {
	minX := 0
	found := false
	for _, ln := range block {
		text := textpos.NormalizeText(ln.Text)
		if !textpos.ProjectCodeRE.MatchString(text) || textpos.ContinuationHeaderRE.MatchString(text) {
			continue
		}
		if !found || ln.X < minX {
			minX = ln.X
			found = true
		}
	}
	return minX, found
}
