package extract

import (
	"fmt"

	"github.com/hurttlocker/bluebook/internal/textpos"
)

// fundEntry is one fund row accumulated into the current fund group.
// Project code and funding type are captured at row time: allocations
// carry whatever was in effect when the row appeared.
type fundEntry struct {
	code    string
	name    string
	amounts [3]string
	project string
	ftype   FundingType
	line    int
}

// Allocations extracts budget allocations from a section's expenditure
// table. It locates DETAILED EXPENDITURES BY PROGRAM, validates the three
// fiscal-year column labels, then walks the table tracking the current
// project code and funding type. Fund rows match either as one line or
// as a two-line split; a fund group flushes on a funding-type switch or
// a Totals row, emitting exactly three allocations per fund; a fund
// with fewer than three parseable amounts is skipped whole.
func Allocations(lines []textpos.Line, orgCode string) ([]Allocation, []Warning) {
	start := -1
	for i, ln := range lines {
		if textpos.IsHeading(ln.Text, textpos.HeadingDetailedExpenditures) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, nil
	}

	years, tableStart, warn := fiscalYears(lines, start+1)
	if years == nil {
		return nil, append([]Warning(nil), warn...)
	}

	var (
		allocs   []Allocation
		warnings = warn
		group    []fundEntry
		pending  *fundEntry

		curProject string
		curType    FundingType
	)

	projectOrDefault := func() string {
		if curProject != "" {
			return curProject
		}
		return textpos.WidenProjectCode(orgCode)
	}

	flush := func() {
		for _, f := range group {
			var amounts [3]int64
			ok := true
			for i, tok := range f.amounts {
				n, err := ParseAmount(tok)
				if err != nil {
					warnings = append(warnings, Warning{Line: f.line, Text: f.name, Why: err.Error()})
					ok = false
					break
				}
				amounts[i] = n
			}
			if !ok {
				continue
			}
			for i, fy := range years {
				allocs = append(allocs, Allocation{
					ProjectCode:      f.project,
					OrganizationCode: orgCode,
					FundingType:      f.ftype,
					FundCode:         f.code,
					FundName:         f.name,
					Amount:           amounts[i],
					FiscalYear:       fy,
				})
			}
		}
		group = group[:0]
	}

	rows := lines[tableStart:]
	for i, ln := range rows {
		text := textpos.NormalizeText(ln.Text)
		if text == "" {
			continue
		}
		// Page-break artifacts reopening the section mid-table would
		// otherwise read as project code changes.
		if textpos.ContinuationHeaderRE.MatchString(text) || textpos.ContinuedSuffixRE.MatchString(text) {
			continue
		}

		if pending != nil {
			if m := textpos.AmountTailRE.FindStringSubmatch(text); m != nil {
				if frag := textpos.NormalizeText(m[1]); frag != "" {
					pending.name += " " + frag
				}
				pending.amounts = [3]string{m[2], m[3], m[4]}
				pending.line = ln.Seq
				group = append(group, *pending)
				pending = nil
				continue
			}
			warnings = append(warnings, Warning{Line: ln.Seq, Text: ln.Text, Why: "split fund row missing amount columns"})
			pending = nil
		}

		switch {
		case textpos.ProgramRequirementsRE.MatchString(text):
			// next code line names the program
			continue

		case textpos.StateOperationsRE.MatchString(text):
			flush()
			curType = StateOperations
			continue

		case textpos.LocalAssistanceRE.MatchString(text):
			flush()
			curType = LocalAssistance
			continue

		case textpos.TotalsRE.MatchString(text):
			flush()
			continue
		}

		if m := textpos.BareCodeRE.FindStringSubmatch(text); m != nil {
			curProject = textpos.WidenProjectCode(m[1])
			continue
		}

		if m := textpos.FundRowRE.FindStringSubmatch(text); m != nil {
			if curType == "" {
				warnings = append(warnings, Warning{Line: ln.Seq, Text: ln.Text, Why: "fund row before any funding type marker"})
				continue
			}
			group = append(group, fundEntry{
				code:    m[1],
				name:    textpos.NormalizeText(m[2]),
				amounts: [3]string{m[3], m[4], m[5]},
				project: projectOrDefault(),
				ftype:   curType,
				line:    ln.Seq,
			})
			continue
		}

		if m := textpos.ProjectCodeRE.FindStringSubmatch(text); m != nil {
			// A 4-digit code plus a partial name is the first half of a
			// split fund row when the very next line carries the three
			// amount columns; otherwise it sets the current project.
			if len(m[1]) == 4 && curType != "" && i+1 < len(rows) &&
				textpos.AmountTailRE.MatchString(textpos.NormalizeText(rows[i+1].Text)) {
				pending = &fundEntry{
					code:    m[1],
					name:    textpos.NormalizeText(m[2]),
					project: projectOrDefault(),
					ftype:   curType,
					line:    ln.Seq,
				}
				continue
			}
			curProject = textpos.WidenProjectCode(m[1])
			continue
		}

		if textpos.NumericNoiseRE.MatchString(text) {
			continue
		}
	}

	if pending != nil {
		warnings = append(warnings, Warning{Line: pending.line, Text: pending.name, Why: "split fund row never completed"})
	}
	flush()

	return allocs, warnings
}

// fiscalYears finds the closest run of three consecutive valid fiscal
// year labels after the expenditure heading. Labels may share one line or
// span adjacent lines; an invalid label breaks the run.
func fiscalYears(lines []textpos.Line, from int) ([]string, int, []Warning) {
	var run []string
	var warnings []Warning

	for i := from; i < len(lines); i++ {
		matches := textpos.FiscalYearRE.FindAllStringSubmatch(lines[i].Text, -1)
		for _, m := range matches {
			if !textpos.ValidFiscalYear(m[1], m[2]) {
				warnings = append(warnings, Warning{Line: lines[i].Seq, Text: lines[i].Text,
					Why: fmt.Sprintf("fiscal year label %s-%s fails short-year check", m[1], m[2])})
				run = run[:0]
				continue
			}
			run = append(run, m[1]+"-"+m[2])
			if len(run) == 3 {
				return run, i + 1, warnings
			}
		}
	}

	warnings = append(warnings, Warning{Line: -1, Why: "no three consecutive fiscal year labels found"})
	return nil, 0, warnings
}
