package extract

import (
	"testing"

	"github.com/hurttlocker/bluebook/internal/textpos"
)

// mkLines builds positional lines from (x, text) pairs; y increases
// monotonically so the lines read top to bottom.
func mkLines(rows []struct {
	x    int
	text string
}) []textpos.Line {
	lines := make([]textpos.Line, len(rows))
	for i, r := range rows {
		lines[i] = textpos.Line{Seq: i, Page: 1, X: r.x, Y: 100 + i*12, Text: r.text}
	}
	return lines
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"-", 0, false},
		{"$1,234", 1234, false},
		{"1234", 1234, false},
		{"-5,000", -5000, false},
		{"$-42", -42, false},
		{" 100 ", 100, false},
		{"$", 0, true},
		{"abc", 0, true},
	}
	for _, c := range cases {
		got, err := ParseAmount(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseAmount(%q): expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q) failed: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseAmount(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestPrograms(t *testing.T) {
	lines := mkLines([]struct {
		x    int
		text string
	}{
		{72, "3600 DEPARTMENT OF FISH AND GAME"},
		{72, "PROGRAM DESCRIPTIONS"},
		{72, "3600010 - MANAGEMENT OF FISH AND WILDLIFE"},
		{90, "The department manages fish and wildlife resources."},
		{90, "1,234"},
		{72, "3605 HABITAT"},
		{74, "CONSERVATION"},
		{90, "Protects and restores habitat."},
		{90, "It coordinates with local agencies."},
		{72, "DETAILED EXPENDITURES BY PROGRAM"},
	})

	programs, warnings := Programs(lines)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", warnings)
	}
	if len(programs) != 2 {
		t.Fatalf("expected 2 programs, got %d", len(programs))
	}

	p := programs[0]
	if p.ProjectCode != "3600010" {
		t.Errorf("project code = %s", p.ProjectCode)
	}
	if p.Name != "MANAGEMENT OF FISH AND WILDLIFE" {
		t.Errorf("name = %q", p.Name)
	}
	if p.Description != "The department manages fish and wildlife resources." {
		t.Errorf("description = %q", p.Description)
	}

	p = programs[1]
	if p.ProjectCode != "3605000" {
		t.Errorf("4-digit code not widened: %s", p.ProjectCode)
	}
	if p.Name != "HABITAT CONSERVATION" {
		t.Errorf("split name not joined: %q", p.Name)
	}
	if p.Description != "Protects and restores habitat.\nIt coordinates with local agencies." {
		t.Errorf("description = %q", p.Description)
	}
}

func TestProgramsNoDescriptionBlock(t *testing.T) {
	lines := mkLines([]struct {
		x    int
		text string
	}{
		{72, "3600 DEPARTMENT OF FISH AND GAME"},
		{72, "DETAILED EXPENDITURES BY PROGRAM"},
	})
	programs, warnings := Programs(lines)
	if programs != nil || warnings != nil {
		t.Errorf("expected nil results without a narrative block, got %v / %v", programs, warnings)
	}
}

func TestProgramsHeaderLineWithoutCode(t *testing.T) {
	lines := mkLines([]struct {
		x    int
		text string
	}{
		{72, "PROGRAM DESCRIPTIONS"},
		{72, "STRAY HEADER TEXT"},
		{72, "3600010 - MANAGEMENT"},
		{90, "Narrative."},
	})
	programs, warnings := Programs(lines)
	if len(programs) != 1 {
		t.Fatalf("expected 1 program, got %d", len(programs))
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning for the stray header line, got %d", len(warnings))
	}
}

func TestSynthesizeFromAllocations(t *testing.T) {
	allocs := []Allocation{
		{ProjectCode: "3600010"},
		{ProjectCode: "3600010"},
		{ProjectCode: "3600020"},
	}
	programs := SynthesizeFromAllocations(allocs)
	if len(programs) != 2 {
		t.Fatalf("expected 2 distinct programs, got %d", len(programs))
	}
	for _, p := range programs {
		if p.Name != "" {
			t.Errorf("synthetic program %s must have an empty name, got %q", p.ProjectCode, p.Name)
		}
	}
}

func TestAllocations(t *testing.T) {
	lines := mkLines([]struct {
		x    int
		text string
	}{
		{72, "DETAILED EXPENDITURES BY PROGRAM"},
		{80, "2015-16* 2016-17* 2017-18"},
		{72, "PROGRAM REQUIREMENTS"},
		{72, "3600010"},
		{80, "State Operations:"},
		{80, "0001 General Fund $100 110 120"},
		{80, "Totals, State Operations 100 110 120"},
		{80, "Local Assistance:"},
		{80, "0516 Harbors and Watercraft"},
		{80, "Revolving Fund 50 55 -"},
		{80, "Totals, Local Assistance 50 55 -"},
	})

	allocs, warnings := Allocations(lines, "3600")
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", warnings)
	}
	if len(allocs) != 6 {
		t.Fatalf("expected 6 allocations (3 per fund), got %d", len(allocs))
	}

	years := []string{"2015-16", "2016-17", "2017-18"}
	amounts := []int64{100, 110, 120}
	for i := 0; i < 3; i++ {
		a := allocs[i]
		if a.FundCode != "0001" || a.FundName != "General Fund" {
			t.Errorf("alloc %d fund = %s %q", i, a.FundCode, a.FundName)
		}
		if a.ProjectCode != "3600010" || a.OrganizationCode != "3600" {
			t.Errorf("alloc %d codes = %s / %s", i, a.ProjectCode, a.OrganizationCode)
		}
		if a.FundingType != StateOperations {
			t.Errorf("alloc %d funding type = %s", i, a.FundingType)
		}
		if a.FiscalYear != years[i] || a.Amount != amounts[i] {
			t.Errorf("alloc %d = %s %d", i, a.FiscalYear, a.Amount)
		}
	}

	split := allocs[3]
	if split.FundCode != "0516" {
		t.Errorf("split fund code = %s", split.FundCode)
	}
	if split.FundName != "Harbors and Watercraft Revolving Fund" {
		t.Errorf("split fund name = %q", split.FundName)
	}
	if split.FundingType != LocalAssistance {
		t.Errorf("split funding type = %s", split.FundingType)
	}
	if allocs[5].Amount != 0 {
		t.Errorf("dash amount should parse to zero, got %d", allocs[5].Amount)
	}
}

func TestAllocationsDefaultProject(t *testing.T) {
	// No project code before the fund row: the allocation falls back to
	// the widened org code.
	lines := mkLines([]struct {
		x    int
		text string
	}{
		{72, "DETAILED EXPENDITURES BY PROGRAM"},
		{80, "2015-16 2016-17 2017-18"},
		{80, "State Operations:"},
		{80, "0001 General Fund 10 20 30"},
		{80, "Totals, State Operations 10 20 30"},
	})
	allocs, _ := Allocations(lines, "3600")
	if len(allocs) != 3 {
		t.Fatalf("expected 3 allocations, got %d", len(allocs))
	}
	if allocs[0].ProjectCode != "3600000" {
		t.Errorf("default project = %s, want 3600000", allocs[0].ProjectCode)
	}
}

func TestAllocationsFundRowBeforeFundingType(t *testing.T) {
	lines := mkLines([]struct {
		x    int
		text string
	}{
		{72, "DETAILED EXPENDITURES BY PROGRAM"},
		{80, "2015-16 2016-17 2017-18"},
		{80, "0001 General Fund 10 20 30"},
	})
	allocs, warnings := Allocations(lines, "3600")
	if len(allocs) != 0 {
		t.Fatalf("expected no allocations, got %d", len(allocs))
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}
}

func TestAllocationsTrailingPartialRow(t *testing.T) {
	// A code-plus-name line with no amount columns following it is a
	// project code change, not a fund row; nothing extra is emitted.
	lines := mkLines([]struct {
		x    int
		text string
	}{
		{72, "DETAILED EXPENDITURES BY PROGRAM"},
		{80, "2015-16 2016-17 2017-18"},
		{80, "State Operations:"},
		{80, "0001 General Fund 10 20 30"},
		{80, "0516 Harbors and Watercraft"},
	})
	allocs, warnings := Allocations(lines, "3600")
	if len(allocs) != 3 {
		t.Fatalf("expected the complete fund only, got %d allocations", len(allocs))
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", warnings)
	}
}

func TestAllocationsInvalidYearResetsRun(t *testing.T) {
	lines := mkLines([]struct {
		x    int
		text string
	}{
		{72, "DETAILED EXPENDITURES BY PROGRAM"},
		{80, "2015-17"},
		{80, "2016-17 2017-18 2018-19"},
		{80, "State Operations:"},
		{80, "0001 General Fund 10 20 30"},
		{80, "Totals, State Operations 10 20 30"},
	})
	allocs, warnings := Allocations(lines, "3600")
	if len(allocs) != 3 {
		t.Fatalf("expected 3 allocations, got %d", len(allocs))
	}
	if allocs[0].FiscalYear != "2016-17" {
		t.Errorf("first fiscal year = %s, want 2016-17", allocs[0].FiscalYear)
	}
	if len(warnings) != 1 {
		t.Errorf("expected the invalid-label warning, got %d", len(warnings))
	}
}

func TestAllocationsSkipContinuationHeader(t *testing.T) {
	// A page break reopened the section in the middle of the table; the
	// continuation header must not read as a project code change.
	lines := mkLines([]struct {
		x    int
		text string
	}{
		{72, "DETAILED EXPENDITURES BY PROGRAM"},
		{80, "2015-16 2016-17 2017-18"},
		{80, "3600010"},
		{80, "State Operations:"},
		{72, "3600 DEPARTMENT OF FISH AND WILDLIFE - Continued"},
		{80, "0001 General Fund 10 20 30"},
		{80, "Totals, State Operations 10 20 30"},
	})
	allocs, warnings := Allocations(lines, "3600")
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", warnings)
	}
	if len(allocs) != 3 {
		t.Fatalf("expected 3 allocations, got %d", len(allocs))
	}
	if allocs[0].ProjectCode != "3600010" {
		t.Errorf("continuation header changed the project: %s", allocs[0].ProjectCode)
	}
}

func TestAllocationsNoHeading(t *testing.T) {
	lines := mkLines([]struct {
		x    int
		text string
	}{
		{72, "PROGRAM DESCRIPTIONS"},
	})
	allocs, warnings := Allocations(lines, "3600")
	if allocs != nil || warnings != nil {
		t.Errorf("expected nil results without the heading, got %v / %v", allocs, warnings)
	}
}
