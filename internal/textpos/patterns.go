package textpos

import (
	"regexp"
	"strconv"
	"strings"
)

// Structural markers and code shapes recognized in budget dumps. Compiled
// once at package load, like the capture patterns in the ingest layer.
var (
	// ExpenditureMarkerRE announces a department's 3-year expenditure
	// table. The leading "3" is frequently misread by OCR (THREE, 8, S),
	// and hyphens drift in and out of "3-YR".
	ExpenditureMarkerRE = regexp.MustCompile(`(?i)^(?:3|three|8|s)[\s-]*(?:yr|year)[\s-]*expenditures[\s-]+and[\s-]+positions`)

	// ContinuationHeaderRE matches the single-line form
	// "ORGCODE NAME - Continued" that reopens a section after a page break.
	ContinuationHeaderRE = regexp.MustCompile(`(?i)^(\d{4})\s+(.+?)\s*[-–—]\s*continued\s*$`)

	// ContinuedSuffixRE matches a standalone "Continued" line belonging to
	// a header split across two physical lines.
	ContinuedSuffixRE = regexp.MustCompile(`(?i)^[-–—]?\s*continued\s*$`)

	// HeaderPrefixRE matches any line that begins with a 4-digit
	// organizational code followed by text.
	HeaderPrefixRE = regexp.MustCompile(`^(\d{4})\s+(\S.*)$`)

	// ProjectCodeRE matches a program header line: a 4- or 7-digit code
	// followed by the program name.
	ProjectCodeRE = regexp.MustCompile(`^(\d{7}|\d{4})(?:\s*[-–—]\s*|\s+)(\S.*)$`)

	// BareCodeRE matches a line holding only a 4- or 7-digit code.
	BareCodeRE = regexp.MustCompile(`^(\d{7}|\d{4})$`)

	// FiscalYearRE matches one "YYYY-YY" fiscal year label; a trailing
	// asterisk marks estimated columns in some documents.
	FiscalYearRE = regexp.MustCompile(`(\d{4})-(\d{2})\*?`)

	// FundRowRE matches a complete one-line fund row:
	// fund code, fund name, three amount columns.
	FundRowRE = regexp.MustCompile(`^(\d{4})\s+(.+?)\s+(-|\$?-?[0-9][0-9,]*)\s+(-|\$?-?[0-9][0-9,]*)\s+(-|\$?-?[0-9][0-9,]*)$`)

	// AmountTailRE matches the second line of a split fund row: an
	// optional trailing name fragment followed by three amount columns.
	AmountTailRE = regexp.MustCompile(`^(.*?)\s*(-|\$?-?[0-9][0-9,]*)\s+(-|\$?-?[0-9][0-9,]*)\s+(-|\$?-?[0-9][0-9,]*)$`)

	// StateOperationsRE and LocalAssistanceRE toggle the current funding
	// type inside an expenditure table.
	StateOperationsRE = regexp.MustCompile(`(?i)^state\s+operations:?\s*$`)
	LocalAssistanceRE = regexp.MustCompile(`(?i)^local\s+assistance:?\s*$`)

	// TotalsRE matches the "Totals, ..." rows that close a fund group.
	TotalsRE = regexp.MustCompile(`(?i)^totals[,\s]`)

	// ProgramRequirementsRE matches the PROGRAM REQUIREMENTS /
	// SUBPROGRAM REQUIREMENTS rows that precede a project code.
	ProgramRequirementsRE = regexp.MustCompile(`(?i)^(?:sub)?program\s+requirements\s*$`)

	// NumericNoiseRE matches lines made only of digits, currency
	// punctuation, and dashes (amount columns, page artifacts).
	NumericNoiseRE = regexp.MustCompile(`^[\s\d$,.()%*–—-]+$`)

	spacesRE = regexp.MustCompile(`\s+`)
)

// Subsection headings that terminate a PROGRAM DESCRIPTIONS block.
const (
	HeadingProgramDescriptions  = "PROGRAM DESCRIPTIONS"
	HeadingDetailedExpenditures = "DETAILED EXPENDITURES BY PROGRAM"
	HeadingExpendituresCategory = "EXPENDITURES BY CATEGORY"
	HeadingAppropriations       = "DETAIL OF APPROPRIATIONS AND ADJUSTMENTS"
	HeadingAuthorizedPositions  = "CHANGES IN AUTHORIZED POSITIONS"
)

// DescriptionEndHeadings are the known headings that follow a
// PROGRAM DESCRIPTIONS block, in no particular order of appearance.
var DescriptionEndHeadings = []string{
	HeadingDetailedExpenditures,
	HeadingExpendituresCategory,
	HeadingAppropriations,
	HeadingAuthorizedPositions,
}

// IsHeading reports whether a line's text is the given subsection heading,
// ignoring case and surrounding whitespace.
func IsHeading(text, heading string) bool {
	return strings.EqualFold(NormalizeText(text), heading)
}

// NormalizeText collapses whitespace and trims a line for comparisons.
func NormalizeText(text string) string {
	return strings.TrimSpace(spacesRE.ReplaceAllString(text, " "))
}

// NormalizeHeader produces the grouping key for a section header: the
// "- Continued" suffix stripped, whitespace collapsed, case folded.
func NormalizeHeader(text string) string {
	t := NormalizeText(text)
	if m := ContinuationHeaderRE.FindStringSubmatch(t); m != nil {
		t = m[1] + " " + m[2]
	}
	return strings.ToUpper(NormalizeText(t))
}

// ValidFiscalYear reports whether a "YYYY-YY" label is internally
// consistent: the short year must equal (full year + 1) mod 100.
func ValidFiscalYear(full, short string) bool {
	f, err := strconv.Atoi(full)
	if err != nil {
		return false
	}
	s, err := strconv.Atoi(short)
	if err != nil {
		return false
	}
	return (f+1)%100 == s
}

// WidenProjectCode turns a 4-digit org/program code into the 7-digit
// project form by appending "000". Genuine 7-digit codes pass through.
func WidenProjectCode(code string) string {
	if len(code) == 4 {
		return code + "000"
	}
	return code
}
