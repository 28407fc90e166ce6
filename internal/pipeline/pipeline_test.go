package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hurttlocker/bluebook/internal/review"
	"github.com/hurttlocker/bluebook/internal/store"
)

// scriptedReviewer answers every checkpoint with fixed decisions and
// records how often each was consulted.
type scriptedReviewer struct {
	changeAction review.ChangeAction
	declineNew   bool

	segCalls    int
	changeCalls int
	createCalls int
}

func (s *scriptedReviewer) ReviewSegmentation(review.SegmentationRequest) (review.SegmentationDecision, error) {
	s.segCalls++
	return review.SegmentationDecision{Skip: true}, nil
}

func (s *scriptedReviewer) ReviewChanges(review.ChangeRequest) (review.ChangeDecision, error) {
	s.changeCalls++
	return review.ChangeDecision{Action: s.changeAction}, nil
}

func (s *scriptedReviewer) CreateDepartment(review.DepartmentCreateRequest) (review.DepartmentCreateDecision, error) {
	s.createCalls++
	if s.declineNew {
		return review.DepartmentCreateDecision{}, nil
	}
	return review.DepartmentCreateDecision{Create: true, Active: true, ParentAgency: "Natural Resources Agency"}, nil
}

const sampleDocument = `# === PAGE 1 === [size: 612x792]
[0:0:72,90] 3600 DEPARTMENT OF FISH AND WILDLIFE
[0:1:72,100] 3-YR EXPENDITURES AND POSITIONS
[0:2:72,110] PROGRAM DESCRIPTIONS
[0:3:72,120] 3600 - DEPARTMENT OF FISH AND WILDLIFE
[0:4:90,130] Manages the state's fish and wildlife resources.
[0:5:72,140] 3600010 - MANAGEMENT OF FISH AND WILDLIFE
[0:6:90,150] Conserves habitat and enforces regulations.
[0:7:72,160] DETAILED EXPENDITURES BY PROGRAM
[0:8:80,170] 2015-16 2016-17 2017-18
# === PAGE 2 === [size: 612x792]
[1:0:72,90] 3600 DEPARTMENT OF FISH AND WILDLIFE - Continued
[1:1:80,100] State Operations:
[1:2:80,110] 3600010
[1:3:80,120] 0001 General Fund 100 110 120
[1:4:80,130] Totals, State Operations 100 110 120
`

func writeSample(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(sampleDocument), 0644); err != nil {
		t.Fatalf("writing sample: %v", err)
	}
}

func newTestPipeline(t *testing.T, rev review.Reviewer) (*Pipeline, *store.Store) {
	t.Helper()
	s, err := store.Open(store.Config{DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s, rev, nil, &bytes.Buffer{}, 85), s
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "state_2015_budget.txt")

	rev := &scriptedReviewer{changeAction: review.ActionAccept}
	p, s := newTestPipeline(t, rev)
	ctx := context.Background()

	result, err := p.Run(ctx, Options{Dir: dir})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.FilesScanned != 1 || result.FilesProcessed != 1 {
		t.Errorf("files = %+v", result)
	}
	if result.SectionsFound != 1 || result.SectionsMerged != 1 {
		t.Errorf("sections = %+v", result)
	}
	if result.DepartmentsCreated != 1 || result.DepartmentsMatched != 0 {
		t.Errorf("departments = %+v", result)
	}
	if result.ProgramsNew != 2 {
		t.Errorf("programs new = %d", result.ProgramsNew)
	}
	if result.AllocationsNew != 3 || result.AllocationsOverwritten != 0 {
		t.Errorf("allocations = %d/%d", result.AllocationsNew, result.AllocationsOverwritten)
	}
	if result.FundsNew != 1 {
		t.Errorf("funds new = %d", result.FundsNew)
	}
	if rev.createCalls != 1 || rev.changeCalls != 1 || rev.segCalls != 0 {
		t.Errorf("reviewer calls = %d/%d/%d", rev.createCalls, rev.changeCalls, rev.segCalls)
	}

	dept, err := s.GetDepartment(ctx, "3600")
	if err != nil || dept == nil {
		t.Fatalf("GetDepartment = %v, %v", dept, err)
	}
	if dept.Description != "Manages the state's fish and wildlife resources." {
		t.Errorf("department description = %q", dept.Description)
	}
	if !dept.Active || dept.ParentAgency != "Natural Resources Agency" {
		t.Errorf("department = %+v", dept)
	}

	lines, _ := s.ListBudgetLines(ctx)
	if len(lines) != 3 {
		t.Fatalf("expected 3 budget lines, got %d", len(lines))
	}
	if lines[0].ProjectCode != "3600010" || lines[0].FundCode != "0001" {
		t.Errorf("line = %+v", lines[0])
	}

	done, _ := s.IsProcessed(ctx, "state_2015_budget.txt")
	if !done {
		t.Error("file missing from ledger after successful run")
	}
}

func TestRunIdempotentWithoutForce(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "state_2015_budget.txt")

	rev := &scriptedReviewer{changeAction: review.ActionAccept}
	p, _ := newTestPipeline(t, rev)
	ctx := context.Background()

	if _, err := p.Run(ctx, Options{Dir: dir}); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	result, err := p.Run(ctx, Options{Dir: dir})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if result.FilesSkipped != 1 || result.FilesProcessed != 0 {
		t.Errorf("second run = %+v", result)
	}
	if rev.changeCalls != 1 {
		t.Errorf("ledgered file must not be reviewed again, calls = %d", rev.changeCalls)
	}
}

func TestRunForceOverwrites(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "state_2015_budget.txt")

	rev := &scriptedReviewer{changeAction: review.ActionAccept}
	p, s := newTestPipeline(t, rev)
	ctx := context.Background()

	if _, err := p.Run(ctx, Options{Dir: dir}); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	result, err := p.Run(ctx, Options{Dir: dir, Force: true})
	if err != nil {
		t.Fatalf("forced run failed: %v", err)
	}
	if result.FilesProcessed != 1 {
		t.Errorf("forced run = %+v", result)
	}
	if result.DepartmentsMatched != 1 || result.DepartmentsCreated != 0 {
		t.Errorf("re-run should match, not create: %+v", result)
	}
	if result.AllocationsNew != 0 || result.AllocationsOverwritten != 3 {
		t.Errorf("allocations = %d/%d", result.AllocationsNew, result.AllocationsOverwritten)
	}

	lines, _ := s.ListBudgetLines(ctx)
	if len(lines) != 3 {
		t.Errorf("overwrite must not duplicate rows, got %d", len(lines))
	}
	for _, l := range lines {
		if l.Count != 1 {
			t.Errorf("count must reset to 1, got %d", l.Count)
		}
	}
}

func TestRunSkipFileLeavesLedgerAlone(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "state_2015_budget.txt")

	rev := &scriptedReviewer{changeAction: review.ActionSkipFile}
	p, s := newTestPipeline(t, rev)
	ctx := context.Background()

	result, err := p.Run(ctx, Options{Dir: dir})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.FilesSkipped != 1 || result.FilesProcessed != 0 {
		t.Errorf("result = %+v", result)
	}
	if result.SectionsMerged != 0 {
		t.Errorf("skipped file merged sections: %+v", result)
	}

	done, _ := s.IsProcessed(ctx, "state_2015_budget.txt")
	if done {
		t.Error("skipped file must stay out of the ledger")
	}
	lines, _ := s.ListBudgetLines(ctx)
	if len(lines) != 0 {
		t.Errorf("skipped file wrote %d budget lines", len(lines))
	}
}

func TestRunRejectedSectionNotSaved(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "state_2015_budget.txt")

	rev := &scriptedReviewer{changeAction: review.ActionReject}
	p, s := newTestPipeline(t, rev)
	ctx := context.Background()

	result, err := p.Run(ctx, Options{Dir: dir})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.SectionsRejected != 1 || result.SectionsMerged != 0 {
		t.Errorf("result = %+v", result)
	}
	// The file itself completed, so it is ledgered.
	if result.FilesProcessed != 1 {
		t.Errorf("files = %+v", result)
	}

	lines, _ := s.ListBudgetLines(ctx)
	if len(lines) != 0 {
		t.Errorf("rejected section wrote %d budget lines", len(lines))
	}
}

func TestRunDeclinedDepartmentSkipsSection(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "state_2015_budget.txt")

	rev := &scriptedReviewer{changeAction: review.ActionAccept, declineNew: true}
	p, s := newTestPipeline(t, rev)
	ctx := context.Background()

	result, err := p.Run(ctx, Options{Dir: dir})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.SectionsSkipped != 1 || result.SectionsMerged != 0 {
		t.Errorf("result = %+v", result)
	}
	if rev.changeCalls != 0 {
		t.Error("declined department must not reach change review")
	}
	depts, _ := s.ListDepartments(ctx)
	if len(depts) != 0 {
		t.Errorf("declined department was created: %d records", len(depts))
	}
}

func TestRunDryRun(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "state_2015_budget.txt")

	out := &bytes.Buffer{}
	rev := &scriptedReviewer{changeAction: review.ActionAccept}
	s, err := store.Open(store.Config{DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	defer s.Close()
	p := New(s, rev, nil, out, 85)
	ctx := context.Background()

	result, err := p.Run(ctx, Options{Dir: dir, DryRun: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.FilesProcessed != 1 {
		t.Errorf("result = %+v", result)
	}
	if rev.createCalls != 0 || rev.changeCalls != 0 {
		t.Errorf("dry run must not prompt, calls = %d/%d", rev.createCalls, rev.changeCalls)
	}
	if !strings.Contains(out.String(), "[dry-run]") {
		t.Errorf("missing dry-run summary in output:\n%s", out.String())
	}

	done, _ := s.IsProcessed(ctx, "state_2015_budget.txt")
	if done {
		t.Error("dry run must not touch the ledger")
	}
	lines, _ := s.ListBudgetLines(ctx)
	if len(lines) != 0 {
		t.Errorf("dry run wrote %d budget lines", len(lines))
	}
}

func TestRunTargetFile(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "state_2015_budget.txt")
	writeSample(t, dir, "state_2016_budget.txt")

	rev := &scriptedReviewer{changeAction: review.ActionAccept}
	p, _ := newTestPipeline(t, rev)

	result, err := p.Run(context.Background(), Options{Dir: dir, Target: "state_2016_budget.txt"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.FilesScanned != 1 || result.FilesProcessed != 1 {
		t.Errorf("result = %+v", result)
	}
}

func TestRunYearFilter(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "state_2015_budget.txt")
	writeSample(t, dir, "state_2016_budget.txt")

	rev := &scriptedReviewer{changeAction: review.ActionAccept}
	p, _ := newTestPipeline(t, rev)

	result, err := p.Run(context.Background(), Options{Dir: dir, Year: "2015"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.FilesScanned != 1 {
		t.Errorf("year filter scanned %d files", result.FilesScanned)
	}
}

func TestRunMissingYearInFilename(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "notes.txt")

	rev := &scriptedReviewer{changeAction: review.ActionAccept}
	p, _ := newTestPipeline(t, rev)

	result, err := p.Run(context.Background(), Options{Dir: dir, Target: "notes.txt"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.FilesFailed != 1 || len(result.Errors) != 1 {
		t.Errorf("result = %+v", result)
	}
}

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	if a == b {
		t.Error("run IDs must be unique")
	}
	if !strings.HasPrefix(a, "txn-") {
		t.Errorf("run ID shape = %s", a)
	}
}
