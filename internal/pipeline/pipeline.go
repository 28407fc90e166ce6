// Package pipeline orchestrates the merge run: file discovery, ledger
// checks, segmentation, extraction, matching, operator review, and the
// per-section canonical saves.
//
// Execution is single-threaded and strictly sequential: files in name
// order, sections in document order. The only suspension points are the
// operator checkpoints, which block until answered.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"go.uber.org/zap"

	"github.com/hurttlocker/bluebook/internal/extract"
	"github.com/hurttlocker/bluebook/internal/merge"
	"github.com/hurttlocker/bluebook/internal/review"
	"github.com/hurttlocker/bluebook/internal/segment"
	"github.com/hurttlocker/bluebook/internal/store"
	"github.com/hurttlocker/bluebook/internal/textpos"
)

// ErrSkipFile is raised when the operator answers "skip file"; it aborts
// the remaining sections of the current file only.
var ErrSkipFile = errors.New("file skipped by operator")

// budgetFileRE matches input file names and captures the document year.
var budgetFileRE = regexp.MustCompile(`_(\d{4})_budget\.txt$`)

// Options configures one run.
type Options struct {
	Dir    string
	Target string // explicit file path or name; bypasses directory scan
	Year   string // keep only files whose name carries this document year
	Force  bool   // ignore the processed-file ledger
	DryRun bool   // classify and report without prompting or writing
}

// Pipeline wires the run's collaborators together.
type Pipeline struct {
	Store     *store.Store
	Reviewer  review.Reviewer
	Log       *zap.Logger
	Out       io.Writer
	Threshold float64
}

// New builds a pipeline. Out receives progress and dry-run summaries.
func New(st *store.Store, reviewer review.Reviewer, log *zap.Logger, out io.Writer, threshold float64) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	if out == nil {
		out = os.Stdout
	}
	return &Pipeline{Store: st, Reviewer: reviewer, Log: log, Out: out, Threshold: threshold}
}

// Run processes every pending file and returns the merged run summary.
// The summary is always complete, even when some files failed.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	files, err := p.listFiles(opts)
	if err != nil {
		return nil, err
	}

	rec, err := p.loadCanonical(ctx)
	if err != nil {
		return nil, err
	}
	seg := segment.New(p.Reviewer, p.Log)

	result := &Result{}
	for _, path := range files {
		name := filepath.Base(path)
		result.FilesScanned++

		if !opts.Force {
			done, err := p.Store.IsProcessed(ctx, name)
			if err != nil {
				return result, err
			}
			if done {
				result.FilesSkipped++
				p.Log.Info("file already in ledger", zap.String("file", name))
				continue
			}
		}

		fmt.Fprintf(p.Out, "Processing %s...\n", name)
		fileResult, err := p.processFile(ctx, rec, seg, path, opts)
		result.Add(fileResult)

		switch {
		case errors.Is(err, ErrSkipFile):
			result.FilesSkipped++
			p.Log.Info("file skipped by operator", zap.String("file", name))
		case err != nil:
			result.FilesFailed++
			result.Errors = append(result.Errors, FileError{File: name, Message: err.Error()})
			p.Log.Error("file failed", zap.String("file", name), zap.Error(err))
		default:
			result.FilesProcessed++
			if !opts.DryRun {
				if err := p.Store.MarkProcessed(ctx, name); err != nil {
					return result, err
				}
			}
		}
	}
	return result, nil
}

// processFile runs segmentation, extraction, matching, review and merge
// for one file. Sections committed before an operator skip stay counted
// in the returned partial result.
func (p *Pipeline) processFile(ctx context.Context, rec *merge.Reconciler, seg *segment.Engine, path string, opts Options) (*Result, error) {
	res := &Result{}
	name := filepath.Base(path)

	if !budgetFileRE.MatchString(name) {
		return res, fmt.Errorf("missing document year in filename %s", name)
	}

	f, err := os.Open(path)
	if err != nil {
		return res, fmt.Errorf("opening %s: %w", name, err)
	}
	doc, err := textpos.ParseDocument(f)
	f.Close()
	if err != nil {
		return res, fmt.Errorf("parsing %s: %w", name, err)
	}

	sections, segRes, err := seg.Split(doc, name)
	if err != nil {
		return res, err
	}
	res.SectionsFound = segRes.Sections
	p.Log.Info("segmented file",
		zap.String("file", name),
		zap.Int("markers", segRes.Markers),
		zap.Int("sections", segRes.Sections),
		zap.Int("reviews", segRes.ReviewsRaised),
		zap.Int("markers_skipped", segRes.MarkersSkipped))

	for _, sec := range sections {
		if err := p.processSection(ctx, rec, sec, name, opts, res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (p *Pipeline) processSection(ctx context.Context, rec *merge.Reconciler, sec segment.Section, sourceFile string, opts Options, res *Result) error {
	programs, progWarnings := extract.Programs(sec.Content)
	allocs, allocWarnings := extract.Allocations(sec.Content, sec.OrgCode)
	p.logWarnings(sourceFile, sec.OrgCode, progWarnings)
	p.logWarnings(sourceFile, sec.OrgCode, allocWarnings)

	if len(programs) == 0 && len(allocs) > 0 {
		programs = extract.SynthesizeFromAllocations(allocs)
	}
	if len(programs) == 0 && len(allocs) == 0 {
		res.SectionsSkipped++
		p.Log.Info("section yielded nothing",
			zap.String("file", sourceFile), zap.String("org_code", sec.OrgCode))
		return nil
	}

	dept, m := rec.MatchDepartment(sec.OrgCode, sec.DepartmentName)
	newDepartment := false
	confidence := 0
	switch {
	case m != nil:
		confidence = m.Confidence
		res.DepartmentsMatched++
		if m.CodeMismatch {
			// identity fields are never auto-corrected
			p.Log.Warn("department code mismatch",
				zap.String("file", sourceFile),
				zap.String("extracted_code", sec.OrgCode),
				zap.String("canonical_code", dept.OrgCode),
				zap.String("method", m.Method),
				zap.Int("confidence", m.Confidence))
		}
	case opts.DryRun:
		dept = &store.Department{OrgCode: sec.OrgCode, Name: sec.DepartmentName, Active: true}
		newDepartment = true
	default:
		decision, err := p.Reviewer.CreateDepartment(review.DepartmentCreateRequest{
			SourceFile: sourceFile,
			OrgCode:    sec.OrgCode,
			Name:       sec.DepartmentName,
		})
		if err != nil {
			return fmt.Errorf("department create review: %w", err)
		}
		if !decision.Create {
			res.SectionsSkipped++
			p.Log.Info("department creation declined",
				zap.String("file", sourceFile), zap.String("org_code", sec.OrgCode))
			return nil
		}
		dept = &store.Department{
			OrgCode:      sec.OrgCode,
			Name:         sec.DepartmentName,
			Active:       decision.Active,
			ParentAgency: decision.ParentAgency,
		}
		newDepartment = true
	}

	plan := rec.Plan(merge.PlanInput{
		SourceFile:           sourceFile,
		Department:           dept,
		NewDepartment:        newDepartment,
		Confidence:           confidence,
		ExtractedDescription: departmentDescription(programs, sec.OrgCode),
		Programs:             programs,
		Allocations:          allocs,
	})
	req := plan.ChangeRequest()

	if opts.DryRun {
		fmt.Fprintf(p.Out, "  [dry-run] %s %s: %d/%d programs new/updated, %d/%d allocations new/overwrite\n",
			req.OrgCode, req.DepartmentName, req.ProgramsNew, req.ProgramsUpdated,
			req.AllocationsNew, req.AllocationsOverwritten)
		return nil
	}

	decision, err := p.Reviewer.ReviewChanges(req)
	if err != nil {
		return fmt.Errorf("change review: %w", err)
	}

	switch decision.Action {
	case review.ActionSkipFile:
		res.SectionsSkipped++
		return ErrSkipFile
	case review.ActionReject:
		res.SectionsRejected++
		p.Log.Info("section rejected",
			zap.String("file", sourceFile), zap.String("org_code", sec.OrgCode))
		return nil
	}

	save := rec.Apply(plan, decision)
	if err := p.Store.ApplySection(ctx, save); err != nil {
		return err
	}
	res.SectionsMerged++
	if newDepartment {
		res.DepartmentsCreated++
	}
	res.ProgramsNew += req.ProgramsNew
	res.ProgramsUpdated += req.ProgramsUpdated
	res.FundsNew += len(req.NewFunds)
	res.FundsUpdated += len(req.UpdatedFunds)
	res.AllocationsNew += req.AllocationsNew
	res.AllocationsOverwritten += req.AllocationsOverwritten

	p.Log.Info("section merged",
		zap.String("file", sourceFile),
		zap.String("org_code", sec.OrgCode),
		zap.Int("programs", len(save.Programs)),
		zap.Int("funds", len(save.Funds)),
		zap.Int("allocations", len(save.Lines)))
	return nil
}

// loadCanonical reads all four collections into the reconciler.
func (p *Pipeline) loadCanonical(ctx context.Context) (*merge.Reconciler, error) {
	depts, err := p.Store.ListDepartments(ctx)
	if err != nil {
		return nil, err
	}
	programs, err := p.Store.ListPrograms(ctx)
	if err != nil {
		return nil, err
	}
	funds, err := p.Store.ListFunds(ctx)
	if err != nil {
		return nil, err
	}
	lines, err := p.Store.ListBudgetLines(ctx)
	if err != nil {
		return nil, err
	}
	return merge.NewReconciler(depts, programs, funds, lines, p.Threshold), nil
}

// listFiles resolves the work list: the explicit target, or every
// "*_YYYY_budget.txt" in the input directory, in name order.
func (p *Pipeline) listFiles(opts Options) ([]string, error) {
	if opts.Target != "" {
		path := opts.Target
		if _, err := os.Stat(path); err != nil {
			path = filepath.Join(opts.Dir, opts.Target)
			if _, err := os.Stat(path); err != nil {
				return nil, fmt.Errorf("target file %s not found", opts.Target)
			}
		}
		return []string{path}, nil
	}

	entries, err := os.ReadDir(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("reading input directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := budgetFileRE.FindStringSubmatch(e.Name())
		if m == nil || (opts.Year != "" && m[1] != opts.Year) {
			continue
		}
		files = append(files, filepath.Join(opts.Dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func (p *Pipeline) logWarnings(sourceFile, orgCode string, warnings []extract.Warning) {
	for _, w := range warnings {
		p.Log.Warn("extraction shape mismatch",
			zap.String("file", sourceFile),
			zap.String("org_code", orgCode),
			zap.Int("line", w.Line),
			zap.String("text", w.Text),
			zap.String("why", w.Why))
	}
}

// departmentDescription is the narrative of the org-level program
// (project code ORG+"000"), which doubles as the department description.
func departmentDescription(programs []extract.Program, orgCode string) string {
	want := textpos.WidenProjectCode(orgCode)
	for _, p := range programs {
		if p.ProjectCode == want {
			return p.Description
		}
	}
	return ""
}
