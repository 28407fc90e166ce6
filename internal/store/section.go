package store

import (
	"context"
	"fmt"
)

// SectionSave is one approved section's worth of canonical writes.
type SectionSave struct {
	Department *Department
	Programs   []*Program
	Funds      []*Fund
	Lines      []BudgetLine
}

// ApplySection commits a section's department, programs, funds and
// budget lines in a single transaction. Saving happens immediately after
// each approved section, not batched to end of run, so a crash loses at
// most one section's pending work.
func (s *Store) ApplySection(ctx context.Context, save SectionSave) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning section transaction: %w", err)
	}
	defer tx.Rollback()

	if save.Department != nil {
		if err := upsertDepartment(ctx, tx, save.Department); err != nil {
			return err
		}
	}
	for _, p := range save.Programs {
		if err := upsertProgram(ctx, tx, p); err != nil {
			return err
		}
	}
	for _, f := range save.Funds {
		if err := upsertFund(ctx, tx, f); err != nil {
			return err
		}
	}
	for _, b := range save.Lines {
		if err := upsertBudgetLine(ctx, tx, b); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing section transaction: %w", err)
	}
	return nil
}
