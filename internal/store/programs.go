package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ListPrograms returns every canonical program with its description
// entries, ordered by project code.
func (s *Store) ListPrograms(ctx context.Context) ([]*Program, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT project_code, name, updated_at FROM programs ORDER BY project_code`)
	if err != nil {
		return nil, fmt.Errorf("querying programs: %w", err)
	}
	defer rows.Close()

	byCode := map[string]*Program{}
	var programs []*Program
	for rows.Next() {
		var p Program
		if err := rows.Scan(&p.ProjectCode, &p.Name, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning program: %w", err)
		}
		byCode[p.ProjectCode] = &p
		programs = append(programs, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating programs: %w", err)
	}

	descRows, err := s.db.QueryContext(ctx, `
		SELECT project_code, description, source_file
		FROM program_descriptions ORDER BY project_code, id`)
	if err != nil {
		return nil, fmt.Errorf("querying program descriptions: %w", err)
	}
	defer descRows.Close()

	for descRows.Next() {
		var code string
		var d ProgramDescription
		if err := descRows.Scan(&code, &d.Text, &d.SourceFile); err != nil {
			return nil, fmt.Errorf("scanning program description: %w", err)
		}
		if p, ok := byCode[code]; ok {
			p.Descriptions = append(p.Descriptions, d)
		}
	}
	if err := descRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating program descriptions: %w", err)
	}
	return programs, nil
}

// upsertProgram writes a program and its description entries inside a
// section transaction. The unique (project, description, source) index
// makes description appends idempotent.
func upsertProgram(ctx context.Context, tx *sql.Tx, p *Program) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO programs (project_code, name, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(project_code) DO UPDATE SET
			name = excluded.name,
			updated_at = CURRENT_TIMESTAMP`,
		p.ProjectCode, p.Name)
	if err != nil {
		return fmt.Errorf("upserting program %s: %w", p.ProjectCode, err)
	}

	for _, d := range p.Descriptions {
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO program_descriptions (project_code, description, source_file)
			VALUES (?, ?, ?)`,
			p.ProjectCode, d.Text, d.SourceFile)
		if err != nil {
			return fmt.Errorf("inserting description for %s: %w", p.ProjectCode, err)
		}
	}
	return nil
}
