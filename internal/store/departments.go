package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// ListDepartments returns every canonical department ordered by org code.
func (s *Store) ListDepartments(ctx context.Context) ([]*Department, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, org_code, name, canonical_name, aliases, description,
		       active, parent_agency, updated_at
		FROM departments ORDER BY org_code`)
	if err != nil {
		return nil, fmt.Errorf("querying departments: %w", err)
	}
	defer rows.Close()

	var depts []*Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		depts = append(depts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating departments: %w", err)
	}
	return depts, nil
}

// GetDepartment fetches one department by organizational code.
func (s *Store) GetDepartment(ctx context.Context, orgCode string) (*Department, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, org_code, name, canonical_name, aliases, description,
		       active, parent_agency, updated_at
		FROM departments WHERE org_code = ?`, orgCode)
	d, err := scanDepartment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDepartment(r rowScanner) (*Department, error) {
	var d Department
	var aliases string
	var active int
	if err := r.Scan(&d.ID, &d.OrgCode, &d.Name, &d.CanonicalName, &aliases,
		&d.Description, &active, &d.ParentAgency, &d.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning department: %w", err)
	}
	d.Active = active != 0
	if err := json.Unmarshal([]byte(aliases), &d.Aliases); err != nil {
		return nil, fmt.Errorf("decoding aliases for %s: %w", d.OrgCode, err)
	}
	return &d, nil
}

// upsertDepartment writes a department inside a section transaction.
func upsertDepartment(ctx context.Context, tx *sql.Tx, d *Department) error {
	aliases, err := json.Marshal(d.Aliases)
	if err != nil {
		return fmt.Errorf("encoding aliases for %s: %w", d.OrgCode, err)
	}
	if d.Aliases == nil {
		aliases = []byte("[]")
	}
	active := 0
	if d.Active {
		active = 1
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO departments (org_code, name, canonical_name, aliases, description, active, parent_agency, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(org_code) DO UPDATE SET
			name = excluded.name,
			canonical_name = excluded.canonical_name,
			aliases = excluded.aliases,
			description = excluded.description,
			active = excluded.active,
			parent_agency = excluded.parent_agency,
			updated_at = CURRENT_TIMESTAMP`,
		d.OrgCode, d.Name, d.CanonicalName, string(aliases), d.Description, active, d.ParentAgency)
	if err != nil {
		return fmt.Errorf("upserting department %s: %w", d.OrgCode, err)
	}
	return nil
}
