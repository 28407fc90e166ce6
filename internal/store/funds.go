package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ListFunds returns every canonical fund ordered by fund code.
func (s *Store) ListFunds(ctx context.Context) ([]*Fund, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fund_code, name, fund_group, description, updated_at
		FROM funds ORDER BY fund_code`)
	if err != nil {
		return nil, fmt.Errorf("querying funds: %w", err)
	}
	defer rows.Close()

	var funds []*Fund
	for rows.Next() {
		var f Fund
		if err := rows.Scan(&f.Code, &f.Name, &f.Group, &f.Description, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning fund: %w", err)
		}
		funds = append(funds, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating funds: %w", err)
	}
	return funds, nil
}

// upsertFund writes a fund inside a section transaction.
func upsertFund(ctx context.Context, tx *sql.Tx, f *Fund) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO funds (fund_code, name, fund_group, description, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(fund_code) DO UPDATE SET
			name = excluded.name,
			fund_group = excluded.fund_group,
			description = excluded.description,
			updated_at = CURRENT_TIMESTAMP`,
		f.Code, f.Name, f.Group, f.Description)
	if err != nil {
		return fmt.Errorf("upserting fund %s: %w", f.Code, err)
	}
	return nil
}
