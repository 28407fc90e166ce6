package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ListBudgetLines returns every budget leaf in key order.
func (s *Store) ListBudgetLines(ctx context.Context) ([]BudgetLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT org_code, fiscal_year, project_code, funding_type, fund_code,
		       fund_name, amount, occurrences, source_file
		FROM budgets
		ORDER BY org_code, fiscal_year, project_code, funding_type, fund_code`)
	if err != nil {
		return nil, fmt.Errorf("querying budgets: %w", err)
	}
	defer rows.Close()

	var lines []BudgetLine
	for rows.Next() {
		var b BudgetLine
		if err := rows.Scan(&b.OrgCode, &b.FiscalYear, &b.ProjectCode, &b.FundingType,
			&b.FundCode, &b.FundName, &b.Amount, &b.Count, &b.SourceFile); err != nil {
			return nil, fmt.Errorf("scanning budget line: %w", err)
		}
		lines = append(lines, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating budget lines: %w", err)
	}
	return lines, nil
}

// upsertBudgetLine writes one leaf inside a section transaction.
// Last extraction wins: amount is replaced and occurrences reset to 1.
func upsertBudgetLine(ctx context.Context, tx *sql.Tx, b BudgetLine) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO budgets (org_code, fiscal_year, project_code, funding_type, fund_code,
		                     fund_name, amount, occurrences, source_file, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(org_code, fiscal_year, project_code, funding_type, fund_code) DO UPDATE SET
			fund_name = excluded.fund_name,
			amount = excluded.amount,
			occurrences = 1,
			source_file = excluded.source_file,
			updated_at = CURRENT_TIMESTAMP`,
		b.OrgCode, b.FiscalYear, b.ProjectCode, b.FundingType, b.FundCode,
		b.FundName, b.Amount, b.SourceFile)
	if err != nil {
		return fmt.Errorf("upserting budget line %s/%s/%s: %w", b.OrgCode, b.FiscalYear, b.FundCode, err)
	}
	return nil
}
