package store

import "fmt"

// migrate creates all tables if they don't exist.
func (s *Store) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS departments (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			org_code       TEXT UNIQUE NOT NULL,
			name           TEXT NOT NULL,
			canonical_name TEXT NOT NULL DEFAULT '',
			aliases        TEXT NOT NULL DEFAULT '[]',
			description    TEXT NOT NULL DEFAULT '',
			active         INTEGER NOT NULL DEFAULT 1,
			parent_agency  TEXT NOT NULL DEFAULT '',
			updated_at     DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS programs (
			project_code TEXT PRIMARY KEY,
			name         TEXT NOT NULL DEFAULT '',
			updated_at   DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS program_descriptions (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			project_code TEXT NOT NULL REFERENCES programs(project_code),
			description  TEXT NOT NULL,
			source_file  TEXT NOT NULL,
			created_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(project_code, description, source_file)
		)`,

		`CREATE TABLE IF NOT EXISTS funds (
			fund_code   TEXT PRIMARY KEY,
			name        TEXT NOT NULL DEFAULT '',
			fund_group  TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// One row per (org, fiscal year, project, funding type, fund).
		// Re-processing replaces amount and resets occurrences to 1.
		`CREATE TABLE IF NOT EXISTS budgets (
			org_code     TEXT NOT NULL,
			fiscal_year  TEXT NOT NULL,
			project_code TEXT NOT NULL,
			funding_type TEXT NOT NULL,
			fund_code    TEXT NOT NULL,
			fund_name    TEXT NOT NULL DEFAULT '',
			amount       INTEGER NOT NULL,
			occurrences  INTEGER NOT NULL DEFAULT 1,
			source_file  TEXT NOT NULL DEFAULT '',
			updated_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (org_code, fiscal_year, project_code, funding_type, fund_code)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_budgets_org_year ON budgets(org_code, fiscal_year)`,

		`CREATE TABLE IF NOT EXISTS processed_files (
			file_name    TEXT PRIMARY KEY,
			processed_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}
	return nil
}
