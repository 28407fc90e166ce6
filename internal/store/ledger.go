package store

import (
	"context"
	"database/sql"
	"fmt"
)

const metaLastProcessed = "last_processed_file"

// IsProcessed reports whether a source file is already in the ledger.
func (s *Store) IsProcessed(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM processed_files WHERE file_name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking ledger for %s: %w", name, err)
	}
	return n > 0, nil
}

// MarkProcessed appends a source file to the ledger and records it as the
// last-processed file. Idempotent: re-marking refreshes the timestamp.
func (s *Store) MarkProcessed(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning ledger transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO processed_files (file_name, processed_at)
		VALUES (?, CURRENT_TIMESTAMP)
		ON CONFLICT(file_name) DO UPDATE SET processed_at = CURRENT_TIMESTAMP`,
		name); err != nil {
		return fmt.Errorf("appending %s to ledger: %w", name, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		metaLastProcessed, name); err != nil {
		return fmt.Errorf("recording last processed file: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing ledger transaction: %w", err)
	}
	return nil
}

// ProcessedFiles returns the ledger in processing order.
func (s *Store) ProcessedFiles(ctx context.Context) ([]ProcessedFile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT file_name, processed_at FROM processed_files ORDER BY processed_at, file_name`)
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	defer rows.Close()

	var files []ProcessedFile
	for rows.Next() {
		var f ProcessedFile
		if err := rows.Scan(&f.Name, &f.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scanning ledger entry: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ledger: %w", err)
	}
	return files, nil
}

// LastProcessed returns the most recently recorded source file, or ""
// when the ledger is empty.
func (s *Store) LastProcessed(ctx context.Context) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM meta WHERE key = ?`, metaLastProcessed).Scan(&name)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading last processed file: %w", err)
	}
	return name, nil
}
