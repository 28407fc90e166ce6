// Package store provides the SQLite storage layer for bluebook.
//
// All canonical data lives in a single SQLite database file:
// - departments, programs, funds and budget lines (the canonical datasets)
// - program description provenance entries
// - the processed-file ledger and store metadata
//
// Collections are read in full at startup and mutated only through
// per-section transactions, so an interrupted run loses at most one
// section's pending work and the ledger can never diverge from the data.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultDBPath is the default database location.
const DefaultDBPath = "~/.bluebook/bluebook.db"

// Department is a canonical department record keyed by organizational code.
type Department struct {
	ID            int64
	OrgCode       string // 4-digit
	Name          string
	CanonicalName string
	Aliases       []string
	Description   string
	Active        bool
	ParentAgency  string
	UpdatedAt     time.Time
}

// Program is a canonical program record keyed by 7-digit project code.
type Program struct {
	ProjectCode  string
	Name         string
	Descriptions []ProgramDescription
	UpdatedAt    time.Time
}

// ProgramDescription is one description entry with source provenance.
// The (Text, SourceFile) pair is unique per program.
type ProgramDescription struct {
	Text       string
	SourceFile string
}

// Fund is a canonical fund record keyed by 4-digit fund code.
type Fund struct {
	Code        string
	Name        string
	Group       string
	Description string
	UpdatedAt   time.Time
}

// BudgetLine is one leaf of the budget tree. The five-part key maps to
// exactly one amount and occurrence count; re-processing overwrites both
// (count resets to 1, never accumulates).
type BudgetLine struct {
	OrgCode     string
	FiscalYear  string
	ProjectCode string
	FundingType string
	FundCode    string
	FundName    string
	Amount      int64
	Count       int
	SourceFile  string
}

// ProcessedFile is one ledger entry.
type ProcessedFile struct {
	Name        string
	ProcessedAt time.Time
}

// Stats holds observability counts for the store.
type Stats struct {
	Departments    int64
	Programs       int64
	Funds          int64
	BudgetLines    int64
	ProcessedFiles int64
	DBSizeBytes    int64
}

// Config holds configuration for Open.
type Config struct {
	DBPath string
}

// Store is the SQLite-backed canonical store.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open creates or opens the canonical store. Pass ":memory:" for
// in-memory databases (testing).
func Open(cfg Config) (*Store, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = expandPath(DefaultDBPath)
	}

	if cfg.DBPath != ":memory:" {
		dir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, dbPath: cfg.DBPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Stats returns collection counts and database size.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	counts := []struct {
		query string
		dst   *int64
	}{
		{"SELECT COUNT(*) FROM departments", &st.Departments},
		{"SELECT COUNT(*) FROM programs", &st.Programs},
		{"SELECT COUNT(*) FROM funds", &st.Funds},
		{"SELECT COUNT(*) FROM budgets", &st.BudgetLines},
		{"SELECT COUNT(*) FROM processed_files", &st.ProcessedFiles},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("counting rows: %w", err)
		}
	}

	if s.dbPath != ":memory:" {
		if fi, err := os.Stat(s.dbPath); err == nil {
			st.DBSizeBytes = fi.Size()
		}
	}
	return st, nil
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
