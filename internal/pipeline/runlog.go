package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NewRunID generates the transaction identifier embedded in the run log
// file name: txn-<unix millis>-<11 random chars>.
func NewRunID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:11]
	return fmt.Sprintf("txn-%d-%s", time.Now().UnixMilli(), suffix)
}

// NewRunLogger opens the per-run append-only transaction log at
// <logDir>/merge_<runID>.log. The log is independent of the interactive
// console transcript; callers must Sync before exit.
func NewRunLogger(logDir, runID string) (*zap.Logger, string, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, "", fmt.Errorf("creating log directory: %w", err)
	}
	path := filepath.Join(logDir, fmt.Sprintf("merge_%s.log", runID))

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}

	logger, err := cfg.Build()
	if err != nil {
		return nil, "", fmt.Errorf("building run logger: %w", err)
	}
	logger = logger.With(zap.String("run_id", runID))
	return logger, path, nil
}
