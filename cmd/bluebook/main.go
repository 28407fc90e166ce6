package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/hurttlocker/bluebook/internal/config"
	"github.com/hurttlocker/bluebook/internal/pipeline"
	"github.com/hurttlocker/bluebook/internal/review"
	"github.com/hurttlocker/bluebook/internal/store"
)

const version = "0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "merge":
		if err := runMerge(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "ledger":
		if err := runLedger(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "stats":
		if err := runStats(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "config":
		if err := runConfig(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version", "--version", "-v":
		fmt.Printf("bluebook %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// mergeFlags is the shared flag set of merge/ledger/stats/config.
type mergeFlags struct {
	target     string
	year       string
	force      bool
	dryRun     bool
	configPath string
	dbPath     string
	textDir    string
	logDir     string
}

func parseFlags(args []string) (mergeFlags, error) {
	var f mergeFlags
	i := 0
	next := func(flag string) (string, error) {
		i++
		if i >= len(args) {
			return "", fmt.Errorf("%s requires a value", flag)
		}
		return args[i], nil
	}
	for ; i < len(args); i++ {
		arg := args[i]
		var err error
		switch {
		case arg == "--force" || arg == "-f":
			f.force = true
		case arg == "--dry-run" || arg == "-n":
			f.dryRun = true
		case arg == "--year":
			f.year, err = next(arg)
		case arg == "--config":
			f.configPath, err = next(arg)
		case arg == "--db":
			f.dbPath, err = next(arg)
		case arg == "--dir":
			f.textDir, err = next(arg)
		case arg == "--logs":
			f.logDir, err = next(arg)
		case strings.HasPrefix(arg, "-"):
			return f, fmt.Errorf("unknown flag: %s", arg)
		default:
			if f.target != "" {
				return f, fmt.Errorf("only one target file may be given")
			}
			f.target = arg
		}
		if err != nil {
			return f, err
		}
	}
	return f, nil
}

func resolve(f mergeFlags) (config.ResolvedConfig, error) {
	return config.Resolve(config.ResolveOptions{
		ConfigPath: f.configPath,
		CLIDBPath:  f.dbPath,
		CLITextDir: f.textDir,
		CLILogDir:  f.logDir,
	})
}

func openStore(cfg config.ResolvedConfig) (*store.Store, error) {
	s, err := store.Open(store.Config{DBPath: cfg.DBPath.Value})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return s, nil
}

func runMerge(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := resolve(f)
	if err != nil {
		return err
	}

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	runID := pipeline.NewRunID()
	logger, logPath, err := pipeline.NewRunLogger(cfg.LogDir.Value, runID)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if f.dryRun {
		fmt.Println("Dry run mode: no changes will be written")
		fmt.Println()
	}
	fmt.Printf("Run %s (log: %s)\n", runID, logPath)

	reviewer := review.NewConsole(os.Stdin, os.Stdout, logger)
	p := pipeline.New(s, reviewer, logger, os.Stdout, cfg.SimilarityThreshold)

	result, err := p.Run(context.Background(), pipeline.Options{
		Dir:    cfg.TextDir.Value,
		Target: f.target,
		Year:   f.year,
		Force:  f.force,
		DryRun: f.dryRun,
	})
	if result != nil {
		fmt.Println()
		fmt.Print(pipeline.FormatResult(result))
	}
	if err != nil {
		return err
	}
	if result != nil && result.FilesFailed > 0 {
		return fmt.Errorf("%d file(s) failed", result.FilesFailed)
	}
	return nil
}

func runLedger(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := resolve(f)
	if err != nil {
		return err
	}

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	files, err := s.ProcessedFiles(ctx)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No files processed yet")
		return nil
	}
	for _, pf := range files {
		fmt.Printf("%s  %s\n", pf.ProcessedAt.Format("2006-01-02 15:04:05"), pf.Name)
	}
	if last, err := s.LastProcessed(ctx); err == nil && last != "" {
		fmt.Printf("\nLast processed: %s\n", last)
	}
	return nil
}

func runStats(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := resolve(f)
	if err != nil {
		return err
	}

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := s.Stats(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Departments:     %d\n", st.Departments)
	fmt.Printf("Programs:        %d\n", st.Programs)
	fmt.Printf("Funds:           %d\n", st.Funds)
	fmt.Printf("Budget lines:    %d\n", st.BudgetLines)
	fmt.Printf("Processed files: %d\n", st.ProcessedFiles)
	fmt.Printf("Database size:   %.1f KB\n", float64(st.DBSizeBytes)/1024)
	return nil
}

func runConfig(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := resolve(f)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printUsage() {
	fmt.Println(`bluebook - budget document merge pipeline

Usage:
  bluebook merge [file] [flags]   Merge pending budget text files
  bluebook ledger [flags]         Show the processed-file ledger
  bluebook stats [flags]          Show canonical store counts
  bluebook config [flags]         Show the resolved configuration
  bluebook version                Show version

Flags:
  --force, -f      Re-process files already in the ledger
  --dry-run, -n    Classify and report without prompting or writing
  --year <YYYY>    Only process files for one document year
  --config <path>  Config file (default ~/.bluebook/config.yaml)
  --db <path>      Database path (default ` + store.DefaultDBPath + `)
  --dir <path>     Input text directory (default data/budget/text)
  --logs <path>    Run log directory (default logs)

Environment:
  BLUEBOOK_DB, BLUEBOOK_TEXT_DIR, BLUEBOOK_LOG_DIR, BLUEBOOK_SIMILARITY`)
}
