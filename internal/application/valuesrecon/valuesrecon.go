// Package valuesrecon reconciles per-account values and flows between two
// environments, file by file.
package valuesrecon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/AlanFontoura/myscripts/internal/adapters/tabular"
	"github.com/AlanFontoura/myscripts/internal/application/runs"
	"github.com/AlanFontoura/myscripts/internal/domain/frame"
	"github.com/AlanFontoura/myscripts/internal/domain/recon"
)

// Metrics are the compared value and flow columns.
var Metrics = []string{
	"Net Deposits",
	"Net Additions",
	"Gain",
	"Fees",
	"Expenses",
	"Market Value EoP",
	"Total Return",
}

// Keys identify one row of a values file.
var Keys = []string{"Account ID", "Date"}

const (
	defaultThreshold   = 1.0
	defaultRound       = 4
	defaultExcludeDate = "2020-12-31"
)

// ErrNothingMerged is returned when no file pair could be reconciled.
var ErrNothingMerged = errors.New("no files reconciled")

// Options holds recon configuration
type Options struct {
	BaseEnv   string
	TargetEnv string
	// OutputDir holds one folder per environment and receives the reports.
	OutputDir string
	// AccountMaster is an Account.csv extract (AccountCode, AccountName,
	// CustodianName). Optional.
	AccountMaster string
	// Threshold is the largest absolute difference still reconciled.
	Threshold float64
	// ExcludeDate drops rows of that date, typically the inception boundary.
	ExcludeDate string
}

func (o Options) withDefaults() Options {
	if o.Threshold <= 0 {
		o.Threshold = defaultThreshold
	}
	if o.ExcludeDate == "" {
		o.ExcludeDate = defaultExcludeDate
	}
	return o
}

// Result holds recon results
type Result struct {
	Files   int
	Merged  int
	Skipped int
	Rows    int
	Breaks  int
}

// Runner reconciles two environment folders.
type Runner struct {
	runs   *runs.Recorder
	logger *slog.Logger
}

// NewRunner creates a runner. recorder may be nil.
func NewRunner(recorder *runs.Recorder, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{runs: recorder, logger: logger}
}

// Spec returns the comparison applied to every file pair.
func (o Options) Spec() recon.CompareSpec {
	return recon.CompareSpec{
		Keys:        Keys,
		Metrics:     Metrics,
		BaseLabel:   o.BaseEnv,
		TargetLabel: o.TargetEnv,
		Tolerance:   o.Threshold,
		Inclusive:   true,
		Absolute:    true,
		Round:       defaultRound,
	}
}

// Run reconciles every file present in both environment folders and writes
// full_recon.csv, filtered_recon.csv and break_count.csv.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	run := r.runs.Start("valuesrecon", "", map[string]string{
		"base_env":   opts.BaseEnv,
		"target_env": opts.TargetEnv,
	})
	result, err := r.run(ctx, opts, run)
	if err != nil {
		return nil, run.Fail(err)
	}
	run.Complete(result.Rows, result.Breaks)
	return result, nil
}

func (r *Runner) run(ctx context.Context, opts Options, run *runs.Run) (*Result, error) {
	baseDir := filepath.Join(opts.OutputDir, opts.BaseEnv)
	targetDir := filepath.Join(opts.OutputDir, opts.TargetEnv)
	files, err := tabular.ListCSV(baseDir)
	if err != nil {
		return nil, fmt.Errorf("base: %w", err)
	}

	result := &Result{Files: len(files)}
	var full, filtered, counts []*frame.Frame
	for i, basePath := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := filepath.Base(basePath)
		r.logger.Info("Reconciling file", "file", name, "n", i+1, "total", len(files))

		targetPath := filepath.Join(targetDir, name)
		if _, err := os.Stat(targetPath); err != nil {
			r.logger.Info("No target data, skipping file", "file", name)
			result.Skipped++
			continue
		}
		f, err := r.reconcile(basePath, targetPath, opts)
		if err != nil {
			r.logger.Warn("Skipped file", "file", name, "error", err)
			result.Skipped++
			continue
		}
		breaks, err := recon.CountBreaks(f, "Account ID")
		if err != nil {
			r.logger.Warn("Skipped file", "file", name, "error", err)
			result.Skipped++
			continue
		}
		full = append(full, f)
		filtered = append(filtered, recon.Breaks(f))
		counts = append(counts, breaks)
		result.Merged++
		r.logger.Debug("Merged file", "file", name)
	}
	if result.Merged == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNothingMerged, baseDir)
	}

	accounts := r.accounts(opts.AccountMaster)
	outputs := []struct {
		kind, name string
		frames     []*frame.Frame
		sortBy     []string
	}{
		{"full", "full_recon.csv", full, Keys},
		{"breaks", "filtered_recon.csv", filtered, Keys},
		{"break_count", "break_count.csv", counts, []string{"Account ID"}},
	}
	for _, out := range outputs {
		f, err := withAccounts(frame.Concat(out.frames...), accounts)
		if err != nil {
			return nil, err
		}
		f = f.SortBy(out.sortBy...)
		switch out.kind {
		case "full":
			result.Rows = f.Len()
		case "breaks":
			result.Breaks = f.Len()
		}
		if err := run.WriteCSV(out.kind, filepath.Join(opts.OutputDir, out.name), f); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (r *Runner) reconcile(basePath, targetPath string, opts Options) (*frame.Frame, error) {
	columns := append(append([]string(nil), Keys...), Metrics...)
	base, err := tabular.ReadCSVFile(basePath, columns...)
	if err != nil {
		return nil, err
	}
	target, err := tabular.ReadCSVFile(targetPath, columns...)
	if err != nil {
		return nil, err
	}
	f, err := recon.Compare(base, target, opts.Spec())
	if err != nil {
		return nil, err
	}
	return f.Filter(func(row frame.Row) bool {
		return frame.Format(row.Get("Date")) != opts.ExcludeDate
	}), nil
}

// accounts reads the account master, or returns nil when it is unavailable.
func (r *Runner) accounts(path string) *frame.Frame {
	if path == "" {
		return nil
	}
	f, err := tabular.ReadCSVFile(path, "AccountCode", "AccountName", "CustodianName")
	if err != nil {
		r.logger.Warn("Account master unavailable, reports have no account names", "path", path, "error", err)
		return nil
	}
	return f.Rename(map[string]string{
		"AccountCode":   "Account ID",
		"AccountName":   "Account Name",
		"CustodianName": "Custodian",
	}).Dedup()
}

func withAccounts(f, accounts *frame.Frame) (*frame.Frame, error) {
	if accounts == nil {
		return f, nil
	}
	if f.Width() == 0 {
		return f, nil
	}
	return frame.Merge(f, accounts, frame.MergeOptions{On: []string{"Account ID"}, How: frame.Left})
}
