// Package regression compares NAV history downloads of two d1g1t
// environments or versions.
package regression

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/AlanFontoura/myscripts/internal/adapters/tabular"
	"github.com/AlanFontoura/myscripts/internal/application/navhistory"
	"github.com/AlanFontoura/myscripts/internal/application/runs"
	"github.com/AlanFontoura/myscripts/internal/domain/frame"
	"github.com/AlanFontoura/myscripts/internal/domain/recon"
)

// legacyKey is the entity column of downloads made before per-level ID columns.
const legacyKey = "Entity ID"

// Options holds regression configuration
type Options struct {
	BaseEnv       string
	TargetEnv     string
	BaseVersion   string
	TargetVersion string
	Level         string
	// OutputDir holds <env>/<level> download folders and receives the reports.
	OutputDir string
	Tolerance float64
}

func (o Options) suffix() string {
	return fmt.Sprintf("%s_%s_%s_%s_%s", o.BaseEnv, o.BaseVersion, o.TargetEnv, o.TargetVersion, o.Level)
}

// FullFile is the path of the complete comparison.
func (o Options) FullFile() string {
	return filepath.Join(o.OutputDir, "reconciliation_"+o.suffix()+".csv")
}

// FilteredFile is the path of the breaks-only comparison.
func (o Options) FilteredFile() string {
	return filepath.Join(o.OutputDir, "filtered_reconciliation_"+o.suffix()+".csv")
}

// Result holds regression results
type Result struct {
	Rows         int
	Breaks       int
	FullFile     string
	FilteredFile string
}

// Runner compares two NAV download folders.
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

// Run reads both folders, compares them on date and entity and writes the
// full and filtered reports.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Level == "" {
		opts.Level = "accounts"
	}
	run := r.runs.Start("regression", "", map[string]string{
		"base_env":       opts.BaseEnv,
		"base_version":   opts.BaseVersion,
		"target_env":     opts.TargetEnv,
		"target_version": opts.TargetVersion,
		"level":          opts.Level,
	})

	result, err := r.run(ctx, opts, run)
	if err != nil {
		return nil, run.Fail(err)
	}
	run.Complete(result.Rows, result.Breaks)
	return result, nil
}

func (r *Runner) run(ctx context.Context, opts Options, run *runs.Run) (*Result, error) {
	base, err := tabular.ReadCSVDir(filepath.Join(opts.OutputDir, opts.BaseEnv, opts.Level))
	if err != nil {
		return nil, fmt.Errorf("base: %w", err)
	}
	target, err := tabular.ReadCSVDir(filepath.Join(opts.OutputDir, opts.TargetEnv, opts.Level))
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := navhistory.IDColumn(opts.Level)
	if !base.Has(key) && base.Has(legacyKey) {
		key = legacyKey
	}

	comparison, err := recon.Compare(base, target, recon.CompareSpec{
		Keys:        []string{"Date", key},
		BaseLabel:   opts.BaseVersion,
		TargetLabel: opts.TargetVersion,
		Tolerance:   opts.Tolerance,
	})
	if err != nil {
		return nil, err
	}

	filtered := Filter(comparison, r.logger)
	result := &Result{
		Rows:         comparison.Len(),
		Breaks:       filtered.Len(),
		FullFile:     opts.FullFile(),
		FilteredFile: opts.FilteredFile(),
	}
	if err := run.WriteCSV("full", result.FullFile, comparison); err != nil {
		return nil, err
	}
	if err := run.WriteCSV("breaks", result.FilteredFile, filtered); err != nil {
		return nil, err
	}
	r.logger.Info("Reconciliation completed", "rows", result.Rows, "breaks", result.Breaks)
	return result, nil
}

// Filter keeps the rows with at least one unreconciled metric.
func Filter(comparison *frame.Frame, logger *slog.Logger) *frame.Frame {
	filtered := recon.Breaks(comparison)
	if filtered.Len() == 0 {
		logger.Warn("Data is fully reconciled. No discrepancies found.")
	} else {
		logger.Info("Filtered reconciliation data", "rows", filtered.Len())
	}
	return filtered
}
