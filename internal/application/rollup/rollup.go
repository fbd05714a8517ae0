// Package rollup summarizes a position reconciliation by security type,
// account, client and household.
package rollup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/AlanFontoura/myscripts/internal/adapters/tabular"
	"github.com/AlanFontoura/myscripts/internal/application/runs"
	"github.com/AlanFontoura/myscripts/internal/domain/frame"
	"github.com/AlanFontoura/myscripts/internal/domain/recon"
	"github.com/AlanFontoura/myscripts/internal/domain/summary"
)

// ErrNoReconFile is returned when the recon folder holds no usable file.
var ErrNoReconFile = errors.New("no recon file found")

// ErrNoDataFile is returned when a master data extract is missing.
var ErrNoDataFile = errors.New("no data file found")

// Output file names.
const (
	BySecTypeFile   = "recon_summary_by_sec_type.csv"
	ByAccountFile   = "recon_summary_by_account.csv"
	ByClientFile    = "recon_summary_by_client.csv"
	ByHouseholdFile = "recon_summary_by_household.csv"
)

// excludedMarkers flag files of a recon folder that are not the recon itself.
var excludedMarkers = []string{"archive", "breaking", "exception"}

// Files lists and opens files by URI (s3:// or local path).
type Files interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}

// Options holds rollup configuration
type Options struct {
	Profile string
	// ReconFolder holds the recon file. A path ending in .csv names the file directly.
	ReconFolder string
	// DataFolder holds the Account, Client and Security master extracts.
	DataFolder string
	// Metrics are summarized in this order. Empty means every reconciled
	// metric of the recon file.
	Metrics   []string
	OutputDir string
}

// Result holds rollup results
type Result struct {
	ReconFile  string
	Positions  int
	Accounts   int
	Clients    int
	Households int
	Files      []string
}

// Runner builds the summaries.
type Runner struct {
	files  Files
	runs   *runs.Recorder
	logger *slog.Logger
}

// NewRunner creates a runner. recorder may be nil.
func NewRunner(files Files, recorder *runs.Recorder, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{files: files, runs: recorder, logger: logger}
}

// Run summarizes the current recon of opts.ReconFolder.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	run := r.runs.Start("rollup", opts.Profile, map[string]string{
		"recon_folder": opts.ReconFolder,
		"data_folder":  opts.DataFolder,
	})
	result, breaks, err := r.run(ctx, opts, run)
	if err != nil {
		return nil, run.Fail(err)
	}
	run.Complete(result.Positions, breaks)
	return result, nil
}

func (r *Runner) run(ctx context.Context, opts Options, run *runs.Run) (*Result, int, error) {
	reconFile, err := r.reconFile(ctx, opts.ReconFolder)
	if err != nil {
		return nil, 0, err
	}
	r.logger.Info("Summarizing recon", "file", reconFile)
	raw, err := r.read(ctx, reconFile)
	if err != nil {
		return nil, 0, err
	}
	positions := Normalize(raw)

	if !positions.Has(summary.SecurityType) {
		securities, err := r.latest(ctx, opts.DataFolder, "Security.csv", "SecurityID", "SecurityTypeCode")
		if err != nil {
			return nil, 0, err
		}
		if positions, err = WithSecurityType(positions, securities); err != nil {
			return nil, 0, err
		}
	}

	metrics := opts.Metrics
	if len(metrics) == 0 {
		metrics = recon.Metrics(positions)
	}
	bySecType, err := summary.Summarize(positions, summary.Options{Metrics: metrics})
	if err != nil {
		return nil, 0, err
	}

	accounts, err := r.latest(ctx, opts.DataFolder, "Account.csv", "AccountCode", "AccountName", "CustodianName", "ClientCode")
	if err != nil {
		return nil, 0, err
	}
	clients, err := r.latest(ctx, opts.DataFolder, "Client.csv", "ClientID", "HouseholdID")
	if err != nil {
		return nil, 0, err
	}
	hierarchy, err := summary.Hierarchy(accounts, clients)
	if err != nil {
		return nil, 0, err
	}
	if bySecType, err = summary.AttachHierarchy(bySecType, hierarchy); err != nil {
		return nil, 0, err
	}

	byAccount, err := summary.ByAccount(bySecType)
	if err != nil {
		return nil, 0, err
	}
	byClient, err := summary.ByClient(bySecType)
	if err != nil {
		return nil, 0, err
	}
	byHousehold, err := summary.ByHousehold(bySecType)
	if err != nil {
		return nil, 0, err
	}

	result := &Result{
		ReconFile:  reconFile,
		Positions:  positions.Len(),
		Accounts:   byAccount.Len(),
		Clients:    byClient.Len(),
		Households: byHousehold.Len(),
	}
	outputs := []struct {
		kind, name string
		f          *frame.Frame
	}{
		{"by_sec_type", BySecTypeFile, bySecType},
		{"by_account", ByAccountFile, byAccount},
		{"by_client", ByClientFile, byClient},
		{"by_household", ByHouseholdFile, byHousehold},
	}
	for _, out := range outputs {
		p := filepath.Join(opts.OutputDir, out.name)
		if err := run.WriteCSV(out.kind, p, out.f); err != nil {
			return nil, 0, err
		}
		result.Files = append(result.Files, p)
	}

	breaks := 0
	for _, v := range bySecType.Column(summary.AnyBreaks) {
		if n, ok := frame.ToFloat(v); ok {
			breaks += int(n)
		}
	}
	return result, breaks, nil
}

// reconFile picks the first file of the folder that is not an archive,
// breaking or exception extract.
func (r *Runner) reconFile(ctx context.Context, folder string) (string, error) {
	if tabular.IsCSV(folder) {
		return folder, nil
	}
	files, err := r.files.List(ctx, folder)
	if err != nil {
		return "", fmt.Errorf("failed to list %s: %w", folder, err)
	}
	for _, f := range files {
		if tabular.IsCSV(f) && !excluded(path.Base(filepath.ToSlash(f))) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w in %s", ErrNoReconFile, folder)
}

func excluded(name string) bool {
	for _, m := range excludedMarkers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// latest reads the last file, by name, of folder whose name contains marker.
func (r *Runner) latest(ctx context.Context, folder, marker string, columns ...string) (*frame.Frame, error) {
	files, err := r.files.List(ctx, folder)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", folder, err)
	}
	var matches []string
	for _, f := range files {
		if strings.Contains(path.Base(filepath.ToSlash(f)), marker) {
			matches = append(matches, f)
		}
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s in %s", ErrNoDataFile, marker, folder)
	}
	sort.Strings(matches)
	r.logger.Debug("Using data file", "marker", marker, "file", matches[len(matches)-1])
	return r.read(ctx, matches[len(matches)-1], columns...)
}

func (r *Runner) read(ctx context.Context, uri string, columns ...string) (*frame.Frame, error) {
	rc, err := r.files.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return tabular.ReadCSVFrom(uri, rc, columns...)
}

// Normalize maps the column names of legacy recon exports (account,
// instrument, <metric>_reconciled) to the position recon names. Position
// recon categories become the security type and the custodian type code is
// kept as "Security Type Code".
func Normalize(f *frame.Frame) *frame.Frame {
	names := map[string]string{
		"account":    summary.AccountID,
		"instrument": "Security ID",
	}
	if f.Has("Category") {
		names[summary.SecurityType] = "Security Type Code"
		names["Category"] = summary.SecurityType
	}
	for _, c := range f.Columns() {
		if m, ok := strings.CutSuffix(c, "_reconciled"); ok && m != "" {
			names[c] = recon.ReconciledColumn(m)
		}
	}
	return f.Rename(names)
}

// WithSecurityType adds the security type of each position from a security
// master (SecurityID, SecurityTypeCode). Unknown securities are marketable.
func WithSecurityType(positions, securities *frame.Frame) (*frame.Frame, error) {
	codes := map[string]string{}
	for _, row := range securities.Rows() {
		codes[frame.Key(row[0])] = frame.Format(row[1])
	}
	types := make([]any, positions.Len())
	for i := range types {
		types[i] = recon.Classify(codes[frame.Key(positions.Value(i, "Security ID"))])
	}
	out := positions.Drop()
	if err := out.SetColumn(summary.SecurityType, types); err != nil {
		return nil, err
	}
	return out, nil
}
