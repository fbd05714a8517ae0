// Package positions reconciles d1g1t positions against custodian positions
// for one day and writes full and per-category break reports.
package positions

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/AlanFontoura/myscripts/internal/adapters/tabular"
	"github.com/AlanFontoura/myscripts/internal/application/runs"
	"github.com/AlanFontoura/myscripts/internal/domain/frame"
	"github.com/AlanFontoura/myscripts/internal/domain/recon"
)

const (
	baseLabel   = "d1g1t"
	targetLabel = "Custodian"
	diffPlaces  = 2
)

var keys = []string{Date, AccountID, SecurityID}

var spec = recon.CompareSpec{
	Keys:        keys,
	Metrics:     Metrics,
	BaseLabel:   baseLabel,
	TargetLabel: targetLabel,
	Absolute:    true,
	Round:       diffPlaces,
}

// metricColumns returns the d1g1t, custodian, diff and reconciled columns of metrics.
func metricColumns(metrics ...string) []string {
	var out []string
	for _, m := range metrics {
		out = append(out, recon.BaseColumn(m, spec), recon.TargetColumn(m, spec), recon.DiffColumn(m), recon.ReconciledColumn(m))
	}
	return out
}

// FullColumns is the column order of the full reconciliation.
var FullColumns = append([]string{Date, AccountID, SecurityID, SecurityName, Symbol, SecurityType, Category}, metricColumns(Metrics...)...)

// BreakColumns is the column order of break reports before per-category drops.
var BreakColumns = append([]string{AccountID, SecurityID, SecurityName, Symbol, SecurityType}, metricColumns(Metrics...)...)

// Reconcile outer-joins tracking and custodian positions on date, account and
// security, attaches security details and a category, and flags each metric
// against its threshold. Units and price of unpriced categories are blanked
// and count as reconciled. Rows with no units and no market value on either
// side are dropped.
func Reconcile(tracking, positions, securities *frame.Frame, thresholds map[string]float64) (*frame.Frame, error) {
	s := spec
	s.Tolerances = thresholds
	compared, err := recon.Compare(tracking, positions, s)
	if err != nil {
		return nil, err
	}

	merged, err := frame.Merge(compared, securities, frame.MergeOptions{On: []string{SecurityID}, How: frame.Left})
	if err != nil {
		return nil, err
	}

	n := merged.Len()
	usd := make([]bool, n)
	for i := range n {
		usd[i] = frame.Format(merged.Value(i, SecurityID)) == usdID
	}
	for col, v := range map[string]any{SecurityName: "US Dollar", SecurityType: "ca", Symbol: "cash"} {
		if err := update(merged, col, usd, v); err != nil {
			return nil, err
		}
	}

	categories := make([]any, n)
	unpriced := make([]bool, n)
	for i := range n {
		c := recon.Classify(frame.Format(merged.Value(i, SecurityType)))
		categories[i] = c
		unpriced[i] = !recon.IsPriced(c)
	}
	if err := merged.SetColumn(Category, categories); err != nil {
		return nil, err
	}
	for _, m := range []string{Units, Price} {
		for _, col := range []string{recon.BaseColumn(m, spec), recon.TargetColumn(m, spec), recon.DiffColumn(m)} {
			if err := update(merged, col, unpriced, nil); err != nil {
				return nil, err
			}
		}
		if err := update(merged, recon.ReconciledColumn(m), unpriced, true); err != nil {
			return nil, err
		}
	}

	holdings := []string{
		recon.BaseColumn(Units, spec), recon.TargetColumn(Units, spec),
		recon.BaseColumn(MarketValue, spec), recon.TargetColumn(MarketValue, spec),
	}
	kept := merged.Filter(func(r frame.Row) bool {
		for _, c := range holdings {
			if frame.Truthy(r.Get(c)) {
				return true
			}
		}
		return false
	})
	return kept.Select(FullColumns...)
}

// update sets column to v in the flagged rows.
func update(f *frame.Frame, column string, rows []bool, v any) error {
	values := f.Column(column)
	if values == nil {
		values = make([]any, f.Len())
	}
	for i, hit := range rows {
		if hit {
			values[i] = v
		}
	}
	return f.SetColumn(column, values)
}

// IsBreak reports whether units or market value did not reconcile.
func IsBreak(r frame.Row) bool {
	return recon.IsBreak(r, []string{recon.ReconciledColumn(Units), recon.ReconciledColumn(MarketValue)})
}

// Report is one per-category break file.
type Report struct {
	Category string
	Slug     string
	Frame    *frame.Frame
}

var slugs = map[string]string{
	recon.Cashlike:      "cashlike",
	recon.Marketable:    "marketable",
	recon.NonMarketable: "non_marketable",
	recon.TruePE:        "true_pe",
}

// Split returns the breaks of full by category, in report order. Cashlike
// reports omit the security type and unpriced categories omit units and price.
func Split(full *frame.Frame) ([]Report, error) {
	breaks := full.Filter(IsBreak)
	reports := make([]Report, 0, len(recon.Categories))
	for _, c := range recon.Categories {
		part, err := breaks.Filter(func(r frame.Row) bool { return r.Get(Category) == c }).Select(BreakColumns...)
		if err != nil {
			return nil, err
		}
		switch {
		case c == recon.Cashlike:
			part = part.Drop(SecurityType)
		case !recon.IsPriced(c):
			part = part.Drop(metricColumns(Units, Price)...)
		}
		reports = append(reports, Report{Category: c, Slug: slugs[c], Frame: part})
	}
	return reports, nil
}

// Options holds daily recon configuration
type Options struct {
	Profile     string
	Date        string // YYYY-MM-DD
	Client      string
	Environment string
	// Tracking, position and security master URIs. Position and security
	// master paths may contain a YYYYMMDD placeholder.
	TrackingFile       string
	PositionFile       string
	SecurityMasterFile string
	USDSecurity        string
	Thresholds         map[string]float64
	OutputDir          string
	// Workbook also writes every report as one XLSX workbook.
	Workbook bool
}

// Result holds daily recon results
type Result struct {
	ReportDate string
	Rows       int
	Breaks     int
	FullFile   string
	Reports    map[string]int
	Files      []string
}

// Runner loads the three sources and writes the reports.
type Runner struct {
	files  Opener
	runs   *runs.Recorder
	logger *slog.Logger
}

// NewRunner creates a runner. recorder may be nil.
func NewRunner(files Opener, recorder *runs.Recorder, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{files: files, runs: recorder, logger: logger}
}

// Run builds the reconciliation for opts.Date.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	run := r.runs.Start("positions", opts.Profile, map[string]string{
		"date":        opts.Date,
		"client":      opts.Client,
		"environment": opts.Environment,
	})
	result, err := r.run(ctx, opts, run)
	if err != nil {
		return nil, run.Fail(err)
	}
	run.Complete(result.Rows, result.Breaks)
	return result, nil
}

// Load reads and prepares the tracking, position and security master files.
func (r *Runner) Load(ctx context.Context, opts Options) (tracking, positions, securities *frame.Frame, err error) {
	raw, err := readCSV(ctx, r.files, opts.TrackingFile)
	if err != nil {
		return nil, nil, nil, err
	}
	if tracking, err = Tracking(raw); err != nil {
		return nil, nil, nil, err
	}

	if raw, err = readCSV(ctx, r.files, DatedPath(opts.PositionFile, opts.Date)); err != nil {
		return nil, nil, nil, err
	}
	if positions, err = Positions(raw, opts.USDSecurity); err != nil {
		return nil, nil, nil, err
	}

	if raw, err = readCSV(ctx, r.files, DatedPath(opts.SecurityMasterFile, opts.Date)); err != nil {
		return nil, nil, nil, err
	}
	if securities, err = Securities(raw); err != nil {
		return nil, nil, nil, err
	}

	tracking, positions, securities = Clean(tracking), Clean(positions), Clean(securities)
	r.logger.Info("Loaded sources",
		"tracking", tracking.Len(),
		"positions", positions.Len(),
		"securities", securities.Len(),
	)
	return tracking, positions, securities, nil
}

func (r *Runner) run(ctx context.Context, opts Options, run *runs.Run) (*Result, error) {
	r.logger.Info("Starting reconciliation file generation", "client", opts.Client, "date", opts.Date)
	tracking, positions, securities, err := r.Load(ctx, opts)
	if err != nil {
		return nil, err
	}

	full, err := Reconcile(tracking, positions, securities, opts.Thresholds)
	if err != nil {
		return nil, err
	}

	reportDate := opts.Date
	if full.Len() > 0 {
		if d := frame.Format(full.Value(0, Date)); d != "" {
			reportDate = d
		}
	}
	full = full.SortBy(AccountID, SecurityID)
	reports, err := Split(full)
	if err != nil {
		return nil, err
	}

	result := &Result{ReportDate: reportDate, Rows: full.Len(), Reports: map[string]int{}}
	prefix := fmt.Sprintf("%s_%s_%s", reportDate, opts.Client, opts.Environment)

	result.FullFile = filepath.Join(opts.OutputDir, prefix+"_full_recon.csv")
	if err := run.WriteCSV("full", result.FullFile, full); err != nil {
		return nil, err
	}
	result.Files = append(result.Files, result.FullFile)

	sheets := []tabular.Sheet{{Name: "Full Recon", Frame: full}}
	for _, rep := range reports {
		path := filepath.Join(opts.OutputDir, fmt.Sprintf("%s_%s_recon.csv", prefix, rep.Slug))
		if err := run.WriteCSV(rep.Slug, path, rep.Frame); err != nil {
			return nil, err
		}
		result.Files = append(result.Files, path)
		result.Reports[rep.Category] = rep.Frame.Len()
		result.Breaks += rep.Frame.Len()
		sheets = append(sheets, tabular.Sheet{Name: rep.Category, Frame: rep.Frame})
	}

	if opts.Workbook {
		path := filepath.Join(opts.OutputDir, prefix+"_recon.xlsx")
		if err := run.WriteXLSX("workbook", path, sheets...); err != nil {
			return nil, err
		}
		result.Files = append(result.Files, path)
	}

	r.logger.Info("Reconciliation files saved", "dir", opts.OutputDir, "rows", result.Rows, "breaks", result.Breaks)
	return result, nil
}
