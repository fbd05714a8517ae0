// Package navhistory downloads the monthly NAV history of every entity of a
// hierarchy level from d1g1t and concatenates it into one file.
package navhistory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/AlanFontoura/myscripts/internal/adapters/d1g1t"
	"github.com/AlanFontoura/myscripts/internal/adapters/tabular"
	"github.com/AlanFontoura/myscripts/internal/application/runs"
	"github.com/AlanFontoura/myscripts/internal/domain/charttable"
	"github.com/AlanFontoura/myscripts/internal/domain/frame"
)

// ErrUnknownLevel is returned for levels other than accounts, clients and households.
var ErrUnknownLevel = errors.New("unknown hierarchy level")

const (
	entityKeyColumn = "firm_provided_key"
	entityIDColumn  = "entity_id"
	vnfKeyColumn    = "Portfolio Firm Provided Key"
)

// API is the part of the d1g1t client used here.
type API interface {
	ListEntities(ctx context.Context, level string, batchSize int) ([]d1g1t.Entity, error)
	Calc(ctx context.Context, calcType string, payload any) (json.RawMessage, error)
}

// Options holds download configuration
type Options struct {
	Date     string // report date, YYYY-MM-DD
	Currency string
	Level    string
	// Filter restricts entities to those listed in vnf_<level>.csv.
	Filter bool
	// Server names the cache file and output folder.
	Server    string
	InputDir  string
	OutputDir string
	Workers   int
	BatchSize int
}

func (o Options) withDefaults() Options {
	if o.Currency == "" {
		o.Currency = "CAD"
	}
	if o.Level == "" {
		o.Level = "accounts"
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.BatchSize <= 0 {
		o.BatchSize = d1g1t.DefaultBatchSize
	}
	return o
}

// Folder is where entity files and the concatenated file are written.
func (o Options) Folder() string {
	return filepath.Join(o.OutputDir, o.Server, o.Level)
}

// EntityCache is the file caching the entity listing of a server and level.
func (o Options) EntityCache() string {
	return filepath.Join(o.InputDir, fmt.Sprintf("%s_%s_entity_ids.csv", o.Server, o.Level))
}

// ConcatenatedFile is the combined output of every entity file.
func (o Options) ConcatenatedFile() string {
	return filepath.Join(o.Folder(), fmt.Sprintf("concatenated_%s.csv", o.Level))
}

// Result holds download results
type Result struct {
	Entities     int
	Skipped      int
	Downloaded   int
	Failed       int
	Concatenated string
	Rows         int
}

// Downloader runs the NAV history download.
type Downloader struct {
	api    API
	runs   *runs.Recorder
	logger *slog.Logger
}

// NewDownloader creates a downloader. recorder may be nil.
func NewDownloader(api API, recorder *runs.Recorder, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{api: api, runs: recorder, logger: logger}
}

// Run downloads every pending entity and rebuilds the concatenated file.
// Entities that fail are logged and counted; they never stop the batch.
func (d *Downloader) Run(ctx context.Context, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	if !slices.Contains(Levels, opts.Level) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLevel, opts.Level)
	}

	run := d.runs.Start("navhistory", opts.Server, map[string]string{
		"date":     opts.Date,
		"currency": opts.Currency,
		"level":    opts.Level,
	})

	result, err := d.run(ctx, opts)
	if err != nil {
		return nil, run.Fail(err)
	}
	if result.Concatenated != "" {
		run.Artifact("concatenated", result.Concatenated, result.Rows)
	}
	run.Complete(result.Rows, result.Failed)
	return result, nil
}

func (d *Downloader) run(ctx context.Context, opts Options) (*Result, error) {
	if err := os.MkdirAll(opts.Folder(), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output folder: %w", err)
	}

	entities, err := d.entities(ctx, opts)
	if err != nil {
		return nil, err
	}
	pending, err := pendingEntities(entities, opts.Folder())
	if err != nil {
		return nil, err
	}

	result := &Result{Entities: len(entities), Skipped: len(entities) - len(pending)}
	d.logger.Info("Downloading NAV history",
		"level", opts.Level,
		"entities", len(entities),
		"pending", len(pending),
		"workers", opts.Workers,
	)

	var downloaded, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for _, e := range pending {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := d.download(gctx, opts, e); err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failed.Add(1)
				if errors.Is(err, d1g1t.ErrNoResponse) {
					d.logger.Warn("No response", "level", opts.Level, "entity", e.FirmProvidedKey)
				} else {
					d.logger.Error("Download failed", "level", opts.Level, "entity", e.FirmProvidedKey, "error", err)
				}
				return nil
			}
			downloaded.Add(1)
			d.logger.Info("Download OK", "level", opts.Level, "entity", e.FirmProvidedKey)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	result.Downloaded = int(downloaded.Load())
	result.Failed = int(failed.Load())

	path, rows, err := d.concatenate(opts)
	if err != nil {
		return nil, err
	}
	result.Concatenated, result.Rows = path, rows
	return result, nil
}

// entities returns the cached entity list, fetching and caching it when
// absent, filtered by the VNF list when requested.
func (d *Downloader) entities(ctx context.Context, opts Options) ([]d1g1t.Entity, error) {
	var entities []d1g1t.Entity
	cache := opts.EntityCache()
	if f, err := tabular.ReadCSVFile(cache, entityKeyColumn, entityIDColumn); err == nil {
		d.logger.Debug("Using cached entity list", "path", cache)
		for _, row := range f.Rows() {
			entities = append(entities, d1g1t.Entity{FirmProvidedKey: frame.Format(row[0]), EntityID: frame.Format(row[1])})
		}
	} else if errors.Is(err, os.ErrNotExist) {
		entities, err = d.api.ListEntities(ctx, opts.Level, opts.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", opts.Level, err)
		}
		rows := make([][]any, len(entities))
		for i, e := range entities {
			rows[i] = []any{e.FirmProvidedKey, e.EntityID}
		}
		if err := tabular.WriteCSVFile(cache, frame.New([]string{entityKeyColumn, entityIDColumn}, rows)); err != nil {
			return nil, fmt.Errorf("failed to cache entity list: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to read entity cache: %w", err)
	}

	if !opts.Filter {
		return entities, nil
	}
	vnf, err := tabular.ReadCSVFile(filepath.Join(opts.InputDir, "vnf_"+opts.Level+".csv"), vnfKeyColumn)
	if errors.Is(err, os.ErrNotExist) {
		d.logger.Warn("VNF filter requested but no VNF file found", "level", opts.Level)
		return entities, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read VNF list: %w", err)
	}
	keep := map[string]bool{}
	for _, v := range vnf.Column(vnfKeyColumn) {
		keep[frame.Format(v)] = true
	}
	filtered := entities[:0:0]
	for _, e := range entities {
		if keep[e.FirmProvidedKey] {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// pendingEntities drops entities whose file already exists in folder.
func pendingEntities(entities []d1g1t.Entity, folder string) ([]d1g1t.Entity, error) {
	files, err := tabular.ListCSV(folder)
	if err != nil {
		return nil, err
	}
	done := map[string]bool{}
	for _, p := range files {
		done[strings.TrimSuffix(filepath.Base(p), ".csv")] = true
	}
	var out []d1g1t.Entity
	for _, e := range entities {
		if !done[e.FirmProvidedKey] {
			out = append(out, e)
		}
	}
	return out, nil
}

func (d *Downloader) download(ctx context.Context, opts Options, e d1g1t.Entity) error {
	payload, err := NewPayload(opts.Level, e.EntityID, opts.Currency, opts.Date)
	if err != nil {
		return err
	}
	raw, err := d.api.Calc(ctx, CalcType, payload)
	if err != nil {
		return err
	}

	table, err := Flatten(raw, payload)
	if err != nil {
		return err
	}
	table.InsertConstant(1, IDColumn(opts.Level), e.FirmProvidedKey)
	return tabular.WriteCSVFile(filepath.Join(opts.Folder(), e.FirmProvidedKey+".csv"), table)
}

// Flatten turns a calc response into a table using the request that produced it.
func Flatten(raw json.RawMessage, payload any) (*frame.Frame, error) {
	resp, err := charttable.DecodeResponse(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := charttable.DecodeRequest(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return charttable.Flatten(resp, req)
}

// concatenate combines every non-empty entity file of the level folder.
func (d *Downloader) concatenate(opts Options) (string, int, error) {
	files, err := tabular.ListCSV(opts.Folder())
	if err != nil {
		return "", 0, err
	}
	target := opts.ConcatenatedFile()
	var frames []*frame.Frame
	for _, p := range files {
		if p == target {
			continue
		}
		f, err := tabular.ReadCSVFile(p)
		if err != nil {
			d.logger.Warn("Skipping unreadable file", "path", p, "error", err)
			continue
		}
		if f.Len() > 0 {
			frames = append(frames, f)
		}
	}
	if len(frames) == 0 {
		d.logger.Warn("No files to concatenate", "folder", opts.Folder())
		return "", 0, nil
	}

	all := frame.Concat(frames...).SortBy(IDColumn(opts.Level), "Date")
	if err := tabular.WriteCSVFile(target, all); err != nil {
		return "", 0, err
	}
	d.logger.Info("Data concatenation completed", "path", target, "rows", all.Len())
	return target, all.Len(), nil
}
