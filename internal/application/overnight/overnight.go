// Package overnight copies a custodian's overnight extract for one day from
// the bucket to a local folder.
package overnight

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/AlanFontoura/myscripts/internal/adapters/objectstore"
	"github.com/AlanFontoura/myscripts/internal/application/runs"
)

// DefaultRoot is the bucket prefix holding one folder per client and day.
const DefaultRoot = "s3://d1g1t-custodian-data-us-east-1/apx"

// Files lists and downloads files by URI (s3:// or local path).
type Files interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Download(ctx context.Context, uri, dest string) error
}

// Options holds download configuration
type Options struct {
	Profile string
	// Root holds <client>/<YYYYMMDD>/ folders. Defaults to DefaultRoot.
	Root      string
	Client    string
	Date      string // YYYYMMDD or YYYY-MM-DD
	OutputDir string
	Workers   int
}

func (o Options) withDefaults() Options {
	if o.Root == "" {
		o.Root = DefaultRoot
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	o.Date = strings.ReplaceAll(o.Date, "-", "")
	return o
}

// Source is the folder listed for the client and day.
func (o Options) Source() (string, error) {
	u, err := objectstore.ParseURI(o.Root)
	if err != nil {
		return "", err
	}
	return u.Join(o.Client, o.Date+"/").String(), nil
}

// Folder is the local folder files are saved to.
func (o Options) Folder() string {
	return filepath.Join(o.OutputDir, o.Client, o.Date)
}

// LocalName returns the saved name of a listed file: its base name with the
// day appended before the .csv extension.
func LocalName(uri, date string) string {
	name := path.Base(filepath.ToSlash(uri))
	return strings.Replace(name, ".csv", "_"+date+".csv", 1)
}

// Result holds download results
type Result struct {
	Source     string
	Folder     string
	Files      []string
	Downloaded int
	Failed     int
}

// Downloader copies overnight files.
type Downloader struct {
	files  Files
	runs   *runs.Recorder
	logger *slog.Logger
}

// NewDownloader creates a downloader. recorder may be nil.
func NewDownloader(files Files, recorder *runs.Recorder, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{files: files, runs: recorder, logger: logger}
}

// Run downloads every file of the day. An empty source is not an error.
func (d *Downloader) Run(ctx context.Context, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	run := d.runs.Start("overnight", opts.Profile, map[string]string{
		"client": opts.Client,
		"date":   opts.Date,
	})
	result, err := d.run(ctx, opts, run)
	if err != nil {
		return nil, run.Fail(err)
	}
	run.Complete(result.Downloaded, result.Failed)
	return result, nil
}

func (d *Downloader) run(ctx context.Context, opts Options, run *runs.Run) (*Result, error) {
	source, err := opts.Source()
	if err != nil {
		return nil, err
	}
	result := &Result{Source: source, Folder: opts.Folder()}

	uris, err := d.files.List(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", source, err)
	}
	if len(uris) == 0 {
		d.logger.Warn("No files found", "source", source)
		return result, nil
	}
	d.logger.Info("Downloading overnight files", "source", source, "folder", result.Folder, "files", len(uris))

	dests := make([]string, len(uris))
	ok := make([]bool, len(uris))
	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, uri := range uris {
		dests[i] = filepath.Join(result.Folder, LocalName(uri, opts.Date))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := d.files.Download(gctx, uri, dests[i]); err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failed.Add(1)
				d.logger.Error("Download failed", "file", uri, "error", err)
				return nil
			}
			ok[i] = true
			d.logger.Debug("Downloaded", "file", uri, "dest", dests[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, dest := range dests {
		if ok[i] {
			result.Files = append(result.Files, dest)
			run.Artifact("overnight", dest, 0)
		}
	}
	result.Downloaded = len(result.Files)
	result.Failed = int(failed.Load())
	d.logger.Info("Overnight files downloaded", "downloaded", result.Downloaded, "failed", result.Failed)
	return result, nil
}
