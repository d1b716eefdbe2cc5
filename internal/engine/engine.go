// Package engine runs conversion jobs end to end: extract the
// archive, scan the tree, render the report, publish it. Every path
// out of a conversion leaves the job in a terminal state.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/inkweldlabs/repoprint/internal/archive"
	"github.com/inkweldlabs/repoprint/internal/fetch"
	"github.com/inkweldlabs/repoprint/internal/filter"
	"github.com/inkweldlabs/repoprint/internal/job"
	"github.com/inkweldlabs/repoprint/internal/render"
	"github.com/inkweldlabs/repoprint/internal/scan"
	"github.com/inkweldlabs/repoprint/internal/store"
)

// Progress allocation: rendering owns 0-85, the index backfill runs
// at 85, finalizing at 95, completion at 100.
const (
	percentRender   = 85
	percentIndex    = 85
	percentFinalize = 95
)

// Options configures an Engine.
type Options struct {
	Jobs    *job.Store
	Reports *store.Store
	// Fetcher is optional; without it GitHub conversions fail cleanly.
	Fetcher *fetch.Fetcher

	ScratchDir   string
	BatchSize    int
	MaxFileBytes int64

	Logger *zap.Logger
}

// Engine converts uploaded or fetched archives into PDF reports.
type Engine struct {
	jobs    *job.Store
	reports *store.Store
	fetcher *fetch.Fetcher

	scratchDir   string
	batchSize    int
	maxFileBytes int64

	logger *zap.Logger
}

// New validates the options and creates the scratch directory.
func New(opts Options) (*Engine, error) {
	if opts.Jobs == nil {
		return nil, errors.New("job store is required")
	}
	if opts.Reports == nil {
		return nil, errors.New("report store is required")
	}
	if opts.ScratchDir == "" {
		return nil, errors.New("scratch directory is required")
	}
	if opts.BatchSize <= 0 {
		return nil, errors.New("batch size must be positive")
	}
	if opts.MaxFileBytes <= 0 {
		return nil, errors.New("max file bytes must be positive")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if err := os.MkdirAll(opts.ScratchDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}

	return &Engine{
		jobs:         opts.Jobs,
		reports:      opts.Reports,
		fetcher:      opts.Fetcher,
		scratchDir:   opts.ScratchDir,
		batchSize:    opts.BatchSize,
		maxFileBytes: opts.MaxFileBytes,
		logger:       opts.Logger,
	}, nil
}

// UploadPath returns where the job's incoming archive is spooled.
func (e *Engine) UploadPath(jobID string) string {
	return filepath.Join(e.scratchDir, jobID+".zip")
}

// Convert runs one conversion to a terminal state. Meant to run in
// its own goroutine with the server's lifetime context, so a client
// going away never cancels a running job. The spooled archive and the
// job's scratch tree are removed whichever way the conversion ends.
func (e *Engine) Convert(ctx context.Context, jobID, archivePath, baseName string, rules *filter.Rules) {
	start := time.Now()
	scratch := filepath.Join(e.scratchDir, jobID)
	defer os.RemoveAll(scratch)
	defer os.Remove(archivePath)

	logger := e.logger.With(zap.String("job_id", jobID), zap.String("name", baseName))
	logger.Info("conversion started",
		zap.Strings("excluded_folders", rules.Folders()),
		zap.Strings("excluded_extensions", rules.Extensions()))

	e.jobs.SetProgress(jobID, 0, "Extracting archive")
	srcDir := filepath.Join(scratch, "src")
	if err := archive.ExtractZip(ctx, archivePath, srcDir); err != nil {
		e.fail(logger, jobID, err)
		return
	}

	e.jobs.SetProgress(jobID, 0, "Scanning files")
	files, err := scan.Scan(ctx, srcDir, rules)
	if err != nil {
		e.fail(logger, jobID, err)
		return
	}
	logger.Info("scan finished", zap.Int("files", len(files)))

	doc := render.NewDocument()
	doc.AddCover(baseName, len(files), time.Now())
	doc.ReserveIndex(len(files))

	entries := make([]render.TocEntry, 0, len(files))
	for i, f := range files {
		data, truncated, readErr := readFileCapped(f.Path, e.maxFileBytes)
		entries = append(entries, doc.RenderFile(f.RelPath, data, truncated, readErr))

		// Batch boundary: report progress, honor shutdown, and let
		// other goroutines run before the next slice of files.
		if (i+1)%e.batchSize == 0 || i+1 == len(files) {
			if err := ctx.Err(); err != nil {
				e.fail(logger, jobID, err)
				return
			}
			e.jobs.SetProgress(jobID,
				percentRender*(i+1)/len(files),
				fmt.Sprintf("Rendering file %d of %d", i+1, len(files)))
			runtime.Gosched()
		}
	}

	e.jobs.SetProgress(jobID, percentIndex, "Building index")
	doc.WriteIndex(baseName, entries)
	if err := doc.Err(); err != nil {
		e.fail(logger, jobID, fmt.Errorf("rendering report: %w", err))
		return
	}

	e.jobs.SetProgress(jobID, percentFinalize, "Finalizing report")
	reportName := fmt.Sprintf("%s-%s.pdf", baseName, jobID[:8])
	if err := e.reports.Write(reportName, doc.Save); err != nil {
		e.fail(logger, jobID, fmt.Errorf("publishing report: %w", err))
		return
	}

	e.jobs.Complete(jobID, reportName)
	logger.Info("conversion completed",
		zap.String("report", reportName),
		zap.Int("files", len(files)),
		zap.Int("pages", doc.PageCount()),
		zap.Duration("duration", time.Since(start)))
}

// ConvertGitHub downloads owner/repo at ref and converts it like an
// uploaded archive.
func (e *Engine) ConvertGitHub(ctx context.Context, jobID, owner, repo, ref string, rules *filter.Rules) {
	logger := e.logger.With(zap.String("job_id", jobID))

	if e.fetcher == nil {
		logger.Warn("github conversion requested without fetcher")
		e.jobs.Fail(jobID, "GitHub fetching is not configured")
		return
	}

	e.jobs.SetProgress(jobID, 0, fmt.Sprintf("Fetching %s/%s", owner, repo))
	archivePath := e.UploadPath(jobID)
	if err := e.fetcher.Download(ctx, owner, repo, ref, archivePath); err != nil {
		os.Remove(archivePath)
		e.fail(logger, jobID, err)
		return
	}

	e.Convert(ctx, jobID, archivePath, githubBaseName(owner, repo, ref), rules)
}

// fail marks the job failed with a message a client can show, and
// logs the full error for the operator.
func (e *Engine) fail(logger *zap.Logger, jobID string, err error) {
	logger.Error("conversion failed", zap.Error(err))
	e.jobs.Fail(jobID, failureMessage(err))
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, archive.ErrUnsupportedArchive):
		return "archive is not a valid ZIP file"
	case errors.Is(err, archive.ErrEntryOutsideRoot):
		return "archive contains entries outside its root"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "server shutting down"
	default:
		return fmt.Sprintf("conversion failed: %v", err)
	}
}

// githubBaseName builds a report name from repository coordinates.
// Ref separators become dashes so the name stays a single path
// element.
func githubBaseName(owner, repo, ref string) string {
	name := owner + "-" + repo
	if ref != "" {
		name += "-" + strings.ReplaceAll(ref, "/", "-")
	}
	return name
}

// readFileCapped reads at most limit bytes of the file and reports
// whether content was left behind.
func readFileCapped(path string, limit int64) ([]byte, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(data)) > limit {
		return data[:limit], true, nil
	}
	return data, false, nil
}
