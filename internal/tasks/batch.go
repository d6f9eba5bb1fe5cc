package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/desertthunder/pagewalk/internal/formatter"
	"github.com/desertthunder/pagewalk/internal/models"
	"github.com/desertthunder/pagewalk/internal/pagination"
	"github.com/desertthunder/pagewalk/internal/shared"
	"golang.org/x/time/rate"
)

// Job is one independent quota fetch in a batch.
type Job struct {
	Name    string // label for output; defaults to the fetcher's listing name
	Fetcher pagination.PageFetcher
	Quota   models.FetchQuota
	Cursor  models.Cursor // resume point, empty for the first page
}

// BatchOpts contains configuration for [Engine.FetchMany].
type BatchOpts struct {
	Format     string  // Output format: json, csv, markdown, txt
	OutputDir  string  // Output directory; nothing is written when empty
	NumWorkers int     // Concurrent sessions (default: 5, max: 10)
	RateLimit  float64 // Session starts per second (default: 5)
}

// SessionResult is the outcome of one [Job].
type SessionResult struct {
	Index   int
	Name    string
	Listing string
	Outcome models.FetchOutcome
	Files   []string
	Err     error
}

// BatchResult summarises a batch. Results are in job order.
type BatchResult struct {
	SessionID       string
	Total           int
	Successful      int
	Failed          int
	Results         []SessionResult
	OutputDirectory string
	ManifestPath    string
}

// FetchMany runs each job as its own quota session on a pool of workers, pacing session starts with a rate limiter.
//
// One job failing does not affect the others. When opts.OutputDir is set every successful outcome is written
// in opts.Format and an export_manifest.json summarises the batch. Cancelling ctx stops scheduling new jobs;
// the partial result is returned with ctx.Err().
func (e *Engine) FetchMany(ctx context.Context, jobs []Job, opts BatchOpts, prog chan<- ProgressUpdate) (*BatchResult, error) {
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}

	if opts.OutputDir != "" {
		if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	result := &BatchResult{
		SessionID:       shared.GenerateID(),
		Total:           len(jobs),
		OutputDirectory: opts.OutputDir,
		Results:         make([]SessionResult, 0, len(jobs)),
	}
	logger := shared.WithLogger(e.logger, "batch", result.SessionID)
	logger.Info("starting batch", "jobs", len(jobs), "workers", opts.NumWorkers)

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	queue := make(chan indexedJob, len(jobs))
	results := make(chan SessionResult, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.sessionWorker(ctx, &wg, queue, results, opts)
	}

	go func() {
		defer close(queue)
		for i, job := range jobs {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			queue <- indexedJob{index: i, job: job}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Err == nil {
			result.Successful++
			e.sendProgress(prog, sessionCompletedUpdate(completed, len(jobs), res))
		} else {
			result.Failed++
			logger.Warn("session failed", "name", res.Name, "err", res.Err)
			e.sendProgress(prog, sessionFailedUpdate(completed, len(jobs), res))
		}
	}

	sort.Slice(result.Results, func(i, j int) bool {
		return result.Results[i].Index < result.Results[j].Index
	})

	if opts.OutputDir != "" {
		manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
		if err := formatter.WriteManifest(manifest(result, opts.Format), manifestPath); err != nil {
			return result, fmt.Errorf("batch completed but failed to write manifest: %w", err)
		}
		result.ManifestPath = manifestPath
	}

	logger.Info("batch finished", "successful", result.Successful, "failed", result.Failed)
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

type indexedJob struct {
	index int
	job   Job
}

// sessionWorker runs queued jobs until the queue closes or ctx is done.
func (e *Engine) sessionWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	queue <-chan indexedJob,
	results chan<- SessionResult,
	opts BatchOpts,
) {
	defer wg.Done()

	for ij := range queue {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results <- e.runSession(ctx, ij, opts)
	}
}

func (e *Engine) runSession(ctx context.Context, ij indexedJob, opts BatchOpts) SessionResult {
	res := SessionResult{Index: ij.index, Name: ij.job.Name}
	if n, ok := ij.job.Fetcher.(Named); ok {
		res.Listing = n.Name()
	}
	if res.Name == "" {
		res.Name = res.Listing
	}
	if res.Name == "" {
		res.Name = fmt.Sprintf("job-%d", ij.index+1)
	}

	outcome, err := e.FetchFrom(ctx, ij.job.Fetcher, ij.job.Cursor, ij.job.Quota, nil)
	if err != nil {
		res.Err = err
		return res
	}
	res.Outcome = outcome

	if opts.OutputDir != "" {
		export := formatter.NewExport(res.Name, res.Listing, outcome)
		files, err := writeExport(export, opts)
		if err != nil {
			res.Err = err
			return res
		}
		res.Files = files
	}
	return res
}

// writeExport writes one session outcome in the requested format.
func writeExport(export *formatter.Export, opts BatchOpts) ([]string, error) {
	base := filepath.Join(opts.OutputDir, formatter.SafeName(export.Name))

	switch opts.Format {
	case formatter.FormatCSV:
		res, err := formatter.WriteCSVExport(export, base)
		if err != nil {
			return nil, fmt.Errorf("CSV export failed: %w", err)
		}
		return []string{res.ItemsFile, res.MetadataFile}, nil
	case formatter.FormatMarkdown:
		var cover string
		if len(export.Items) > 0 {
			cover = export.Items[0].ArtworkURL
		}
		res, err := formatter.WriteMarkdownExport(export, base, cover)
		if err != nil {
			return nil, fmt.Errorf("markdown export failed: %w", err)
		}
		return res.Files, nil
	case formatter.FormatText:
		path, err := formatter.WriteTextExport(export, base+"_items.txt")
		if err != nil {
			return nil, fmt.Errorf("text export failed: %w", err)
		}
		return []string{path}, nil
	default:
		path, err := formatter.WriteJSONExport(export, base+".json")
		if err != nil {
			return nil, fmt.Errorf("JSON export failed: %w", err)
		}
		return []string{path}, nil
	}
}

func manifest(result *BatchResult, format string) formatter.Manifest {
	m := formatter.Manifest{
		SessionID:       result.SessionID,
		Format:          format,
		CreatedAt:       time.Now().UTC(),
		OutputDirectory: result.OutputDirectory,
		TotalJobs:       result.Total,
		Successful:      result.Successful,
		Failed:          result.Failed,
		Entries:         make([]formatter.ManifestEntry, 0, len(result.Results)),
	}
	for _, res := range result.Results {
		entry := formatter.ManifestEntry{
			Name:         res.Name,
			Listing:      res.Listing,
			Status:       formatter.StatusSuccess,
			Items:        len(res.Outcome.Items),
			ResumeCursor: string(res.Outcome.ResumeCursor),
			Files:        res.Files,
		}
		if res.Err != nil {
			entry.Status = formatter.StatusFailed
			entry.Error = res.Err.Error()
		}
		m.Entries = append(m.Entries, entry)
	}
	return m
}
