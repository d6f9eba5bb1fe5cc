package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/pagewalk/internal/eligibility"
	"github.com/desertthunder/pagewalk/internal/metrics"
	"github.com/desertthunder/pagewalk/internal/models"
	"github.com/desertthunder/pagewalk/internal/pagination"
	"github.com/desertthunder/pagewalk/internal/shared"
)

// DefaultChunkDelay is the pause between streamed chunks.
const DefaultChunkDelay = 50 * time.Millisecond

// ItemCacher persists eligible items as they are fetched.
//
// Caching is best effort: errors are logged and never fail a session.
type ItemCacher interface {
	CacheItems(ctx context.Context, listing string, items []models.Item) error
}

// Named is implemented by fetchers that can label the listing they walk. Only named listings are cached.
type Named interface {
	Name() string
}

// EngineOpts configures an [Engine].
type EngineOpts struct {
	Credentials pagination.CredentialProvider
	Cacher      ItemCacher              // optional
	Logger      *log.Logger             // defaults to a discard logger
	ChunkDelay  time.Duration           // defaults to [DefaultChunkDelay]; negative disables the pause
	Policy      *pagination.RetryPolicy // defaults to [pagination.DefaultRetryPolicy]
}

// Engine runs fetch sessions that share one credential provider.
//
// An Engine holds no per-session state and is safe for concurrent use.
type Engine struct {
	creds      pagination.CredentialProvider
	cacher     ItemCacher
	logger     *log.Logger
	chunkDelay time.Duration
	policy     pagination.RetryPolicy
}

// NewEngine creates a new [Engine].
func NewEngine(opts EngineOpts) *Engine {
	e := &Engine{
		creds:      opts.Credentials,
		cacher:     opts.Cacher,
		logger:     opts.Logger,
		chunkDelay: opts.ChunkDelay,
		policy:     pagination.DefaultRetryPolicy(),
	}
	if e.logger == nil {
		e.logger = shared.DiscardLogger()
	}
	if e.chunkDelay == 0 {
		e.chunkDelay = DefaultChunkDelay
	}
	if opts.Policy != nil {
		e.policy = *opts.Policy
	}
	return e
}

// FetchUntilQuota runs a quota fetch with a throwaway [Engine].
func FetchUntilQuota(ctx context.Context, fetcher pagination.PageFetcher, creds pagination.CredentialProvider, quota models.FetchQuota) (models.FetchOutcome, error) {
	return NewEngine(EngineOpts{Credentials: creds}).FetchUntilQuota(ctx, fetcher, quota, nil)
}

// StreamChunks runs a chunk stream with a throwaway [Engine].
func StreamChunks(ctx context.Context, fetcher pagination.PageFetcher, creds pagination.CredentialProvider, sink chan<- models.Chunk) error {
	return NewEngine(EngineOpts{Credentials: creds}).StreamChunks(ctx, fetcher, sink, nil)
}

func (e *Engine) walker(fetcher pagination.PageFetcher, cursor models.Cursor, logger *log.Logger) *pagination.Walker {
	return pagination.NewWalker(fetcher, e.creds,
		pagination.WithStartCursor(cursor),
		pagination.WithRetryPolicy(e.policy),
		pagination.WithLogger(logger),
	)
}

// sessionLogger tags log lines with the listing name when the fetcher has one.
func (e *Engine) sessionLogger(fetcher pagination.PageFetcher, mode string) *log.Logger {
	kv := []any{"mode", mode}
	if n, ok := fetcher.(Named); ok {
		kv = append(kv, "listing", n.Name())
	}
	return shared.WithLogger(e.logger, kv...)
}

// filter applies the eligibility rules to one page and records the breakdown.
func (e *Engine) filter(page models.Page, logger *log.Logger) []models.Item {
	counts := eligibility.Tally(page.Items)
	metrics.ObserveItems(counts)
	if dropped := len(page.Items) - counts[eligibility.Eligible]; dropped > 0 {
		logger.Debug("filtered ineligible items", "dropped", dropped, "kept", counts[eligibility.Eligible])
	}
	return eligibility.FilterEligible(page.Items)
}

func (e *Engine) cache(ctx context.Context, fetcher pagination.PageFetcher, items []models.Item, logger *log.Logger) {
	if e.cacher == nil || len(items) == 0 {
		return
	}
	n, ok := fetcher.(Named)
	if !ok {
		return
	}
	if err := e.cacher.CacheItems(ctx, n.Name(), items); err != nil {
		logger.Warn("failed to cache items", "err", err)
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// sessionOutcome labels a finished session for metrics.
func sessionOutcome(w *pagination.Walker, err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCancelled
	case err != nil:
		return metrics.OutcomeFailed
	case w.Cause() != nil:
		return metrics.OutcomePartial
	default:
		return metrics.OutcomeComplete
	}
}
