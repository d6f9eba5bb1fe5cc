package tasks

import (
	"context"
	"time"

	"github.com/desertthunder/pagewalk/internal/metrics"
	"github.com/desertthunder/pagewalk/internal/models"
	"github.com/desertthunder/pagewalk/internal/pagination"
)

// StreamChunks sends one filtered chunk per page to sink, in listing order.
//
// Chunks are not deduplicated across pages; a page whose items are all ineligible yields an empty chunk.
// When the listing ends (or a page after the first fails) a chunk with Completed set is sent and nil returned.
// A first-page failure is returned without sending anything. Cancelling ctx while waiting to send, or during
// the pause between chunks, returns ctx.Err() without the completed chunk.
//
// The sink is never closed; the caller owns it.
func (e *Engine) StreamChunks(ctx context.Context, fetcher pagination.PageFetcher, sink chan<- models.Chunk, progress chan<- ProgressUpdate) error {
	logger := e.sessionLogger(fetcher, metrics.ModeStream)
	w := e.walker(fetcher, "", logger)

	index := 0
	for {
		page, ok, err := w.NextPage(ctx)
		if err != nil {
			metrics.ObserveSession(metrics.ModeStream, sessionOutcome(w, err))
			return err
		}
		if !ok {
			break
		}

		chunk := models.Chunk{Index: index, Items: e.filter(page, logger)}
		if err := send(ctx, sink, chunk); err != nil {
			metrics.ObserveSession(metrics.ModeStream, sessionOutcome(w, err))
			return err
		}
		index++
		e.cache(ctx, fetcher, chunk.Items, logger)
		e.sendProgress(progress, streamChunkUpdate(chunk))

		if !page.HasNext() {
			continue
		}
		if err := e.pause(ctx); err != nil {
			metrics.ObserveSession(metrics.ModeStream, sessionOutcome(w, err))
			return err
		}
	}

	if err := send(ctx, sink, models.Chunk{Index: index, Completed: true}); err != nil {
		metrics.ObserveSession(metrics.ModeStream, sessionOutcome(w, err))
		return err
	}
	e.sendProgress(progress, walkEndedUpdate(w.PagesFetched(), w.Cause()))
	metrics.ObserveSession(metrics.ModeStream, sessionOutcome(w, nil))
	logger.Info("stream finished", "chunks", index, "state", w.State())
	return nil
}

// send blocks until the chunk is accepted or ctx is done.
func send(ctx context.Context, sink chan<- models.Chunk, chunk models.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case sink <- chunk:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pause waits for the chunk delay and reports cancellation.
func (e *Engine) pause(ctx context.Context) error {
	if e.chunkDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(e.chunkDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
