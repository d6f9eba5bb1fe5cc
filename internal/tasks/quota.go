package tasks

import (
	"context"

	"github.com/desertthunder/pagewalk/internal/eligibility"
	"github.com/desertthunder/pagewalk/internal/metrics"
	"github.com/desertthunder/pagewalk/internal/models"
	"github.com/desertthunder/pagewalk/internal/pagination"
)

// FetchUntilQuota collects eligible items from the start of a listing until quota.MinimumEligible is met.
//
// See [Engine.FetchFrom].
func (e *Engine) FetchUntilQuota(ctx context.Context, fetcher pagination.PageFetcher, quota models.FetchQuota, progress chan<- ProgressUpdate) (models.FetchOutcome, error) {
	return e.FetchFrom(ctx, fetcher, "", quota, progress)
}

// FetchFrom collects eligible items starting at cursor.
//
// The quota is checked between pages only, so the last page is always kept whole. A MinimumEligible of 0 stops
// after one page. Items are deduplicated once over the whole accumulation. A first-page failure is returned;
// a later failure ends the session with whatever was collected and no error. The resume cursor continues
// the listing where this session stopped and is empty once the listing is exhausted.
func (e *Engine) FetchFrom(ctx context.Context, fetcher pagination.PageFetcher, cursor models.Cursor, quota models.FetchQuota, progress chan<- ProgressUpdate) (models.FetchOutcome, error) {
	quota = quota.Normalize()
	logger := e.sessionLogger(fetcher, metrics.ModeQuota)
	w := e.walker(pagination.Sized(fetcher, quota.PageSizeHint), cursor, logger)

	var acc []models.Item
	for {
		page, ok, err := w.NextPage(ctx)
		if err != nil {
			metrics.ObserveSession(metrics.ModeQuota, sessionOutcome(w, err))
			return models.FetchOutcome{}, err
		}
		if !ok {
			e.sendProgress(progress, walkEndedUpdate(w.PagesFetched(), w.Cause()))
			break
		}

		eligible := e.filter(page, logger)
		acc = append(acc, eligible...)
		e.sendProgress(progress, fetchPageUpdate(w.PagesFetched(), len(eligible), len(acc), quota.MinimumEligible))

		if quota.MinimumEligible == 0 || len(acc) >= quota.MinimumEligible {
			e.sendProgress(progress, quotaReachedUpdate(w.PagesFetched(), len(acc)))
			break
		}
	}

	items := eligibility.Deduplicate(acc)
	e.cache(ctx, fetcher, items, logger)
	metrics.ObserveSession(metrics.ModeQuota, sessionOutcome(w, nil))

	logger.Info("quota fetch finished",
		"items", len(items),
		"pages", w.PagesFetched(),
		"state", w.State(),
		"resume", w.Cursor() != "",
	)
	return models.FetchOutcome{Items: items, ResumeCursor: w.Cursor()}, nil
}
