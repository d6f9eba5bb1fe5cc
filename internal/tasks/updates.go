package tasks

import (
	"fmt"

	"github.com/desertthunder/pagewalk/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase, 0 when unknown
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchPage Phase = iota
	QuotaReached
	StreamChunk
	WalkEnded
	BatchSession
)

func (p Phase) String() string {
	switch p {
	case FetchPage:
		return "fetch_page"
	case QuotaReached:
		return "quota_reached"
	case StreamChunk:
		return "stream_chunk"
	case WalkEnded:
		return "walk_ended"
	case BatchSession:
		return "batch_session"
	default:
		return ""
	}
}

func fetchPageUpdate(page, eligible, total, quota int) ProgressUpdate {
	msg := fmt.Sprintf("Page %d: %d eligible (%d so far)", page, eligible, total)
	if quota > 0 {
		msg = fmt.Sprintf("Page %d: %d eligible (%d/%d)", page, eligible, total, quota)
	}
	return ProgressUpdate{
		Phase:   FetchPage,
		Step:    page,
		Message: msg,
	}
}

func quotaReachedUpdate(pages, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   QuotaReached,
		Step:    pages,
		Message: fmt.Sprintf("Collected %d eligible items in %d pages", total, pages),
	}
}

func streamChunkUpdate(chunk models.Chunk) ProgressUpdate {
	return ProgressUpdate{
		Phase:   StreamChunk,
		Step:    chunk.Index + 1,
		Message: fmt.Sprintf("Chunk %d: %d items", chunk.Index+1, len(chunk.Items)),
		Data:    chunk,
	}
}

func walkEndedUpdate(pages int, cause error) ProgressUpdate {
	msg := fmt.Sprintf("Listing exhausted after %d pages", pages)
	if cause != nil {
		msg = fmt.Sprintf("Stopped after %d pages: %v", pages, cause)
	}
	return ProgressUpdate{
		Phase:   WalkEnded,
		Step:    pages,
		Message: msg,
	}
}

func sessionCompletedUpdate(step, total int, res SessionResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BatchSession,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d items)", step, total, res.Name, len(res.Outcome.Items)),
		Data:    res,
	}
}

func sessionFailedUpdate(step, total int, res SessionResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BatchSession,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.Name, res.Err),
		Data:    res,
	}
}
