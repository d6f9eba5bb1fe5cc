package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/pagewalk/internal/formatter"
	"github.com/desertthunder/pagewalk/internal/models"
	"github.com/desertthunder/pagewalk/internal/services"
	"github.com/desertthunder/pagewalk/internal/shared"
	"github.com/desertthunder/pagewalk/internal/tasks"
	"github.com/urfave/cli/v3"
)

// TracksSearch fetches playable search results until the minimum is reached.
func (r *Runner) TracksSearch(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}
	return r.fetchListing(ctx, cmd, r.listingClient().SearchTracks(query))
}

// TracksRelated fetches playable tracks related to a track.
func (r *Runner) TracksRelated(ctx context.Context, cmd *cli.Command) error {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return fmt.Errorf("%w: track ID", shared.ErrMissingArgument)
	}
	return r.fetchListing(ctx, cmd, r.listingClient().RelatedTracks(id))
}

// TracksLikes fetches the authenticated user's playable liked tracks.
func (r *Runner) TracksLikes(ctx context.Context, cmd *cli.Command) error {
	return r.fetchListing(ctx, cmd, r.listingClient().LikedTracks())
}

// PlaylistTracks fetches playable playlist tracks until the minimum is reached.
func (r *Runner) PlaylistTracks(ctx context.Context, cmd *cli.Command) error {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return fmt.Errorf("%w: playlist ID", shared.ErrMissingArgument)
	}
	return r.fetchListing(ctx, cmd, r.listingClient().PlaylistTracks(id))
}

// quota reads --min and --page-size, falling back to the [fetch] config section.
func (r *Runner) quota(cmd *cli.Command) models.FetchQuota {
	q := models.FetchQuota{
		MinimumEligible: r.config.Fetch.MinimumEligible,
		PageSizeHint:    r.config.Fetch.PageSize,
	}
	if cmd.IsSet("min") {
		q.MinimumEligible = int(cmd.Int("min"))
	}
	if cmd.IsSet("page-size") {
		q.PageSizeHint = int(cmd.Int("page-size"))
	}
	return q.Normalize()
}

func (r *Runner) fetchListing(ctx context.Context, cmd *cli.Command, listing services.Listing) error {
	engine, err := r.engine(cmd.Bool("cache"))
	if err != nil {
		return err
	}

	quota := r.quota(cmd)
	r.logger.Info("fetching listing", "listing", listing.Name(), "min", quota.MinimumEligible)

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go r.logProgress(progress, done)

	outcome, err := engine.FetchFrom(ctx, listing, models.Cursor(cmd.String("cursor")), quota, progress)
	close(progress)
	<-done

	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", listing.Name(), err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(outcome, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("%s (%d items)", listing.Name(), len(outcome.Items)))
	if err := formatter.WriteItems(r.output, outcome.Items, formatter.FormatText, false); err != nil {
		return err
	}
	if !outcome.ResumeCursor.IsZero() {
		return r.writePlainln("Resume with: --cursor '%s'", outcome.ResumeCursor)
	}
	return nil
}

// PlaylistStream prints playable playlist tracks one page at a time, or shows them in the viewer with --tui.
func (r *Runner) PlaylistStream(ctx context.Context, cmd *cli.Command) error {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return fmt.Errorf("%w: playlist ID", shared.ErrMissingArgument)
	}

	if cmd.Bool("tui") && r.config.Log.File == "" {
		if err := r.useFileLogger(); err != nil {
			return err
		}
	}

	engine, err := r.engine(cmd.Bool("cache"))
	if err != nil {
		return err
	}
	listing := r.listingClient().PlaylistTracks(id)
	if size := r.config.Fetch.PageSize; size > 0 {
		listing = listing.WithPageSize(size).(services.Listing)
	}

	if cmd.Bool("tui") {
		return r.streamTUI(ctx, engine, listing)
	}

	ctx, cancel := context.WithCancel(ctx)
	sink := make(chan models.Chunk)
	errCh := make(chan error, 1)
	streamDone := make(chan struct{})
	go func() {
		defer close(streamDone)
		errCh <- engine.StreamChunks(ctx, listing, sink, nil)
	}()
	defer func() {
		cancel()
		<-streamDone
	}()

	total := 0
	for {
		select {
		case chunk := <-sink:
			if chunk.Completed {
				if err := <-errCh; err != nil {
					return err
				}
				if cmd.Bool("json") {
					return nil
				}
				return r.writePlainln("✓ Stream complete: %d chunks, %d items", chunk.Index, total)
			}
			total += len(chunk.Items)
			if err := r.writeChunk(chunk, cmd.Bool("json")); err != nil {
				return err
			}
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("failed to stream %s: %w", listing.Name(), err)
			}
			return nil
		}
	}
}

func (r *Runner) writeChunk(chunk models.Chunk, asJSON bool) error {
	if asJSON {
		return r.writeJSON(struct {
			Index int           `json:"index"`
			Items []models.Item `json:"items"`
		}{chunk.Index, chunk.Items}, false)
	}
	if err := r.writePlain("── chunk %d (%d items)\n", chunk.Index, len(chunk.Items)); err != nil {
		return err
	}
	return formatter.WriteItems(r.output, chunk.Items, formatter.FormatText, false)
}
