package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/desertthunder/pagewalk/internal/formatter"
	"github.com/desertthunder/pagewalk/internal/services"
	"github.com/desertthunder/pagewalk/internal/shared"
	"github.com/desertthunder/pagewalk/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Batch fetches every requested listing concurrently, printing a summary and writing exports with --output.
func (r *Runner) Batch(ctx context.Context, cmd *cli.Command) error {
	client := r.listingClient()
	quota := r.quota(cmd)

	var listings []services.Listing
	for _, q := range cmd.StringSlice("search") {
		listings = append(listings, client.SearchTracks(q))
	}
	for _, id := range cmd.StringSlice("playlist") {
		listings = append(listings, client.PlaylistTracks(id))
	}
	for _, id := range cmd.StringSlice("related") {
		listings = append(listings, client.RelatedTracks(id))
	}
	if cmd.Bool("likes") {
		listings = append(listings, client.LikedTracks())
	}
	if len(listings) == 0 {
		return fmt.Errorf("%w: at least one of --search, --playlist, --related or --likes", shared.ErrMissingArgument)
	}

	format := cmd.String("format")
	if !slices.Contains(formatter.Formats, format) {
		return fmt.Errorf("%w: unknown format %q (want one of %s)", shared.ErrInvalidArgument, format, strings.Join(formatter.Formats, ", "))
	}

	jobs := make([]tasks.Job, len(listings))
	for i, l := range listings {
		jobs[i] = tasks.Job{Name: l.Name(), Fetcher: l, Quota: quota}
	}

	engine, err := r.engine(cmd.Bool("cache"))
	if err != nil {
		return err
	}

	workers := r.config.Fetch.Workers
	if cmd.IsSet("workers") {
		workers = int(cmd.Int("workers"))
	}
	opts := tasks.BatchOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: workers,
		RateLimit:  r.config.API.RateLimit,
	}

	progress := make(chan tasks.ProgressUpdate, len(jobs))
	done := make(chan struct{})
	go r.logProgress(progress, done)

	result, err := engine.FetchMany(ctx, jobs, opts, progress)
	close(progress)
	<-done

	if result == nil {
		return err
	}

	r.writePlainHeader(fmt.Sprintf("Batch %s", result.SessionID))
	for _, res := range result.Results {
		if res.Err != nil {
			r.writePlain("✗ %-40s %v\n", res.Name, res.Err)
			continue
		}
		r.writePlain("✓ %-40s %d items\n", res.Name, len(res.Outcome.Items))
		for _, f := range res.Files {
			r.writePlain("    %s\n", f)
		}
	}
	r.writePlainln("Successful: %d/%d", result.Successful, result.Total)
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}

	if err != nil {
		return err
	}
	if result.Total > 0 && result.Successful == 0 {
		return fmt.Errorf("%w: every session failed", shared.ErrRequestFailed)
	}
	return nil
}
