package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/desertthunder/pagewalk/internal/formatter"
	"github.com/desertthunder/pagewalk/internal/models"
	"github.com/urfave/cli/v3"
)

// CacheList lists cached listings with their item counts, or the cached items of one listing.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.itemRepository()
	if err != nil {
		return err
	}

	listing := cmd.String("listing")
	if listing == "" {
		counts, err := repo.Listings()
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(counts, cmd.Bool("pretty"))
		}

		names := make([]string, 0, len(counts))
		for name := range counts {
			names = append(names, name)
		}
		sort.Strings(names)

		r.writePlainHeader(fmt.Sprintf("Cached listings (%d)", len(names)))
		for _, name := range names {
			r.writePlain("%-40s %d items\n", name, counts[name])
		}
		return nil
	}

	cached, err := repo.List(map[string]any{"listing": listing, "limit": int(cmd.Int("limit"))})
	if err != nil {
		return err
	}

	items := make([]models.Item, len(cached))
	for i, c := range cached {
		items[i] = c.Item()
	}

	if cmd.Bool("json") {
		return r.writeJSON(items, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("%s (%d cached items)", listing, len(items)))
	return formatter.WriteItems(r.output, items, formatter.FormatText, false)
}
