// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/desertthunder/pagewalk/internal/formatter"
	"github.com/urfave/cli/v3"
)

// fetchFlags are shared by every quota fetch command.
func fetchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "min",
			Usage: "Minimum number of eligible items to collect (0 fetches one page; default from config)",
		},
		&cli.IntFlag{
			Name:  "page-size",
			Usage: "Items requested per page (default from config)",
		},
		&cli.StringFlag{
			Name:  "cursor",
			Usage: "Resume from a cursor printed by an earlier run",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
		},
		&cli.BoolFlag{
			Name:  "cache",
			Usage: "Store fetched items in the local cache",
		},
	}
}

// setupCommand handles setup operations.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize the item cache and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize with OAuth2 and save the token to the config file",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the authorization callback",
						Value: 5 * time.Minute,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "status",
				Usage: "Show the stored token state",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "refresh",
						Usage: "Refresh the access token if possible",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

// tracksCommand handles quota fetches over track listings
func tracksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tracks",
		Usage: "Fetch playable tracks until the minimum is reached",
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Search tracks",
				Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
				Flags:     fetchFlags(),
				Action:    r.TracksSearch,
			},
			{
				Name:      "related",
				Usage:     "Tracks related to a track ID or URN",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     fetchFlags(),
				Action:    r.TracksRelated,
			},
			{
				Name:   "likes",
				Usage:  "Liked tracks of the authenticated user",
				Flags:  fetchFlags(),
				Action: r.TracksLikes,
			},
		},
	}
}

// playlistCommand handles playlist operations
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlist",
		Usage: "Playlist operations",
		Commands: []*cli.Command{
			{
				Name:      "tracks",
				Usage:     "Fetch playable playlist tracks until the minimum is reached",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     fetchFlags(),
				Action:    r.PlaylistTracks,
			},
			{
				Name:      "stream",
				Usage:     "Stream playable playlist tracks page by page",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "tui",
						Usage: "Show the stream in the interactive viewer",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print one JSON object per chunk",
					},
					&cli.BoolFlag{
						Name:  "cache",
						Usage: "Store streamed items in the local cache",
					},
				},
				Action: r.PlaylistStream,
			},
		},
	}
}

// batchCommand runs several fetch sessions concurrently
func batchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "batch",
		Usage: "Fetch several listings concurrently and export the results",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "search",
				Usage: "Search query to fetch (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  "playlist",
				Usage: "Playlist ID to fetch (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  "related",
				Usage: "Track ID whose related tracks to fetch (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "likes",
				Usage: "Include liked tracks",
			},
			&cli.IntFlag{
				Name:  "min",
				Usage: "Minimum eligible items per listing (default from config)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent sessions (default from config)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Directory for exported files; nothing is written when empty",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Export format (json, csv, markdown, txt)",
				Value: formatter.FormatJSON,
			},
			&cli.BoolFlag{
				Name:  "cache",
				Usage: "Store fetched items in the local cache",
			},
		},
		Action: r.Batch,
	}
}

// cacheCommand handles the local item cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect the local item cache",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List cached listings, or the items of one listing",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listing",
						Usage: "Listing name, e.g. likes or search:lofi",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of items to show",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.CacheList,
			},
		},
	}
}
