// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/desertthunder/mixsync/internal/formatter"
	"github.com/urfave/cli/v3"
)

func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "source",
			Aliases: []string{"s"},
			Usage:   "Incoming source: spotify or file",
		},
		&cli.StringFlag{
			Name:    "ref",
			Aliases: []string{"r"},
			Usage:   "Source reference (Spotify playlist ID/URI/URL or M3U path); defaults to the playlist's recorded source",
		},
	}
}

func policyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "keep-local",
			Usage: "Keep local tracks that are absent from the incoming playlist and add incoming tracks",
		},
		&cli.BoolFlag{
			Name:  "drop-missing",
			Usage: "Remove local tracks that are absent from the incoming playlist",
		},
		&cli.BoolFlag{
			Name:  "resync-order",
			Usage: "Reorder tracks to follow the incoming playlist",
		},
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output JSON",
	}
}

// setupCommand handles setup operations for database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Revert the most recently applied migration",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write a configuration file from the built-in template",
				Action: r.SetupConfig,
			},
		},
	}
}

// playlistCommand handles local playlist operations
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Local playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List local playlists",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "provenance",
						Usage: "Only list playlists imported from this source",
					},
					jsonFlag(),
				},
				Action: r.PlaylistList,
			},
			{
				Name:      "show",
				Usage:     "Show a playlist and its tracks",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     []cli.Flag{jsonFlag()},
				Action:    r.PlaylistShow,
			},
			{
				Name:  "import",
				Usage: "Create a local playlist from a source",
				Flags: append(sourceFlags(),
					&cli.StringFlag{
						Name:    "name",
						Aliases: []string{"n"},
						Usage:   "Playlist name (defaults to the source's name)",
					},
				),
				Action: r.PlaylistImport,
			},
			{
				Name:      "export",
				Usage:     "Export local playlists to files",
				ArgsUsage: "[id...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: " + strings.Join(formatter.Formats, ", "),
						Value:   formatter.FormatJSON,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent export workers",
						Value: 4,
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Export every local playlist",
					},
				},
				Action: r.PlaylistExport,
			},
			{
				Name:      "delete",
				Usage:     "Delete a local playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.PlaylistDelete,
			},
		},
	}
}

// syncCommand handles reconciliation against incoming sources
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Reconcile local playlists with their sources",
		Commands: []*cli.Command{
			{
				Name:      "diff",
				Usage:     "Compare a local playlist with its source without changing it",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     append(sourceFlags(), jsonFlag()),
				Action:    r.SyncDiff,
			},
			{
				Name:      "apply",
				Usage:     "Merge the source into a local playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: append(append(sourceFlags(), policyFlags()...),
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Show the merged result without saving it",
					},
					jsonFlag(),
				),
				Action: r.SyncApply,
			},
		},
	}
}

// coverCommand handles cover art cache operations
func coverCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cover",
		Usage: "Cover art cache operations",
		Commands: []*cli.Command{
			{
				Name:      "put",
				Usage:     "Downscale and cache an image file",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "provenance",
						Usage: "Provenance prefix for the cache key",
						Value: "file",
					},
					&cli.StringFlag{
						Name:  "playlist",
						Usage: "Assign the cached cover to this playlist",
					},
				},
				Action: r.CoverPut,
			},
			{
				Name:   "list",
				Usage:  "List cached covers",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.CoverList,
			},
		},
	}
}

// historyCommand handles sync run history
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Sync run history",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent sync runs",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "playlist",
						Usage: "Only show runs for this playlist",
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only show runs with this status (pending, completed, failed)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs",
						Value: 20,
					},
					jsonFlag(),
				},
				Action: r.HistoryList,
			},
		},
	}
}
