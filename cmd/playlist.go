package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/mixsync/internal/formatter"
	"github.com/desertthunder/mixsync/internal/shared"
	"github.com/desertthunder/mixsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// PlaylistList lists local playlists.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	playlists, err := r.playlists.List(map[string]any{"provenance": cmd.String("provenance")})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		out := make([]any, 0, len(playlists))
		for _, p := range playlists {
			out = append(out, p.DTO())
		}
		return r.writeJSON(out, true)
	}

	if len(playlists) == 0 {
		return r.writePlain("No playlists. Import one with 'mixsync playlist import'.\n")
	}
	return r.writePlain("%s\n", formatter.PlaylistsTable(playlists))
}

// PlaylistShow prints a playlist and its tracks.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}

	export, err := r.engine.ExportPlaylist(id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(export, true)
	}

	playlist, err := r.playlists.Get(id)
	if err != nil {
		return err
	}

	r.writePlainHeader(playlist.Name())
	if playlist.Description() != "" {
		r.writePlain("%s\n", playlist.Description())
	}
	r.writePlain("Source: %s %s\n", playlist.Provenance(), playlist.SourceRef())
	if playlist.CoverKey() != "" {
		r.writePlain("Cover: %s\n", playlist.CoverKey())
	}
	return r.writePlain("\n%s\n", formatter.TracksTable(export.Tracks))
}

// PlaylistImport creates a local playlist from a source.
func (r *Runner) PlaylistImport(ctx context.Context, cmd *cli.Command) error {
	src, err := r.source(cmd.String("source"))
	if err != nil {
		return err
	}

	ref := strings.TrimSpace(cmd.String("ref"))
	if ref == "" {
		return fmt.Errorf("%w: --ref is required for import", shared.ErrMissingArgument)
	}

	if err := r.open(); err != nil {
		return err
	}

	r.logger.Info("importing playlist", "source", src.Name(), "ref", ref)

	progressCh, stop := r.progress()
	result, err := r.engine.Import(ctx, cmd.String("name"), src, ref, progressCh)
	stop()
	if err != nil {
		return err
	}

	r.writePlainln("✓ Imported %s (%d tracks)", result.Playlist.Name(), result.Playlist.TrackCount())
	return r.writePlain("  ID: %s\n", result.Playlist.ID())
}

// PlaylistExport exports one or more local playlists to files.
func (r *Runner) PlaylistExport(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	if !isFormat(format) {
		return fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidFlag, format)
	}

	if err := r.open(); err != nil {
		return err
	}

	ids := cmd.Args().Slice()
	if cmd.Bool("all") {
		playlists, err := r.playlists.List(nil)
		if err != nil {
			return err
		}
		ids = ids[:0]
		for _, p := range playlists {
			ids = append(ids, p.ID())
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: pass playlist IDs or --all", shared.ErrMissingArgument)
	}

	progressCh, stop := r.progress()
	result, err := r.engine.BulkExport(ctx, progressCh, ids, tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: int(cmd.Int("workers")),
		Covers:     r.covers,
	})
	stop()
	if err != nil {
		return err
	}

	r.writePlainln("Exported %d/%d playlists to %s", result.SuccessfulExports, result.TotalPlaylists, result.OutputDirectory)
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}
	if result.FailedExports > 0 {
		return fmt.Errorf("%d playlist exports failed", result.FailedExports)
	}
	return nil
}

// PlaylistDelete soft-deletes a local playlist.
func (r *Runner) PlaylistDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}

	if err := r.playlists.Delete(id); err != nil {
		return err
	}

	r.logger.Info("playlist deleted", "playlist", id)
	return r.writePlain("✓ Deleted playlist %s\n", id)
}

func requireArg(cmd *cli.Command, name string) (string, error) {
	v := strings.TrimSpace(cmd.StringArg(name))
	if v == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	return v, nil
}

func isFormat(format string) bool {
	for _, f := range formatter.Formats {
		if f == format {
			return true
		}
	}
	return false
}
