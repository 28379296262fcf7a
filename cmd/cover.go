package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/mixsync/internal/formatter"
	"github.com/desertthunder/mixsync/internal/models"
	"github.com/urfave/cli/v3"
)

// CoverPut downscales an image file into the cover cache and optionally assigns it to a playlist.
func (r *Runner) CoverPut(ctx context.Context, cmd *cli.Command) error {
	path, err := requireArg(cmd, "path")
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	key, err := r.covers.Put(ctx, cmd.String("provenance"), filepath.Base(path), data)
	if err != nil {
		return err
	}
	r.logger.Info("cover cached", "key", key, "source", path)

	if playlistID := cmd.String("playlist"); playlistID != "" {
		playlist, err := r.playlists.Get(playlistID)
		if err != nil {
			return err
		}
		playlist.SetCoverKey(key)
		if err := r.playlists.Update(playlist); err != nil {
			return err
		}
		r.writePlain("✓ Assigned to %s\n", playlist.Name())
	}

	return r.writePlain("✓ Cached cover %s\n", key)
}

// CoverList lists cached covers.
func (r *Runner) CoverList(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	list, err := r.coverRepo.List()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		if list == nil {
			list = []models.Cover{}
		}
		return r.writeJSON(list, true)
	}

	if len(list) == 0 {
		return r.writePlain("No cached covers.\n")
	}
	return r.writePlain("%s\n", formatter.CoversTable(list))
}
