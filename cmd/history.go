package main

import (
	"context"

	"github.com/desertthunder/mixsync/internal/formatter"
	"github.com/urfave/cli/v3"
)

// HistoryList prints recent sync runs, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	runs, err := r.runs.List(map[string]any{
		"playlist_id": cmd.String("playlist"),
		"status":      cmd.String("status"),
		"limit":       int(cmd.Int("limit")),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		type row struct {
			ID           string `json:"id"`
			Sequence     int    `json:"sequence"`
			PlaylistID   string `json:"playlist_id"`
			Provenance   string `json:"provenance"`
			SourceRef    string `json:"source_ref"`
			Status       string `json:"status"`
			Before       int    `json:"tracks_before"`
			After        int    `json:"tracks_after"`
			Added        int    `json:"tracks_added"`
			Dropped      int    `json:"tracks_dropped"`
			ErrorMessage string `json:"error,omitempty"`
		}
		out := make([]row, 0, len(runs))
		for _, run := range runs {
			out = append(out, row{
				ID:           run.ID(),
				Sequence:     run.Sequence(),
				PlaylistID:   run.PlaylistID(),
				Provenance:   run.Provenance(),
				SourceRef:    run.SourceRef(),
				Status:       run.Status(),
				Before:       run.TracksBefore(),
				After:        run.TracksAfter(),
				Added:        run.TracksAdded(),
				Dropped:      run.TracksDropped(),
				ErrorMessage: run.ErrorMessage(),
			})
		}
		return r.writeJSON(out, true)
	}

	if len(runs) == 0 {
		return r.writePlain("No sync runs recorded.\n")
	}
	return r.writePlain("%s\n", formatter.RunsTable(runs))
}
