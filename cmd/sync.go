package main

import (
	"context"

	"github.com/desertthunder/mixsync/internal/formatter"
	"github.com/desertthunder/mixsync/internal/reconcile"
	"github.com/desertthunder/mixsync/internal/services"
	"github.com/urfave/cli/v3"
)

// SyncDiff compares a local playlist with its source without writing anything.
func (r *Runner) SyncDiff(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}

	src, err := r.sourceFor(cmd, id)
	if err != nil {
		return err
	}

	progressCh, stop := r.progressFor(cmd)
	preview, err := r.engine.Preview(ctx, id, src, cmd.String("ref"), progressCh)
	stop()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(preview.Comparison, true)
	}

	r.writePlain("\n")
	return formatter.FormatDiff(r.output, preview.Comparison)
}

// SyncApply merges a source into a local playlist.
//
// Policy flags override the configured defaults only when given. With --dry-run the merge is computed
// from a preview and printed without persisting anything.
func (r *Runner) SyncApply(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}

	src, err := r.sourceFor(cmd, id)
	if err != nil {
		return err
	}

	policy := r.policy(cmd, src.Provenance())
	r.logger.Debug("sync policy", "keep_local", policy.KeepLocalOnlyTracks, "drop_missing", policy.DropTracksMissingFromIncoming, "resync_order", policy.ResyncOrderFromIncoming)

	progressCh, stop := r.progressFor(cmd)

	if cmd.Bool("dry-run") {
		preview, err := r.engine.Preview(ctx, id, src, cmd.String("ref"), progressCh)
		stop()
		if err != nil {
			return err
		}

		merged := reconcile.Merge(preview.Local, preview.Incoming.Tracks, policy)
		if cmd.Bool("json") {
			return r.writeJSON(merged, true)
		}

		r.writePlainln("Dry run: nothing saved")
		return formatter.FormatMerge(r.output, merged)
	}

	result, err := r.engine.Apply(ctx, id, src, cmd.String("ref"), policy, progressCh)
	stop()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result.Merge, true)
	}

	r.writePlain("\n")
	if err := formatter.FormatMerge(r.output, result.Merge); err != nil {
		return err
	}
	return r.writePlainln("✓ %s: %d → %d tracks (%d added, %d dropped)",
		result.Playlist.Name(),
		result.Run.TracksBefore(),
		result.Run.TracksAfter(),
		result.Run.TracksAdded(),
		result.Run.TracksDropped())
}

// sourceFor resolves --source, falling back to the provenance the playlist was imported from.
func (r *Runner) sourceFor(cmd *cli.Command, playlistID string) (services.Source, error) {
	name := cmd.String("source")
	if name == "" {
		playlist, err := r.playlists.Get(playlistID)
		if err != nil {
			return nil, err
		}
		name = playlist.Provenance()
	}
	return r.source(name)
}

// policy builds the merge policy from config defaults and explicit flags.
func (r *Runner) policy(cmd *cli.Command, provenance string) reconcile.Policy {
	policy := r.config.Policy(provenance)
	if cmd.IsSet("keep-local") {
		policy.KeepLocalOnlyTracks = cmd.Bool("keep-local")
	}
	if cmd.IsSet("drop-missing") {
		policy.DropTracksMissingFromIncoming = cmd.Bool("drop-missing")
	}
	if cmd.IsSet("resync-order") {
		policy.ResyncOrderFromIncoming = cmd.Bool("resync-order")
	}
	return policy
}
