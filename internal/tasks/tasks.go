package tasks

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixsync/internal/models"
	"github.com/desertthunder/mixsync/internal/reconcile"
	"github.com/desertthunder/mixsync/internal/services"
	"github.com/desertthunder/mixsync/internal/shared"
)

// PlaylistStore persists playlist metadata. [repositories.PlaylistRepository] satisfies it.
type PlaylistStore interface {
	Create(playlist *models.PersistedPlaylist) error
	Get(id string) (*models.PersistedPlaylist, error)
	Update(playlist *models.PersistedPlaylist) error
	Delete(id string) error
	List(criteria map[string]any) ([]*models.PersistedPlaylist, error)
}

// TrackStore persists ordered track sequences. [repositories.PlaylistTrackRepository] satisfies it.
type TrackStore interface {
	List(playlistID string) ([]models.Track, error)
	Replace(playlistID string, tracks []models.Track) error
}

// RunStore records sync history. [repositories.SyncRunRepository] satisfies it.
type RunStore interface {
	Create(run *models.SyncRun) error
	Update(run *models.SyncRun) error
}

// CoverPutter caches cover images. [covers.Cache] satisfies it.
type CoverPutter interface {
	Put(ctx context.Context, provenance, filename string, data []byte) (string, error)
}

// CoverFetcher downloads cover image bytes.
type CoverFetcher func(ctx context.Context, url string) ([]byte, error)

// PreviewResult contains the comparison of a local playlist against an incoming one.
type PreviewResult struct {
	Playlist   *models.PersistedPlaylist // Local playlist
	Local      []models.Track            // Local tracks at preview time
	Incoming   *models.PlaylistExport    // Fully fetched incoming playlist
	Provenance string                    // Provenance used for matching
	Comparison reconcile.Comparison
}

// ApplyResult contains the outcome of a persisted merge.
type ApplyResult struct {
	Playlist *models.PersistedPlaylist // Updated local playlist
	Incoming *models.PlaylistExport    // Incoming playlist that was merged
	Merge    reconcile.Result          // Merged and newly added tracks
	Run      *models.SyncRun           // History record for this run
}

// SyncEngine defines reconciliation operations on local playlists.
type SyncEngine interface {
	// Preview loads the local playlist, fetches the incoming list, and compares them without writing anything.
	Preview(ctx context.Context, playlistID string, src services.Source, ref string, progress chan<- ProgressUpdate) (*PreviewResult, error)

	// Apply merges the incoming list into the local playlist under policy and persists the result.
	// Returns [shared.ErrLocked] if another reconciliation holds the playlist.
	Apply(ctx context.Context, playlistID string, src services.Source, ref string, policy reconcile.Policy, progress chan<- ProgressUpdate) (*ApplyResult, error)

	// Import creates a new local playlist from a source.
	Import(ctx context.Context, name string, src services.Source, ref string, progress chan<- ProgressUpdate) (*ApplyResult, error)
}

// PlaylistEngine implements SyncEngine on top of the playlist, track, and history stores.
type PlaylistEngine struct {
	playlists PlaylistStore
	tracks    TrackStore
	runs      RunStore
	locks     *Locker
	covers    CoverPutter
	fetch     CoverFetcher
	logger    *log.Logger
}

// EngineOption configures a [PlaylistEngine].
type EngineOption func(*PlaylistEngine)

// WithCovers enables caching of playlist cover art when a source provides a cover URL.
func WithCovers(cache CoverPutter, fetch CoverFetcher) EngineOption {
	return func(e *PlaylistEngine) {
		e.covers = cache
		e.fetch = fetch
	}
}

// WithEngineLogger sets the engine logger.
func WithEngineLogger(logger *log.Logger) EngineOption {
	return func(e *PlaylistEngine) { e.logger = logger }
}

// NewPlaylistEngine creates a new PlaylistEngine with the provided stores.
func NewPlaylistEngine(playlists PlaylistStore, tracks TrackStore, runs RunStore, locks *Locker, opts ...EngineOption) *PlaylistEngine {
	e := &PlaylistEngine{
		playlists: playlists,
		tracks:    tracks,
		runs:      runs,
		locks:     locks,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *PlaylistEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Preview compares the local playlist with the incoming one.
//
// An empty ref falls back to the source reference recorded when the playlist was imported.
func (e *PlaylistEngine) Preview(ctx context.Context, playlistID string, src services.Source, ref string, progress chan<- ProgressUpdate) (*PreviewResult, error) {
	if err := checkSource(src); err != nil {
		return nil, err
	}

	playlist, local, err := e.loadLocal(playlistID, progress, 3)
	if err != nil {
		return nil, err
	}

	ref = resolveRef(ref, playlist)
	incoming, err := e.fetchIncoming(ctx, src, ref, progress, 3)
	if err != nil {
		return nil, err
	}

	provenance := src.Provenance()
	cmp := reconcile.Compare(local, incoming.Tracks, provenance)
	e.sendProgress(progress, compareUpdate(3, 3, cmp))

	return &PreviewResult{
		Playlist:   playlist,
		Local:      local,
		Incoming:   incoming,
		Provenance: provenance,
		Comparison: cmp,
	}, nil
}

// Apply merges the incoming playlist into the local one and persists the merged sequence.
//
// The playlist lock is held from loading the local snapshot until the merged tracks are stored.
// A canceled context discards the computed merge before anything is written.
func (e *PlaylistEngine) Apply(ctx context.Context, playlistID string, src services.Source, ref string, policy reconcile.Policy, progress chan<- ProgressUpdate) (*ApplyResult, error) {
	if err := checkSource(src); err != nil {
		return nil, err
	}
	if e.locks == nil {
		return nil, fmt.Errorf("%w: lock manager not initialized", shared.ErrServiceUnavailable)
	}

	unlock, err := e.locks.TryLock(playlistID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	const steps = 5

	playlist, local, err := e.loadLocal(playlistID, progress, steps)
	if err != nil {
		return nil, err
	}

	ref = resolveRef(ref, playlist)
	policy.Provenance = src.Provenance()

	run := models.NewSyncRun(0, playlist.ID(), policy.Provenance, ref)
	run.SetPolicy(policy.KeepLocalOnlyTracks, policy.DropTracksMissingFromIncoming, policy.ResyncOrderFromIncoming)
	if err := e.runs.Create(run); err != nil {
		return nil, fmt.Errorf("failed to record sync run: %w", err)
	}

	incoming, err := e.fetchIncoming(ctx, src, ref, progress, steps)
	if err != nil {
		e.failRun(run, err)
		return nil, err
	}

	merged := reconcile.Merge(local, incoming.Tracks, policy)
	e.sendProgress(progress, mergeUpdate(3, steps, merged))

	if err := ctx.Err(); err != nil {
		e.failRun(run, err)
		return nil, err
	}

	e.sendProgress(progress, persistUpdate(4, steps, len(merged.MergedTracks)))
	if err := e.tracks.Replace(playlist.ID(), merged.MergedTracks); err != nil {
		e.failRun(run, err)
		return nil, fmt.Errorf("failed to save merged tracks: %w", err)
	}

	playlist.SetTrackCount(len(merged.MergedTracks))
	if playlist.SourceRef() == "" {
		playlist.SetSourceRef(ref)
	}
	if playlist.CoverKey() == "" {
		playlist.SetCoverKey(e.cacheCover(ctx, policy.Provenance, incoming.Playlist, progress, steps))
	}
	if err := e.playlists.Update(playlist); err != nil {
		e.failRun(run, err)
		return nil, fmt.Errorf("failed to update playlist: %w", err)
	}

	e.completeRun(run, len(local), merged)

	e.logger.Info("sync applied",
		"playlist", playlist.ID(),
		"provenance", policy.Provenance,
		"before", len(local),
		"after", len(merged.MergedTracks),
		"added", len(merged.NewlyAddedTracks))

	return &ApplyResult{Playlist: playlist, Incoming: incoming, Merge: merged, Run: run}, nil
}

// Import creates a local playlist holding the incoming tracks in source order.
//
// An empty name uses the incoming playlist's name.
func (e *PlaylistEngine) Import(ctx context.Context, name string, src services.Source, ref string, progress chan<- ProgressUpdate) (*ApplyResult, error) {
	if err := checkSource(src); err != nil {
		return nil, err
	}

	const steps = 4

	incoming, err := e.fetchIncoming(ctx, src, ref, progress, steps)
	if err != nil {
		return nil, err
	}

	policy := reconcile.Policy{
		KeepLocalOnlyTracks:     true,
		ResyncOrderFromIncoming: true,
		Provenance:              src.Provenance(),
	}
	merged := reconcile.Merge(nil, incoming.Tracks, policy)
	e.sendProgress(progress, mergeUpdate(2, steps, merged))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dto := incoming.Playlist
	if strings.TrimSpace(name) != "" {
		dto.Name = name
	}
	dto.TrackCount = len(merged.MergedTracks)

	playlist := models.NewPersistedPlaylist(0, policy.Provenance, ref, dto)
	if err := e.playlists.Create(playlist); err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}

	e.sendProgress(progress, persistUpdate(3, steps, len(merged.MergedTracks)))
	if err := e.tracks.Replace(playlist.ID(), merged.MergedTracks); err != nil {
		if derr := e.playlists.Delete(playlist.ID()); derr != nil {
			e.logger.Error("failed to remove partially imported playlist", "playlist", playlist.ID(), "error", derr)
		}
		return nil, fmt.Errorf("failed to save tracks: %w", err)
	}

	if key := e.cacheCover(ctx, policy.Provenance, incoming.Playlist, progress, steps); key != "" {
		playlist.SetCoverKey(key)
		if err := e.playlists.Update(playlist); err != nil {
			e.logger.Warn("failed to record cover key", "playlist", playlist.ID(), "error", err)
		}
	}

	run := models.NewSyncRun(0, playlist.ID(), policy.Provenance, ref)
	run.SetPolicy(policy.KeepLocalOnlyTracks, policy.DropTracksMissingFromIncoming, policy.ResyncOrderFromIncoming)
	if err := e.runs.Create(run); err != nil {
		e.logger.Warn("failed to record import run", "playlist", playlist.ID(), "error", err)
	} else {
		e.completeRun(run, 0, merged)
	}

	e.logger.Info("playlist imported", "playlist", playlist.ID(), "name", playlist.Name(), "tracks", len(merged.MergedTracks))

	return &ApplyResult{Playlist: playlist, Incoming: incoming, Merge: merged, Run: run}, nil
}

func (e *PlaylistEngine) loadLocal(playlistID string, progress chan<- ProgressUpdate, total int) (*models.PersistedPlaylist, []models.Track, error) {
	playlist, err := e.playlists.Get(playlistID)
	if err != nil {
		return nil, nil, err
	}

	local, err := e.tracks.List(playlist.ID())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load local tracks: %w", err)
	}

	e.sendProgress(progress, loadLocalUpdate(1, total, playlist, len(local)))
	return playlist, local, nil
}

func (e *PlaylistEngine) fetchIncoming(ctx context.Context, src services.Source, ref string, progress chan<- ProgressUpdate, total int) (*models.PlaylistExport, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, fmt.Errorf("%w: source reference is required", shared.ErrMissingArgument)
	}

	e.sendProgress(progress, fetchSourceUpdate(2, total, src.Name(), ref))
	incoming, err := src.FetchTracks(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch from %s: %w", src.Name(), err)
	}

	e.sendProgress(progress, foundPlaylistUpdate(2, total, incoming))
	return incoming, nil
}

// cacheCover downloads and caches the incoming playlist's cover. Failures are logged, not returned.
func (e *PlaylistEngine) cacheCover(ctx context.Context, provenance string, pl models.Playlist, progress chan<- ProgressUpdate, total int) string {
	if e.covers == nil || e.fetch == nil || pl.CoverURL == "" {
		return ""
	}

	data, err := e.fetch(ctx, pl.CoverURL)
	if err != nil {
		e.logger.Warn("failed to download cover", "url", pl.CoverURL, "error", err)
		return ""
	}

	key, err := e.covers.Put(ctx, provenance, coverFilename(pl), data)
	if err != nil {
		e.logger.Warn("failed to cache cover", "url", pl.CoverURL, "error", err)
		return ""
	}

	e.sendProgress(progress, cacheCoverUpdate(total, total, key))
	return key
}

func (e *PlaylistEngine) completeRun(run *models.SyncRun, before int, merged reconcile.Result) {
	after := len(merged.MergedTracks)
	added := len(merged.NewlyAddedTracks)
	run.SetCounts(before, after, added, max(before+added-after, 0))
	run.Complete()
	if err := e.runs.Update(run); err != nil {
		e.logger.Warn("failed to update sync run", "run", run.ID(), "error", err)
	}
}

func (e *PlaylistEngine) failRun(run *models.SyncRun, cause error) {
	run.Fail(cause)
	if err := e.runs.Update(run); err != nil {
		e.logger.Warn("failed to update sync run", "run", run.ID(), "error", err)
	}
}

func checkSource(src services.Source) error {
	if src == nil {
		return fmt.Errorf("%w: source not initialized", shared.ErrServiceUnavailable)
	}
	if src.Provenance() == "" {
		return fmt.Errorf("%w: %s", shared.ErrUnknownProvenance, src.Name())
	}
	return nil
}

func resolveRef(ref string, playlist *models.PersistedPlaylist) string {
	if strings.TrimSpace(ref) != "" {
		return strings.TrimSpace(ref)
	}
	return playlist.SourceRef()
}

// coverFilename names a cached playlist cover after the playlist's source ID.
func coverFilename(pl models.Playlist) string {
	id := path.Base(strings.ReplaceAll(pl.ID, "\\", "/"))
	if id == "" || id == "." || id == "/" {
		id = shared.GenerateID()
	}
	return id + ".jpg"
}
