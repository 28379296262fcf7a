package tasks

import (
	"fmt"

	"github.com/desertthunder/mixsync/internal/models"
	"github.com/desertthunder/mixsync/internal/reconcile"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	LoadLocal Phase = iota
	FetchSource
	Compare
	MergeTracks
	Persist
	CacheCover
	ExportPlaylist
)

func (p Phase) String() string {
	switch p {
	case LoadLocal:
		return "load_local"
	case FetchSource:
		return "fetch_source"
	case Compare:
		return "compare"
	case MergeTracks:
		return "merge"
	case Persist:
		return "persist"
	case CacheCover:
		return "cache_cover"
	case ExportPlaylist:
		return "export_playlist"
	default:
		return ""
	}
}

func loadLocalUpdate(step, total int, pl *models.PersistedPlaylist, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadLocal,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Loaded local playlist: %s (%d tracks)", pl.Name(), count),
		Data:    pl,
	}
}

func fetchSourceUpdate(step, total int, name, ref string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching incoming playlist from %s (%s)...", name, ref),
	}
}

func foundPlaylistUpdate(step, total int, export *models.PlaylistExport) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Found playlist: %s (%d tracks)", export.Playlist.Name, len(export.Tracks)),
		Data:    export,
	}
}

func compareUpdate(step, total int, cmp reconcile.Comparison) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Compare,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Compared: %d added, %d missing, %d common", len(cmp.Added), len(cmp.Missing), len(cmp.Common)),
		Data:    cmp,
	}
}

func mergeUpdate(step, total int, res reconcile.Result) ProgressUpdate {
	return ProgressUpdate{
		Phase:   MergeTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Merged: %d tracks (%d new)", len(res.MergedTracks), len(res.NewlyAddedTracks)),
		Data:    res,
	}
}

func persistUpdate(step, total int, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Persist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Saving %d tracks...", count),
	}
}

func cacheCoverUpdate(step, total int, key string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CacheCover,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Cached cover %s", key),
	}
}

func exportingPlaylistUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, name),
	}
}

func exportCompletedUpdate(step, total int, name string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, name, filesCount),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}
