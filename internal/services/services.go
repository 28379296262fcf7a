// package services defines interface Source for obtaining incoming playlists
//
// Spotify (catalog), M3U files
package services

import (
	"context"

	"github.com/desertthunder/mixsync/internal/models"
)

// Source defines the interface for providers that can produce a fully materialized playlist to reconcile against.
type Source interface {
	// Name returns the display name of the source (e.g., "Spotify", "M3U File").
	Name() string

	// Provenance returns the provenance tag that selects the match-key rule for tracks from this source.
	Provenance() string

	// FetchTracks resolves ref and returns the playlist with every track loaded.
	// Implementations page until exhaustion; callers never see a partial list.
	FetchTracks(ctx context.Context, ref string) (*models.PlaylistExport, error)
}
