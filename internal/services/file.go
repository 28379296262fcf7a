package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/desertthunder/mixsync/internal/m3u"
	"github.com/desertthunder/mixsync/internal/models"
	"github.com/desertthunder/mixsync/internal/shared"
)

// FileSource reads playlists from M3U files on disk.
type FileSource struct{}

// NewFileSource creates a new FileSource
func NewFileSource() *FileSource {
	return &FileSource{}
}

func (s *FileSource) Name() string       { return "M3U File" }
func (s *FileSource) Provenance() string { return models.ProvenanceFile }

// FetchTracks parses the playlist at path ref. The playlist is named after the file.
func (s *FileSource) FetchTracks(ctx context.Context, ref string) (*models.PlaylistExport, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, fmt.Errorf("%w: playlist file path is required", shared.ErrMissingArgument)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tracks, err := m3u.ParseFile(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	base := filepath.Base(ref)
	return &models.PlaylistExport{
		Playlist: models.Playlist{
			ID:         ref,
			Name:       strings.TrimSuffix(base, filepath.Ext(base)),
			TrackCount: len(tracks),
		},
		Tracks: tracks,
	}, nil
}
