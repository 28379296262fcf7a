package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/mixsync/internal/models"
	"github.com/desertthunder/mixsync/internal/shared"
)

// PlaylistTrackRepository stores the ordered track sequence of each local playlist.
//
// A playlist's tracks are always written as a whole: [PlaylistTrackRepository.Replace] swaps the
// stored sequence inside one transaction so readers never observe a partially merged playlist.
type PlaylistTrackRepository struct {
	db *sql.DB
}

// NewPlaylistTrackRepository creates a new PlaylistTrackRepository with the given database connection
func NewPlaylistTrackRepository(db *sql.DB) *PlaylistTrackRepository {
	return &PlaylistTrackRepository{db: db}
}

// List returns the tracks of a playlist ordered by position.
func (r *PlaylistTrackRepository) List(playlistID string) ([]models.Track, error) {
	query := `
		SELECT position, title, artist, album, duration, cover_key, external_links, file_origin
		FROM playlist_tracks
		WHERE playlist_id = ?
		ORDER BY position ASC
	`

	rows, err := r.db.Query(query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist tracks: %w", err)
	}
	defer rows.Close()

	tracks := []models.Track{}
	for rows.Next() {
		track, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// Count returns the number of stored tracks for a playlist.
func (r *PlaylistTrackRepository) Count(playlistID string) (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM playlist_tracks WHERE playlist_id = ?", playlistID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count playlist tracks: %w", err)
	}
	return count, nil
}

// Replace atomically swaps the stored track sequence of a playlist.
//
// Tracks are stored at positions 1..N in slice order and the playlist's track_count is updated in the
// same transaction.
func (r *PlaylistTrackRepository) Replace(playlistID string, tracks []models.Track) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		"UPDATE playlists SET track_count = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		len(tracks), time.Now(), playlistID,
	)
	if err != nil {
		return fmt.Errorf("failed to update track count: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}

	if _, err := tx.Exec("DELETE FROM playlist_tracks WHERE playlist_id = ?", playlistID); err != nil {
		return fmt.Errorf("failed to clear playlist tracks: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO playlist_tracks (playlist_id, position, title, artist, album, duration, cover_key, external_links, file_origin)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, track := range tracks {
		links, origin, err := encodeTrackDocs(track)
		if err != nil {
			return err
		}

		var duration any
		if track.Duration != nil {
			duration = *track.Duration
		}

		if _, err := stmt.Exec(playlistID, i+1, track.Title, track.Artist, track.Album, duration, track.CoverKey, links, origin); err != nil {
			return fmt.Errorf("failed to insert track %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *PlaylistTrackRepository) scan(rows *sql.Rows) (models.Track, error) {
	var (
		position int
		title    string
		artist   string
		album    string
		duration sql.NullFloat64
		coverKey string
		links    sql.NullString
		origin   sql.NullString
	)

	if err := rows.Scan(&position, &title, &artist, &album, &duration, &coverKey, &links, &origin); err != nil {
		return models.Track{}, fmt.Errorf("failed to scan playlist track: %w", err)
	}

	track := models.Track{
		Title:    title,
		Artist:   artist,
		Album:    album,
		Position: position,
		CoverKey: coverKey,
	}
	if duration.Valid {
		track.Duration = models.Seconds(duration.Float64)
	}
	if links.Valid && links.String != "" {
		if err := json.Unmarshal([]byte(links.String), &track.ExternalLinks); err != nil {
			return models.Track{}, fmt.Errorf("failed to decode external links: %w", err)
		}
	}
	if origin.Valid && origin.String != "" {
		track.FileOrigin = &models.FileOrigin{}
		if err := json.Unmarshal([]byte(origin.String), track.FileOrigin); err != nil {
			return models.Track{}, fmt.Errorf("failed to decode file origin: %w", err)
		}
	}

	return track, nil
}

// encodeTrackDocs serializes the enrichment documents of a track; absent documents become NULL.
func encodeTrackDocs(track models.Track) (links, origin any, err error) {
	if len(track.ExternalLinks) > 0 {
		data, err := json.Marshal(track.ExternalLinks)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode external links: %w", err)
		}
		links = string(data)
	}
	if track.FileOrigin != nil {
		data, err := json.Marshal(track.FileOrigin)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode file origin: %w", err)
		}
		origin = string(data)
	}
	return links, origin, nil
}
