package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/mixsync/internal/models"
	"github.com/desertthunder/mixsync/internal/shared"
)

const playlistColumns = `id, sequence, name, description, sort_order, provenance, source_ref, cover_key, track_count, created_at, updated_at, deleted_at`

// PlaylistRepository implements models.Repository[*models.PersistedPlaylist] for local playlists.
//
// Handles playlist CRUD operations with soft delete support and source lookups.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a new playlist into the database with generated ID and sequence
func (r *PlaylistRepository) Create(playlist *models.PersistedPlaylist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	sequence, err := NextSequence(r.db, "playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	playlist.SetID(id)
	playlist.SetSequence(sequence)

	query := `
		INSERT INTO playlists (id, sequence, name, description, sort_order, provenance, source_ref, cover_key, track_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		playlist.Name(),
		playlist.Description(),
		playlist.Order(),
		playlist.Provenance(),
		playlist.SourceRef(),
		playlist.CoverKey(),
		playlist.TrackCount(),
		playlist.CreatedAt(),
		playlist.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	return nil
}

// Get retrieves a playlist by ID, excluding soft-deleted playlists
func (r *PlaylistRepository) Get(id string) (*models.PersistedPlaylist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE id = ? AND deleted_at IS NULL`
	playlist, err := r.scan(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return playlist, err
}

// GetBySource retrieves the most recently imported playlist for a provenance and source reference
func (r *PlaylistRepository) GetBySource(provenance, sourceRef string) (*models.PersistedPlaylist, error) {
	query := `
		SELECT ` + playlistColumns + `
		FROM playlists
		WHERE provenance = ? AND source_ref = ? AND deleted_at IS NULL
		ORDER BY sequence DESC
		LIMIT 1
	`
	playlist, err := r.scan(r.db.QueryRow(query, provenance, sourceRef))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s %s", shared.ErrPlaylistNotFound, provenance, sourceRef)
	}
	return playlist, err
}

// Update modifies an existing playlist in the database
func (r *PlaylistRepository) Update(playlist *models.PersistedPlaylist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	now := time.Now()
	playlist.SetUpdatedAt(now)

	query := `
		UPDATE playlists
		SET name = ?, description = ?, sort_order = ?, provenance = ?, source_ref = ?, cover_key = ?, track_count = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		playlist.Name(),
		playlist.Description(),
		playlist.Order(),
		playlist.Provenance(),
		playlist.SourceRef(),
		playlist.CoverKey(),
		playlist.TrackCount(),
		now,
		playlist.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlist.ID())
	}

	return nil
}

// Delete soft-deletes a playlist by ID
func (r *PlaylistRepository) Delete(id string) error {
	ok, err := softDelete(r.db, "playlists", id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return nil
}

// List retrieves all playlists matching the given criteria, excluding soft-deleted playlists.
//
// Supported criteria: "provenance" and "source_ref" (string).
func (r *PlaylistRepository) List(criteria map[string]any) ([]*models.PersistedPlaylist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE deleted_at IS NULL`
	args := []any{}

	if provenance, ok := criteria["provenance"].(string); ok && provenance != "" {
		query += " AND provenance = ?"
		args = append(args, provenance)
	}

	if sourceRef, ok := criteria["source_ref"].(string); ok && sourceRef != "" {
		query += " AND source_ref = ?"
		args = append(args, sourceRef)
	}

	query += " ORDER BY sort_order ASC, sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	playlists := []*models.PersistedPlaylist{}
	for rows.Next() {
		playlist, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

// scan reads one row into a [models.PersistedPlaylist]; [sql.ErrNoRows] is returned unwrapped
func (r *PlaylistRepository) scan(row scanner) (*models.PersistedPlaylist, error) {
	var (
		id          string
		sequence    int
		name        string
		description string
		order       int
		provenance  string
		sourceRef   string
		coverKey    string
		trackCount  int
		createdAt   time.Time
		updatedAt   time.Time
		deletedAt   sql.NullTime
	)

	err := row.Scan(&id, &sequence, &name, &description, &order, &provenance, &sourceRef, &coverKey, &trackCount, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	dto := models.Playlist{
		Name:        name,
		Description: description,
		Order:       order,
		TrackCount:  trackCount,
	}

	playlist := models.NewPersistedPlaylist(sequence, provenance, sourceRef, dto)
	playlist.SetID(id)
	playlist.SetCoverKey(coverKey)
	playlist.SetCreatedAt(createdAt)
	playlist.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		playlist.SetDeletedAt(&deletedAt.Time)
	}

	return playlist, nil
}
