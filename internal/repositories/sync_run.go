package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/mixsync/internal/models"
	"github.com/desertthunder/mixsync/internal/shared"
)

const syncRunColumns = `
	id, sequence, playlist_id, provenance, source_ref, keep_local, drop_missing, resync_order,
	status, tracks_before, tracks_after, tracks_added, tracks_dropped, error_message,
	completed_at, created_at, updated_at, deleted_at`

// SyncRunRepository implements models.Repository[*models.SyncRun] for reconciliation history.
type SyncRunRepository struct {
	db *sql.DB
}

// NewSyncRunRepository creates a new SyncRunRepository with the given database connection
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// Create inserts a new sync run into the database with generated ID and sequence
func (r *SyncRunRepository) Create(run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	sequence, err := NextSequence(r.db, "sync_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	run.SetID(id)
	run.SetSequence(sequence)

	query := `
		INSERT INTO sync_runs (
			id, sequence, playlist_id, provenance, source_ref, keep_local, drop_missing, resync_order,
			status, tracks_before, tracks_after, tracks_added, tracks_dropped, error_message,
			completed_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		run.PlaylistID(),
		run.Provenance(),
		run.SourceRef(),
		run.KeepLocal(),
		run.DropMissing(),
		run.ResyncOrder(),
		run.Status(),
		run.TracksBefore(),
		run.TracksAfter(),
		run.TracksAdded(),
		run.TracksDropped(),
		nullString(run.ErrorMessage()),
		run.CompletedAt(),
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}

	return nil
}

// Get retrieves a sync run by ID, excluding soft-deleted runs
func (r *SyncRunRepository) Get(id string) (*models.SyncRun, error) {
	query := `SELECT ` + syncRunColumns + ` FROM sync_runs WHERE id = ? AND deleted_at IS NULL`
	run, err := r.scan(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSyncRunNotFound, id)
	}
	return run, err
}

// Update modifies the status and counts of an existing sync run
func (r *SyncRunRepository) Update(run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	now := time.Now()
	run.SetUpdatedAt(now)

	query := `
		UPDATE sync_runs
		SET status = ?, tracks_before = ?, tracks_after = ?, tracks_added = ?, tracks_dropped = ?,
			error_message = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		run.Status(),
		run.TracksBefore(),
		run.TracksAfter(),
		run.TracksAdded(),
		run.TracksDropped(),
		nullString(run.ErrorMessage()),
		run.CompletedAt(),
		now,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update sync run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrSyncRunNotFound, run.ID())
	}

	return nil
}

// Delete soft-deletes a sync run by ID
func (r *SyncRunRepository) Delete(id string) error {
	ok, err := softDelete(r.db, "sync_runs", id)
	if err != nil {
		return fmt.Errorf("failed to delete sync run: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrSyncRunNotFound, id)
	}
	return nil
}

// List retrieves sync runs newest first, excluding soft-deleted runs.
//
// Supported criteria: "playlist_id", "status", "provenance" (string) and "limit" (int).
func (r *SyncRunRepository) List(criteria map[string]any) ([]*models.SyncRun, error) {
	query := `SELECT ` + syncRunColumns + ` FROM sync_runs WHERE deleted_at IS NULL`
	args := []any{}

	if playlistID, ok := criteria["playlist_id"].(string); ok && playlistID != "" {
		query += " AND playlist_id = ?"
		args = append(args, playlistID)
	}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	if provenance, ok := criteria["provenance"].(string); ok && provenance != "" {
		query += " AND provenance = ?"
		args = append(args, provenance)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	runs := []*models.SyncRun{}
	for rows.Next() {
		run, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// scan reads one row into a [models.SyncRun]; [sql.ErrNoRows] is returned unwrapped
func (r *SyncRunRepository) scan(row scanner) (*models.SyncRun, error) {
	var (
		id            string
		sequence      int
		playlistID    string
		provenance    string
		sourceRef     string
		keepLocal     bool
		dropMissing   bool
		resyncOrder   bool
		status        string
		tracksBefore  int
		tracksAfter   int
		tracksAdded   int
		tracksDropped int
		errorMessage  sql.NullString
		completedAt   sql.NullTime
		createdAt     time.Time
		updatedAt     time.Time
		deletedAt     sql.NullTime
	)

	err := row.Scan(
		&id, &sequence, &playlistID, &provenance, &sourceRef, &keepLocal, &dropMissing, &resyncOrder,
		&status, &tracksBefore, &tracksAfter, &tracksAdded, &tracksDropped, &errorMessage,
		&completedAt, &createdAt, &updatedAt, &deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync run: %w", err)
	}

	run := models.NewSyncRun(sequence, playlistID, provenance, sourceRef)
	run.SetID(id)
	run.SetPolicy(keepLocal, dropMissing, resyncOrder)
	run.SetStatus(status)
	run.SetCounts(tracksBefore, tracksAfter, tracksAdded, tracksDropped)
	run.SetCreatedAt(createdAt)
	run.SetUpdatedAt(updatedAt)
	if errorMessage.Valid {
		run.SetErrorMessage(errorMessage.String)
	}
	if completedAt.Valid {
		run.SetCompletedAt(&completedAt.Time)
	}
	if deletedAt.Valid {
		run.SetDeletedAt(&deletedAt.Time)
	}

	return run, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
