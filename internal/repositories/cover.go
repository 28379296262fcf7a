package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/mixsync/internal/models"
	"github.com/desertthunder/mixsync/internal/shared"
)

// CoverRepository persists downscaled cover images.
//
// Covers are addressed by their {provenance}_{filename} key and overwritten on re-save.
type CoverRepository struct {
	db *sql.DB
}

// NewCoverRepository creates a new CoverRepository with the given database connection
func NewCoverRepository(db *sql.DB) *CoverRepository {
	return &CoverRepository{db: db}
}

// Save inserts or replaces the cover stored under key.
func (r *CoverRepository) Save(key string, data []byte, width, height int) error {
	if key == "" {
		return fmt.Errorf("%w: cover key is required", shared.ErrInvalidInput)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: cover data is empty", shared.ErrInvalidInput)
	}

	query := `
		INSERT INTO covers (key, data, width, height, size, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			data = excluded.data,
			width = excluded.width,
			height = excluded.height,
			size = excluded.size,
			created_at = excluded.created_at
	`

	if _, err := r.db.Exec(query, key, data, width, height, len(data), time.Now()); err != nil {
		return fmt.Errorf("failed to save cover: %w", err)
	}
	return nil
}

// Load returns the cover stored under key, including its image data.
func (r *CoverRepository) Load(key string) (*models.Cover, error) {
	query := `SELECT key, data, width, height, size, created_at FROM covers WHERE key = ?`

	var cover models.Cover
	err := r.db.QueryRow(query, key).Scan(&cover.Key, &cover.Data, &cover.Width, &cover.Height, &cover.Size, &cover.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrCoverNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cover: %w", err)
	}
	return &cover, nil
}

// List returns cover metadata ordered by key. Image data is not loaded.
func (r *CoverRepository) List() ([]models.Cover, error) {
	rows, err := r.db.Query(`SELECT key, width, height, size, created_at FROM covers ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query covers: %w", err)
	}
	defer rows.Close()

	covers := []models.Cover{}
	for rows.Next() {
		var cover models.Cover
		if err := rows.Scan(&cover.Key, &cover.Width, &cover.Height, &cover.Size, &cover.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cover: %w", err)
		}
		covers = append(covers, cover)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return covers, nil
}

// Delete removes the cover stored under key.
func (r *CoverRepository) Delete(key string) error {
	result, err := r.db.Exec(`DELETE FROM covers WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete cover: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrCoverNotFound, key)
	}
	return nil
}
