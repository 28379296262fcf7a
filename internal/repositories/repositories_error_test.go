package repositories

import (
	"errors"
	"testing"

	"github.com/desertthunder/mixsync/internal/models"
	"github.com/desertthunder/mixsync/internal/shared"
)

func TestPlaylistRepositoryErrors(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		t.Run("ValidationError", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewPlaylistRepository(db)
			playlist := models.NewPersistedPlaylist(0, models.ProvenanceSpotify, "abc", models.Playlist{Name: "  "})

			err := repo.Create(playlist)
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if playlist.ID() != "" {
				t.Error("invalid playlist should not be assigned an ID")
			}
		})

		t.Run("MissingProvenance", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewPlaylistRepository(db)
			playlist := models.NewPersistedPlaylist(0, "", "abc", models.Playlist{Name: "Mix"})

			if err := repo.Create(playlist); err == nil {
				t.Fatal("expected validation error for missing provenance")
			}
		})
	})

	t.Run("NotFound errors", func(t *testing.T) {
		t.Run("Get", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			_, err := NewPlaylistRepository(db).Get("nonexistent-id")
			if !errors.Is(err, shared.ErrPlaylistNotFound) {
				t.Fatalf("expected ErrPlaylistNotFound, got %v", err)
			}
		})

		t.Run("GetBySource", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			_, err := NewPlaylistRepository(db).GetBySource(models.ProvenanceSpotify, "missing")
			if !errors.Is(err, shared.ErrPlaylistNotFound) {
				t.Fatalf("expected ErrPlaylistNotFound, got %v", err)
			}
		})

		t.Run("Update", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			playlist := models.NewPersistedPlaylist(0, models.ProvenanceSpotify, "abc", models.Playlist{Name: "Mix"})
			playlist.SetID("nonexistent-id")

			err := NewPlaylistRepository(db).Update(playlist)
			if !errors.Is(err, shared.ErrPlaylistNotFound) {
				t.Fatalf("expected ErrPlaylistNotFound, got %v", err)
			}
		})

		t.Run("Delete", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			err := NewPlaylistRepository(db).Delete("nonexistent-id")
			if !errors.Is(err, shared.ErrPlaylistNotFound) {
				t.Fatalf("expected ErrPlaylistNotFound, got %v", err)
			}
		})

		t.Run("AlreadyDeleted", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			playlist := createPlaylist(t, db, "Mix", models.ProvenanceSpotify, "abc")
			repo := NewPlaylistRepository(db)

			if err := repo.Delete(playlist.ID()); err != nil {
				t.Fatalf("failed to delete playlist: %v", err)
			}
			if err := repo.Delete(playlist.ID()); !errors.Is(err, shared.ErrPlaylistNotFound) {
				t.Fatalf("expected ErrPlaylistNotFound on second delete, got %v", err)
			}
		})
	})

	t.Run("List", func(t *testing.T) {
		t.Run("ExcludesDeleted", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			keep := createPlaylist(t, db, "Keep", models.ProvenanceSpotify, "a")
			drop := createPlaylist(t, db, "Drop", models.ProvenanceSpotify, "b")
			repo := NewPlaylistRepository(db)

			if err := repo.Delete(drop.ID()); err != nil {
				t.Fatalf("failed to delete playlist: %v", err)
			}

			playlists, err := repo.List(nil)
			if err != nil {
				t.Fatalf("failed to list playlists: %v", err)
			}
			if len(playlists) != 1 || playlists[0].ID() != keep.ID() {
				t.Errorf("expected only %s, got %d playlists", keep.ID(), len(playlists))
			}
		})
	})
}

func TestPlaylistTrackRepositoryErrors(t *testing.T) {
	t.Run("Replace Unknown Playlist", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlaylistTrackRepository(db)
		for _, tracks := range [][]models.Track{{{Title: "A", Artist: "B"}}, {}} {
			if err := repo.Replace("nonexistent-id", tracks); !errors.Is(err, shared.ErrPlaylistNotFound) {
				t.Errorf("Replace(%d tracks) error = %v, want ErrPlaylistNotFound", len(tracks), err)
			}
		}
	})

	t.Run("Failed Replace Keeps Previous Tracks", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		playlist := createPlaylist(t, db, "Mix", models.ProvenanceSpotify, "abc")
		repo := NewPlaylistTrackRepository(db)

		if err := repo.Replace(playlist.ID(), []models.Track{{Title: "A", Artist: "B"}}); err != nil {
			t.Fatalf("failed to replace tracks: %v", err)
		}

		if err := NewPlaylistRepository(db).Delete(playlist.ID()); err != nil {
			t.Fatalf("failed to delete playlist: %v", err)
		}

		if err := repo.Replace(playlist.ID(), []models.Track{}); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Fatalf("expected ErrPlaylistNotFound replacing tracks of deleted playlist, got %v", err)
		}

		tracks, err := repo.List(playlist.ID())
		if err != nil {
			t.Fatalf("failed to list tracks: %v", err)
		}
		if len(tracks) != 1 {
			t.Errorf("expected rollback to keep 1 track, got %d", len(tracks))
		}
	})
}

func TestCoverRepositoryErrors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		data []byte
	}{
		{name: "EmptyKey", key: "", data: []byte{1}},
		{name: "EmptyData", key: "file_a.png", data: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			err := NewCoverRepository(db).Save(tt.key, tt.data, 1, 1)
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}

	t.Run("LoadNotFound", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		_, err := NewCoverRepository(db).Load("spotify_missing.jpg")
		if !errors.Is(err, shared.ErrCoverNotFound) {
			t.Fatalf("expected ErrCoverNotFound, got %v", err)
		}
	})

	t.Run("DeleteNotFound", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		err := NewCoverRepository(db).Delete("spotify_missing.jpg")
		if !errors.Is(err, shared.ErrCoverNotFound) {
			t.Fatalf("expected ErrCoverNotFound, got %v", err)
		}
	})
}

func TestSyncRunRepositoryErrors(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		t.Run("UnknownPlaylist", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			run := models.NewSyncRun(0, "nonexistent-playlist", models.ProvenanceSpotify, "abc")
			if err := NewSyncRunRepository(db).Create(run); err == nil {
				t.Fatal("expected foreign key error for unknown playlist")
			}
		})

		t.Run("ValidationError", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			run := models.NewSyncRun(0, "", models.ProvenanceSpotify, "abc")
			if err := NewSyncRunRepository(db).Create(run); !errors.Is(err, shared.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	})

	t.Run("NotFound errors", func(t *testing.T) {
		t.Run("Get", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			_, err := NewSyncRunRepository(db).Get("nonexistent-id")
			if !errors.Is(err, shared.ErrSyncRunNotFound) {
				t.Fatalf("expected ErrSyncRunNotFound, got %v", err)
			}
		})

		t.Run("Update", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			run := models.NewSyncRun(0, "playlist", models.ProvenanceSpotify, "abc")
			run.SetID("nonexistent-id")

			if err := NewSyncRunRepository(db).Update(run); !errors.Is(err, shared.ErrSyncRunNotFound) {
				t.Fatalf("expected ErrSyncRunNotFound, got %v", err)
			}
		})

		t.Run("Delete", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			if err := NewSyncRunRepository(db).Delete("nonexistent-id"); !errors.Is(err, shared.ErrSyncRunNotFound) {
				t.Fatalf("expected ErrSyncRunNotFound, got %v", err)
			}
		})
	})

	t.Run("List", func(t *testing.T) {
		t.Run("FilterByStatus", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			playlist := createPlaylist(t, db, "Mix", models.ProvenanceSpotify, "abc")
			repo := NewSyncRunRepository(db)

			ok := models.NewSyncRun(0, playlist.ID(), models.ProvenanceSpotify, "abc")
			ok.Complete()
			failed := models.NewSyncRun(0, playlist.ID(), models.ProvenanceSpotify, "abc")
			failed.Fail(errors.New("source unavailable"))

			for _, run := range []*models.SyncRun{ok, failed} {
				if err := repo.Create(run); err != nil {
					t.Fatalf("failed to create sync run: %v", err)
				}
			}

			runs, err := repo.List(map[string]any{"status": models.SyncStatusFailed})
			if err != nil {
				t.Fatalf("failed to list sync runs: %v", err)
			}
			if len(runs) != 1 {
				t.Fatalf("expected 1 failed run, got %d", len(runs))
			}
			if runs[0].ErrorMessage() != "source unavailable" {
				t.Errorf("expected error message to round trip, got %q", runs[0].ErrorMessage())
			}
		})
	})
}
