package tasks

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/desertthunder/mixsync/internal/models"
	"github.com/desertthunder/mixsync/internal/reconcile"
	"github.com/desertthunder/mixsync/internal/repositories"
	"github.com/desertthunder/mixsync/internal/shared"
	th "github.com/desertthunder/mixsync/internal/testing"
)

type testEnv struct {
	db        *sql.DB
	playlists *repositories.PlaylistRepository
	tracks    *repositories.PlaylistTrackRepository
	runs      *repositories.SyncRunRepository
	lockDir   string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return &testEnv{
		db:        db,
		playlists: repositories.NewPlaylistRepository(db),
		tracks:    repositories.NewPlaylistTrackRepository(db),
		runs:      repositories.NewSyncRunRepository(db),
		lockDir:   t.TempDir(),
	}
}

func (env *testEnv) engine(opts ...EngineOption) *PlaylistEngine {
	return NewPlaylistEngine(env.playlists, env.tracks, env.runs, NewLocker(env.lockDir), opts...)
}

// seed stores a local playlist with the given tracks.
func (env *testEnv) seed(t *testing.T, provenance, ref string, tracks ...models.Track) *models.PersistedPlaylist {
	t.Helper()

	playlist := models.NewPersistedPlaylist(0, provenance, ref, models.Playlist{Name: "Local Mix"})
	if err := env.playlists.Create(playlist); err != nil {
		t.Fatalf("failed to create playlist: %v", err)
	}
	if err := env.tracks.Replace(playlist.ID(), tracks); err != nil {
		t.Fatalf("failed to seed tracks: %v", err)
	}
	return playlist
}

func (env *testEnv) listTracks(t *testing.T, playlistID string) []models.Track {
	t.Helper()
	tracks, err := env.tracks.List(playlistID)
	if err != nil {
		t.Fatalf("failed to list tracks: %v", err)
	}
	return tracks
}

func (env *testEnv) listRuns(t *testing.T, playlistID string) []*models.SyncRun {
	t.Helper()
	runs, err := env.runs.List(map[string]any{"playlist_id": playlistID})
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	return runs
}

func titles(tracks []models.Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.Title
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type fakeCovers struct {
	puts []string
	err  error
}

func (f *fakeCovers) Put(ctx context.Context, provenance, filename string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	key := provenance + "_" + filename
	f.puts = append(f.puts, key)
	return key, nil
}

func TestPlaylistEngine_Preview(t *testing.T) {
	t.Run("ComparesAgainstStoredSourceRef", func(t *testing.T) {
		env := setupTestEnv(t)
		local := env.seed(t, models.ProvenanceFile, "mix.m3u8",
			models.Track{Title: "X", Artist: "A"},
			models.Track{Title: "Z", Artist: "C"},
		)
		src := th.NewMockSource(models.ProvenanceFile, "Incoming",
			models.Track{Title: "X", Artist: "A"},
			models.Track{Title: "Y", Artist: "B"},
		)

		res, err := env.engine().Preview(context.Background(), local.ID(), src, "", nil)
		if err != nil {
			t.Fatalf("Preview() error = %v", err)
		}

		if len(src.Refs) != 1 || src.Refs[0] != "mix.m3u8" {
			t.Errorf("expected fetch with stored ref, got %v", src.Refs)
		}
		if got := titles(res.Comparison.Added); !equalStrings(got, []string{"Y"}) {
			t.Errorf("Added = %v, want [Y]", got)
		}
		if got := titles(res.Comparison.Missing); !equalStrings(got, []string{"Z"}) {
			t.Errorf("Missing = %v, want [Z]", got)
		}
		if got := titles(res.Comparison.Common); !equalStrings(got, []string{"X"}) {
			t.Errorf("Common = %v, want [X]", got)
		}
		if res.Provenance != models.ProvenanceFile {
			t.Errorf("Provenance = %q, want %q", res.Provenance, models.ProvenanceFile)
		}

		if got := titles(env.listTracks(t, local.ID())); !equalStrings(got, []string{"X", "Z"}) {
			t.Errorf("Preview must not write tracks, got %v", got)
		}
		if runs := env.listRuns(t, local.ID()); len(runs) != 0 {
			t.Errorf("Preview must not record runs, got %d", len(runs))
		}
	})

	t.Run("ExplicitRefOverridesStored", func(t *testing.T) {
		env := setupTestEnv(t)
		local := env.seed(t, models.ProvenanceSpotify, "stored")
		src := th.NewMockSource(models.ProvenanceSpotify, "Incoming")

		if _, err := env.engine().Preview(context.Background(), local.ID(), src, " other ", nil); err != nil {
			t.Fatalf("Preview() error = %v", err)
		}
		if src.Refs[0] != "other" {
			t.Errorf("expected trimmed explicit ref, got %q", src.Refs[0])
		}
	})

	t.Run("Errors", func(t *testing.T) {
		env := setupTestEnv(t)
		local := env.seed(t, models.ProvenanceFile, "")

		tests := []struct {
			name       string
			playlistID string
			src        *th.MockSource
			ref        string
			want       error
		}{
			{name: "PlaylistNotFound", playlistID: "missing", src: th.NewMockSource(models.ProvenanceFile, "x"), ref: "a.m3u", want: shared.ErrPlaylistNotFound},
			{name: "MissingRef", playlistID: local.ID(), src: th.NewMockSource(models.ProvenanceFile, "x"), want: shared.ErrMissingArgument},
			{name: "UnknownProvenance", playlistID: local.ID(), src: th.NewMockSource("", "x"), ref: "a.m3u", want: shared.ErrUnknownProvenance},
			{name: "FetchFailure", playlistID: local.ID(), src: &th.MockSource{Prov: models.ProvenanceFile, Err: shared.ErrAPIRequest}, ref: "a.m3u", want: shared.ErrAPIRequest},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := env.engine().Preview(context.Background(), tt.playlistID, tt.src, tt.ref, nil)
				if !errors.Is(err, tt.want) {
					t.Errorf("Preview() error = %v, want %v", err, tt.want)
				}
			})
		}

		t.Run("NilSource", func(t *testing.T) {
			_, err := env.engine().Preview(context.Background(), local.ID(), nil, "a.m3u", nil)
			if !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("Preview() error = %v, want ErrServiceUnavailable", err)
			}
		})
	})
}

func TestPlaylistEngine_Apply(t *testing.T) {
	t.Run("AppendsNewTracks", func(t *testing.T) {
		env := setupTestEnv(t)
		local := env.seed(t, models.ProvenanceFile, "mix.m3u8", models.Track{Title: "X", Artist: "A"})
		src := th.NewMockSource(models.ProvenanceFile, "Incoming",
			models.Track{Title: "X", Artist: "A"},
			models.Track{Title: "Y", Artist: "B"},
		)
		policy := reconcile.Policy{KeepLocalOnlyTracks: true, ResyncOrderFromIncoming: true}

		res, err := env.engine().Apply(context.Background(), local.ID(), src, "", policy, nil)
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}

		if got := titles(res.Merge.MergedTracks); !equalStrings(got, []string{"X", "Y"}) {
			t.Errorf("MergedTracks = %v, want [X Y]", got)
		}
		if got := titles(res.Merge.NewlyAddedTracks); !equalStrings(got, []string{"Y"}) {
			t.Errorf("NewlyAddedTracks = %v, want [Y]", got)
		}

		stored := env.listTracks(t, local.ID())
		if got := titles(stored); !equalStrings(got, []string{"X", "Y"}) {
			t.Errorf("stored tracks = %v, want [X Y]", got)
		}
		for i, track := range stored {
			if track.Position != i+1 {
				t.Errorf("stored track %d has position %d", i, track.Position)
			}
		}

		reloaded, err := env.playlists.Get(local.ID())
		if err != nil {
			t.Fatalf("failed to reload playlist: %v", err)
		}
		if reloaded.TrackCount() != 2 {
			t.Errorf("TrackCount = %d, want 2", reloaded.TrackCount())
		}

		runs := env.listRuns(t, local.ID())
		if len(runs) != 1 {
			t.Fatalf("expected 1 run, got %d", len(runs))
		}
		run := runs[0]
		if run.Status() != models.SyncStatusCompleted {
			t.Errorf("run status = %q, want completed", run.Status())
		}
		if run.TracksBefore() != 1 || run.TracksAfter() != 2 || run.TracksAdded() != 1 || run.TracksDropped() != 0 {
			t.Errorf("unexpected run counts: before=%d after=%d added=%d dropped=%d",
				run.TracksBefore(), run.TracksAfter(), run.TracksAdded(), run.TracksDropped())
		}
		if !run.KeepLocal() || run.DropMissing() || !run.ResyncOrder() {
			t.Errorf("run policy not recorded")
		}
		if run.Provenance() != models.ProvenanceFile || run.SourceRef() != "mix.m3u8" {
			t.Errorf("run source = %s:%s", run.Provenance(), run.SourceRef())
		}
	})

	t.Run("DropsMissingTracks", func(t *testing.T) {
		env := setupTestEnv(t)
		local := env.seed(t, models.ProvenanceFile, "mix.m3u8",
			models.Track{Title: "X", Artist: "A"},
			models.Track{Title: "Y", Artist: "B"},
		)
		src := th.NewMockSource(models.ProvenanceFile, "Incoming", models.Track{Title: "X", Artist: "A"})
		policy := reconcile.Policy{DropTracksMissingFromIncoming: true, ResyncOrderFromIncoming: true}

		res, err := env.engine().Apply(context.Background(), local.ID(), src, "", policy, nil)
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}

		if got := titles(env.listTracks(t, local.ID())); !equalStrings(got, []string{"X"}) {
			t.Errorf("stored tracks = %v, want [X]", got)
		}
		if res.Run.TracksDropped() != 1 {
			t.Errorf("TracksDropped = %d, want 1", res.Run.TracksDropped())
		}
	})

	t.Run("SpotifyRenameKeepsIdentity", func(t *testing.T) {
		env := setupTestEnv(t)
		local := env.seed(t, models.ProvenanceSpotify, "pl1", th.SpotifyTrack("s1", "A", "Old Title"))
		src := th.NewMockSource(models.ProvenanceSpotify, "Incoming", th.SpotifyTrack("s1", "A", "New Title"))

		res, err := env.engine().Apply(context.Background(), local.ID(), src, "", reconcile.Policy{KeepLocalOnlyTracks: true}, nil)
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if len(res.Merge.MergedTracks) != 1 || len(res.Merge.NewlyAddedTracks) != 0 {
			t.Fatalf("expected a single matched track, got %d merged %d new", len(res.Merge.MergedTracks), len(res.Merge.NewlyAddedTracks))
		}

		stored := env.listTracks(t, local.ID())
		if link, ok := stored[0].Link(models.ProvenanceSpotify); !ok || link.ID != "s1" {
			t.Errorf("stored track lost its spotify link: %+v", stored[0])
		}
	})

	t.Run("CachesCover", func(t *testing.T) {
		env := setupTestEnv(t)
		local := env.seed(t, models.ProvenanceSpotify, "pl1")
		src := th.NewMockSource(models.ProvenanceSpotify, "Incoming", th.SpotifyTrack("s1", "A", "X"))
		src.Export.Playlist.ID = "pl1"
		src.Export.Playlist.CoverURL = "https://img.example/cover.jpg"

		cache := &fakeCovers{}
		var fetched []string
		fetch := func(ctx context.Context, url string) ([]byte, error) {
			fetched = append(fetched, url)
			return []byte("jpeg"), nil
		}

		res, err := env.engine(WithCovers(cache, fetch)).Apply(context.Background(), local.ID(), src, "", reconcile.Policy{}, nil)
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}

		if len(fetched) != 1 || fetched[0] != "https://img.example/cover.jpg" {
			t.Errorf("unexpected cover downloads: %v", fetched)
		}
		if res.Playlist.CoverKey() != "spotify_pl1.jpg" {
			t.Errorf("CoverKey = %q, want spotify_pl1.jpg", res.Playlist.CoverKey())
		}

		reloaded, _ := env.playlists.Get(local.ID())
		if reloaded.CoverKey() != "spotify_pl1.jpg" {
			t.Errorf("stored CoverKey = %q", reloaded.CoverKey())
		}

		if _, err := env.engine(WithCovers(cache, fetch)).Apply(context.Background(), local.ID(), src, "", reconcile.Policy{}, nil); err != nil {
			t.Fatalf("second Apply() error = %v", err)
		}
		if len(fetched) != 1 {
			t.Errorf("cover should not be refetched once cached, got %d downloads", len(fetched))
		}
	})

	t.Run("CoverFailureIsNotFatal", func(t *testing.T) {
		env := setupTestEnv(t)
		local := env.seed(t, models.ProvenanceSpotify, "pl1")
		src := th.NewMockSource(models.ProvenanceSpotify, "Incoming", th.SpotifyTrack("s1", "A", "X"))
		src.Export.Playlist.CoverURL = "https://img.example/cover.jpg"

		fetch := func(ctx context.Context, url string) ([]byte, error) {
			return nil, shared.ErrAPIRequest
		}

		res, err := env.engine(WithCovers(&fakeCovers{}, fetch)).Apply(context.Background(), local.ID(), src, "", reconcile.Policy{}, nil)
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if res.Playlist.CoverKey() != "" {
			t.Errorf("CoverKey = %q, want empty", res.Playlist.CoverKey())
		}
	})

	t.Run("FetchFailureRecordsFailedRun", func(t *testing.T) {
		env := setupTestEnv(t)
		local := env.seed(t, models.ProvenanceFile, "mix.m3u8", models.Track{Title: "X", Artist: "A"})
		src := &th.MockSource{SourceName: "mock", Prov: models.ProvenanceFile, Err: shared.ErrInvalidInput}

		_, err := env.engine().Apply(context.Background(), local.ID(), src, "", reconcile.Policy{}, nil)
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Fatalf("Apply() error = %v, want ErrInvalidInput", err)
		}

		if got := titles(env.listTracks(t, local.ID())); !equalStrings(got, []string{"X"}) {
			t.Errorf("tracks changed after failed fetch: %v", got)
		}

		runs := env.listRuns(t, local.ID())
		if len(runs) != 1 || runs[0].Status() != models.SyncStatusFailed {
			t.Fatalf("expected one failed run, got %d", len(runs))
		}
		if runs[0].ErrorMessage() == "" {
			t.Error("failed run should carry the error message")
		}
	})

	t.Run("CanceledBeforePersist", func(t *testing.T) {
		env := setupTestEnv(t)
		local := env.seed(t, models.ProvenanceFile, "mix.m3u8", models.Track{Title: "X", Artist: "A"})
		src := th.NewMockSource(models.ProvenanceFile, "Incoming", models.Track{Title: "Y", Artist: "B"})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		src.Hook = func(context.Context, string) { cancel() }

		_, err := env.engine().Apply(ctx, local.ID(), src, "", reconcile.Policy{DropTracksMissingFromIncoming: true, ResyncOrderFromIncoming: true}, nil)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Apply() error = %v, want context.Canceled", err)
		}

		if got := titles(env.listTracks(t, local.ID())); !equalStrings(got, []string{"X"}) {
			t.Errorf("canceled apply must not persist, got %v", got)
		}
		runs := env.listRuns(t, local.ID())
		if len(runs) != 1 || runs[0].Status() != models.SyncStatusFailed {
			t.Errorf("expected one failed run after cancel")
		}
	})

	t.Run("LockedByAnotherProcess", func(t *testing.T) {
		env := setupTestEnv(t)
		local := env.seed(t, models.ProvenanceFile, "mix.m3u8", models.Track{Title: "X", Artist: "A"})
		src := th.NewMockSource(models.ProvenanceFile, "Incoming", models.Track{Title: "Y", Artist: "B"})

		unlock, err := NewLocker(env.lockDir).TryLock(local.ID())
		if err != nil {
			t.Fatalf("failed to take lock: %v", err)
		}
		defer unlock()

		_, err = env.engine().Apply(context.Background(), local.ID(), src, "", reconcile.Policy{}, nil)
		if !errors.Is(err, shared.ErrLocked) {
			t.Fatalf("Apply() error = %v, want ErrLocked", err)
		}
		if len(src.Refs) != 0 {
			t.Error("locked apply must not fetch")
		}
		if runs := env.listRuns(t, local.ID()); len(runs) != 0 {
			t.Errorf("locked apply must not record runs, got %d", len(runs))
		}
	})

	t.Run("ReleasesLock", func(t *testing.T) {
		env := setupTestEnv(t)
		local := env.seed(t, models.ProvenanceFile, "mix.m3u8")
		src := th.NewMockSource(models.ProvenanceFile, "Incoming", models.Track{Title: "Y", Artist: "B"})
		engine := env.engine()

		for i := range 2 {
			if _, err := engine.Apply(context.Background(), local.ID(), src, "", reconcile.Policy{}, nil); err != nil {
				t.Fatalf("Apply() #%d error = %v", i+1, err)
			}
		}
	})

	t.Run("NoLocker", func(t *testing.T) {
		env := setupTestEnv(t)
		local := env.seed(t, models.ProvenanceFile, "mix.m3u8")
		engine := NewPlaylistEngine(env.playlists, env.tracks, env.runs, nil)

		_, err := engine.Apply(context.Background(), local.ID(), th.NewMockSource(models.ProvenanceFile, "x"), "", reconcile.Policy{}, nil)
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("Apply() error = %v, want ErrServiceUnavailable", err)
		}
	})
}

func TestPlaylistEngine_Import(t *testing.T) {
	t.Run("CreatesPlaylist", func(t *testing.T) {
		env := setupTestEnv(t)
		src := th.NewMockSource(models.ProvenanceSpotify, "Road Trip",
			th.SpotifyTrack("s1", "A", "X"),
			th.SpotifyTrack("s2", "B", "Y"),
			th.SpotifyTrack("s1", "A", "X"),
		)

		res, err := env.engine().Import(context.Background(), "", src, "pl1", nil)
		if err != nil {
			t.Fatalf("Import() error = %v", err)
		}

		if res.Playlist.Name() != "Road Trip" {
			t.Errorf("Name = %q, want Road Trip", res.Playlist.Name())
		}
		if res.Playlist.Provenance() != models.ProvenanceSpotify || res.Playlist.SourceRef() != "pl1" {
			t.Errorf("source = %s:%s", res.Playlist.Provenance(), res.Playlist.SourceRef())
		}

		stored := env.listTracks(t, res.Playlist.ID())
		if got := titles(stored); !equalStrings(got, []string{"X", "Y", "X"}) {
			t.Errorf("stored tracks = %v, want incoming order with duplicates", got)
		}

		reloaded, err := env.playlists.Get(res.Playlist.ID())
		if err != nil {
			t.Fatalf("failed to reload playlist: %v", err)
		}
		if reloaded.TrackCount() != 3 {
			t.Errorf("TrackCount = %d, want 3", reloaded.TrackCount())
		}

		runs := env.listRuns(t, res.Playlist.ID())
		if len(runs) != 1 || runs[0].Status() != models.SyncStatusCompleted || runs[0].TracksAdded() != 3 {
			t.Errorf("expected one completed import run with 3 added")
		}
	})

	t.Run("CustomName", func(t *testing.T) {
		env := setupTestEnv(t)
		src := th.NewMockSource(models.ProvenanceFile, "mix", models.Track{Title: "X", Artist: "A"})

		res, err := env.engine().Import(context.Background(), "Renamed", src, "mix.m3u", nil)
		if err != nil {
			t.Fatalf("Import() error = %v", err)
		}
		if res.Playlist.Name() != "Renamed" {
			t.Errorf("Name = %q, want Renamed", res.Playlist.Name())
		}
	})

	t.Run("Errors", func(t *testing.T) {
		env := setupTestEnv(t)

		_, err := env.engine().Import(context.Background(), "", th.NewMockSource(models.ProvenanceFile, "x"), "  ", nil)
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("Import() error = %v, want ErrMissingArgument", err)
		}

		playlists, _ := env.playlists.List(nil)
		if len(playlists) != 0 {
			t.Errorf("failed import must not create playlists, got %d", len(playlists))
		}
	})
}

// failingTracks is a TrackStore whose writes always fail.
type failingTracks struct {
	TrackStore
	err error
}

func (f failingTracks) Replace(playlistID string, tracks []models.Track) error {
	return f.err
}

func TestPlaylistEngine_ImportRollback(t *testing.T) {
	env := setupTestEnv(t)
	diskFull := errors.New("disk full")
	engine := NewPlaylistEngine(env.playlists, failingTracks{TrackStore: env.tracks, err: diskFull}, env.runs, NewLocker(env.lockDir))
	src := th.NewMockSource(models.ProvenanceSpotify, "Mix", th.SpotifyTrack("s1", "A", "X"))

	_, err := engine.Import(context.Background(), "", src, "pl1", nil)
	if !errors.Is(err, diskFull) {
		t.Fatalf("Import() error = %v, want disk full", err)
	}

	playlists, err := env.playlists.List(nil)
	if err != nil {
		t.Fatalf("failed to list playlists: %v", err)
	}
	if len(playlists) != 0 {
		t.Errorf("failed track write left %d playlist(s) behind", len(playlists))
	}

	if _, err := env.playlists.GetBySource(models.ProvenanceSpotify, "pl1"); !errors.Is(err, shared.ErrPlaylistNotFound) {
		t.Errorf("GetBySource() error = %v, want ErrPlaylistNotFound", err)
	}
}

func TestProgressUpdate_NonBlocking(t *testing.T) {
	env := setupTestEnv(t)
	local := env.seed(t, models.ProvenanceFile, "mix.m3u8", models.Track{Title: "X", Artist: "A"})
	src := th.NewMockSource(models.ProvenanceFile, "Incoming", models.Track{Title: "Y", Artist: "B"})

	// Unbuffered and never read: every send must be skipped.
	progressCh := make(chan ProgressUpdate)

	if _, err := env.engine().Apply(context.Background(), local.ID(), src, "", reconcile.Policy{KeepLocalOnlyTracks: true}, progressCh); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
}

func TestProgressUpdate_Phases(t *testing.T) {
	env := setupTestEnv(t)
	local := env.seed(t, models.ProvenanceFile, "mix.m3u8", models.Track{Title: "X", Artist: "A"})
	src := th.NewMockSource(models.ProvenanceFile, "Incoming", models.Track{Title: "Y", Artist: "B"})

	progressCh := make(chan ProgressUpdate, 32)
	if _, err := env.engine().Apply(context.Background(), local.ID(), src, "", reconcile.Policy{KeepLocalOnlyTracks: true}, progressCh); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	close(progressCh)

	var phases []string
	for update := range progressCh {
		if update.Message == "" {
			t.Errorf("update for phase %s has no message", update.Phase)
		}
		if len(phases) == 0 || phases[len(phases)-1] != update.Phase.String() {
			phases = append(phases, update.Phase.String())
		}
	}

	want := []string{"load_local", "fetch_source", "merge", "persist"}
	if !equalStrings(phases, want) {
		t.Errorf("phases = %v, want %v", phases, want)
	}
}
