// package testing contains shared testing utilities and test doubles
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/mixsync/internal/models"
)

// MockSource is a test double for [services.Source].
//
// FetchTracks returns a deep copy of Export so callers can mutate the result freely.
// When Err is set it is returned instead. Refs records every reference requested.
type MockSource struct {
	SourceName string
	Prov       string
	Export     *models.PlaylistExport
	Err        error
	Refs       []string

	// Hook runs after a successful fetch, e.g. to cancel a context mid-operation.
	Hook func(ctx context.Context, ref string)
}

// NewMockSource creates a MockSource for provenance returning a playlist named name with tracks.
func NewMockSource(provenance, name string, tracks ...models.Track) *MockSource {
	return &MockSource{
		SourceName: "mock",
		Prov:       provenance,
		Export: &models.PlaylistExport{
			Playlist: models.Playlist{ID: "mock-" + provenance, Name: name, TrackCount: len(tracks)},
			Tracks:   tracks,
		},
	}
}

func (m *MockSource) Name() string       { return m.SourceName }
func (m *MockSource) Provenance() string { return m.Prov }

func (m *MockSource) FetchTracks(ctx context.Context, ref string) (*models.PlaylistExport, error) {
	m.Refs = append(m.Refs, ref)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}

	export := &models.PlaylistExport{Playlist: m.Export.Playlist, Tracks: make([]models.Track, len(m.Export.Tracks))}
	for i, t := range m.Export.Tracks {
		export.Tracks[i] = t.Clone()
	}

	if m.Hook != nil {
		m.Hook(ctx, ref)
	}
	return export, nil
}

// SpotifyTrack builds a track linked to a Spotify catalog ID.
func SpotifyTrack(id, artist, title string) models.Track {
	return models.Track{Title: title, Artist: artist}.WithLink(models.ProvenanceSpotify, models.ExternalLink{ID: id, Title: title, Artist: artist})
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
