package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/mixsync/internal/formatter"
	"github.com/desertthunder/mixsync/internal/models"
	"github.com/desertthunder/mixsync/internal/shared"
)

// CoverGetter loads cached cover images. [covers.Cache] satisfies it.
type CoverGetter interface {
	Get(key string) (*models.Cover, error)
}

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     string      // Export format: json, csv, markdown, txt, m3u
	OutputDir  string      // Base output directory (default: mixsync_export_{epoch})
	NumWorkers int         // Concurrent workers (default: 4)
	Covers     CoverGetter // Optional cover source for markdown exports
}

// PlaylistExportJob is a unit of work for export workers.
type PlaylistExportJob struct {
	Playlist *models.PersistedPlaylist
	Export   *models.PlaylistExport
}

// PlaylistExportResult is the outcome of exporting one playlist.
type PlaylistExportResult struct {
	PlaylistID   string   `json:"playlist_id"`
	PlaylistName string   `json:"playlist_name"`
	Success      bool     `json:"success"`
	Files        []string `json:"files,omitempty"`
	Error        error    `json:"-"`
	ErrorMessage string   `json:"error,omitempty"`
}

// BulkExportResult summarizes a bulk export and is written as the export manifest.
type BulkExportResult struct {
	Format            string                 `json:"format"`
	ExportedAt        time.Time              `json:"exported_at"`
	TotalPlaylists    int                    `json:"total_playlists"`
	SuccessfulExports int                    `json:"successful_exports"`
	FailedExports     int                    `json:"failed_exports"`
	OutputDirectory   string                 `json:"output_directory"`
	ManifestPath      string                 `json:"-"`
	Results           []PlaylistExportResult `json:"results"`
}

// BulkExport exports local playlists concurrently with progress tracking.
//
// A fixed pool of workers renders each playlist in the requested format. Failures are recorded per playlist
// and do not stop the export. A manifest summarizing the results is written to the output directory.
func (e *PlaylistEngine) BulkExport(ctx context.Context, prog chan<- ProgressUpdate, ids []string, opts BulkExportOpts) (*BulkExportResult, error) {
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("mixsync_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		Format:          opts.Format,
		ExportedAt:      time.Now().UTC(),
		TotalPlaylists:  len(ids),
		OutputDirectory: opts.OutputDir,
		Results:         make([]PlaylistExportResult, 0, len(ids)),
	}

	jobs := make(chan PlaylistExportJob, len(ids))
	results := make(chan PlaylistExportResult, len(ids))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, id := range ids {
			if ctx.Err() != nil {
				return
			}

			job, err := e.loadExportJob(id)
			if err != nil {
				results <- PlaylistExportResult{
					PlaylistID:   id,
					PlaylistName: fmt.Sprintf("Unknown (%s)", id),
					Error:        err,
				}
				continue
			}

			e.sendProgress(prog, exportingPlaylistUpdate(i+1, len(ids), job.Playlist.Name()))
			jobs <- job
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		if res.Error != nil {
			res.ErrorMessage = res.Error.Error()
		}
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(ids), res.PlaylistName, len(res.Files)))
		} else {
			result.FailedExports++
			e.sendProgress(prog, exportFailedUpdate(completed, len(ids), res.PlaylistName, res.Error))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := writeManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// ExportPlaylist loads a local playlist with its tracks as a [models.PlaylistExport].
func (e *PlaylistEngine) ExportPlaylist(playlistID string) (*models.PlaylistExport, error) {
	job, err := e.loadExportJob(playlistID)
	if err != nil {
		return nil, err
	}
	return job.Export, nil
}

func (e *PlaylistEngine) loadExportJob(id string) (PlaylistExportJob, error) {
	playlist, err := e.playlists.Get(id)
	if err != nil {
		return PlaylistExportJob{}, err
	}

	tracks, err := e.tracks.List(playlist.ID())
	if err != nil {
		return PlaylistExportJob{}, fmt.Errorf("failed to load tracks: %w", err)
	}

	dto := playlist.DTO()
	dto.TrackCount = len(tracks)
	return PlaylistExportJob{
		Playlist: playlist,
		Export:   &models.PlaylistExport{Playlist: dto, Tracks: tracks},
	}, nil
}

// exportWorker is a worker goroutine that exports playlists from the jobs channel.
func (e *PlaylistEngine) exportWorker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan PlaylistExportJob, results chan<- PlaylistExportResult, opts BulkExportOpts) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			return
		}
		results <- e.exportSinglePlaylist(job, opts)
	}
}

// exportSinglePlaylist exports a single playlist to the requested format.
func (e *PlaylistEngine) exportSinglePlaylist(j PlaylistExportJob, opts BulkExportOpts) PlaylistExportResult {
	result := PlaylistExportResult{
		PlaylistID:   j.Playlist.ID(),
		PlaylistName: j.Playlist.Name(),
		Files:        []string{},
	}

	var cover []byte
	if opts.Format == formatter.FormatMarkdown && opts.Covers != nil && j.Playlist.CoverKey() != "" {
		if c, err := opts.Covers.Get(j.Playlist.CoverKey()); err == nil {
			cover = c.Data
		} else {
			e.logger.Warn("cover unavailable for export", "playlist", j.Playlist.ID(), "key", j.Playlist.CoverKey(), "error", err)
		}
	}

	files, err := formatter.WriteExport(j.Export, opts.Format, opts.OutputDir, cover)
	if err != nil {
		result.Error = fmt.Errorf("%s export failed: %w", opts.Format, err)
		return result
	}

	result.Files = files
	result.Success = true
	return result
}

func writeManifest(result *BulkExportResult, path string) error {
	data, err := shared.MarshalJSON(result, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
