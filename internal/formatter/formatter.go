// package formatter renders playlist data for the terminal and exports it to files (CSV, Markdown, plain text, JSON, M3U)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/desertthunder/mixsync/internal/m3u"
	"github.com/desertthunder/mixsync/internal/models"
	"github.com/desertthunder/mixsync/internal/shared"
)

// Export formats accepted by [WriteExport].
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
	FormatM3U      = "m3u"
)

// Formats lists every supported export format.
var Formats = []string{FormatJSON, FormatCSV, FormatMarkdown, FormatText, FormatM3U}

// ExportToCSV converts a PlaylistExport to CSV format with columns: Position, Title, Artist, Album, Duration, Spotify ID, Location
func ExportToCSV(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "Title", "Artist", "Album", "Duration", "Spotify ID", "Location"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range export.Tracks {
		var spotifyID, location string
		if link, ok := track.Link(models.ProvenanceSpotify); ok {
			spotifyID = link.ID
		}
		if track.FileOrigin != nil {
			location = track.FileOrigin.URL
		}

		record := []string{
			strconv.Itoa(position(track, i)),
			track.Title,
			track.Artist,
			track.Album,
			durationSeconds(track.Duration),
			spotifyID,
			location,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a PlaylistExport to Markdown format with optional cover image
func ExportToMarkdown(export *models.PlaylistExport, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Playlist.Name)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	if export.Playlist.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", export.Playlist.Description)
	}

	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(export.Tracks))
	fmt.Fprintf(&buf, "**Total Duration**: %s\n\n", shared.FormatDuration(totalDuration(export.Tracks)))

	buf.WriteString("## Tracks\n\n")
	for i, track := range export.Tracks {
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", position(track, i), track.Artist, track.Title, albumPart, shared.FormatDuration(track.Duration))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a PlaylistExport to plain text format
func ExportToText(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", export.Playlist.Name)
	if export.Playlist.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", export.Playlist.Description)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(export.Tracks))

	for i, track := range export.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", position(track, i), track.Artist, track.Title)
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts a PlaylistExport to indented JSON
func ExportToJSON(export *models.PlaylistExport) ([]byte, error) {
	return shared.MarshalJSON(export, true)
}

// ExportToM3U converts a PlaylistExport to extended M3U. Tracks without a playable location are omitted.
func ExportToM3U(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	if err := m3u.Write(&buf, export.Tracks); err != nil {
		return nil, fmt.Errorf("failed to write M3U: %w", err)
	}
	return buf.Bytes(), nil
}

// ToMetadataJSON generates a JSON representation of playlist metadata (without tracks)
func ToMetadataJSON(playlist models.Playlist) ([]byte, error) {
	return shared.MarshalJSON(playlist, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport exports a playlist to CSV format with accompanying metadata JSON file.
//
// Defaults to playlist ID as the base filename & creates {base}_tracks.csv and {base}_metadata.json
func WriteCSVExport(export *models.PlaylistExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.Playlist.ID
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export.Playlist)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:   tracksFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport exports a playlist to Markdown format in a dedicated directory.
//
// Directory name defaults to the playlist ID.
// The cover parameter is optional; when non-empty it is written next to the README as cover.jpg.
// Creates a directory structure: {dir}/README.md and optionally {dir}/cover.jpg
func WriteMarkdownExport(export *models.PlaylistExport, outputDir string, cover []byte) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = export.Playlist.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if len(cover) > 0 {
		coverImageFilename = "cover.jpg"
		coverImagePath := filepath.Join(outputDir, coverImageFilename)
		if err := os.WriteFile(coverImagePath, cover, 0644); err != nil {
			return nil, fmt.Errorf("failed to save cover image: %w", err)
		}
		result.CoverImage = coverImagePath
		result.Files = append(result.Files, coverImagePath)
	}

	mdData, err := ExportToMarkdown(export, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport exports a playlist to plain text format.
//
// Defaults to {playlist.ID}_tracks.txt as the filename.
func WriteTextExport(export *models.PlaylistExport, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_tracks.txt", export.Playlist.ID)
	}
	return writeFile(path, export, ExportToText, "text")
}

// WriteJSONExport exports a playlist with all tracks to JSON.
//
// Defaults to {playlist.ID}.json as the filename.
func WriteJSONExport(export *models.PlaylistExport, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s.json", export.Playlist.ID)
	}
	return writeFile(path, export, ExportToJSON, "JSON")
}

// WriteM3UExport exports a playlist to extended M3U.
//
// Defaults to {playlist.ID}.m3u8 as the filename.
func WriteM3UExport(export *models.PlaylistExport, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s.m3u8", export.Playlist.ID)
	}
	return writeFile(path, export, ExportToM3U, "M3U")
}

// WriteExport writes export in the named format under dir and returns the created files.
// cover is only used by the Markdown format.
func WriteExport(export *models.PlaylistExport, format, dir string, cover []byte) ([]string, error) {
	base := filepath.Join(dir, export.Playlist.ID)

	switch format {
	case FormatCSV:
		res, err := WriteCSVExport(export, base)
		if err != nil {
			return nil, err
		}
		return []string{res.TracksFile, res.MetadataFile}, nil
	case FormatMarkdown:
		res, err := WriteMarkdownExport(export, base, cover)
		if err != nil {
			return nil, err
		}
		return res.Files, nil
	case FormatText:
		path, err := WriteTextExport(export, base+"_tracks.txt")
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	case FormatM3U:
		path, err := WriteM3UExport(export, base+".m3u8")
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	case FormatJSON, "":
		path, err := WriteJSONExport(export, base+".json")
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidFlag, format)
	}
}

func writeFile(path string, export *models.PlaylistExport, render func(*models.PlaylistExport) ([]byte, error), kind string) (string, error) {
	data, err := render(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", kind, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", kind, err)
	}

	return path, nil
}

// position prefers the stored position and falls back to list order.
func position(t models.Track, i int) int {
	if t.Position > 0 {
		return t.Position
	}
	return i + 1
}

func durationSeconds(d *float64) string {
	if d == nil {
		return ""
	}
	return strconv.FormatFloat(*d, 'f', -1, 64)
}

// totalDuration sums the known track durations, or returns nil when none are known.
func totalDuration(tracks []models.Track) *float64 {
	var total float64
	known := false
	for _, t := range tracks {
		if t.Duration != nil {
			total += *t.Duration
			known = true
		}
	}
	if !known {
		return nil
	}
	return &total
}
