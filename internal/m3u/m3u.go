// package m3u reads and writes extended M3U playlists.
//
// Parsed entries become [models.Track] values carrying a [models.FileOrigin]; nothing here
// knows about catalogs or reconciliation.
package m3u

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/mixsync/internal/models"
	"golang.org/x/text/encoding/charmap"
)

const (
	header    = "#EXTM3U"
	extInf    = "#EXTINF:"
	separator = " - "
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse reads an M3U or extended M3U stream as UTF-8.
//
// An #EXTINF line applies to the next location line only; malformed ones are ignored. Tracks are
// numbered 1..n in file order.
func Parse(r io.Reader) ([]models.Track, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	tracks := []models.Track{}
	var pending *models.FileOrigin
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if lineNo == 1 {
			line = strings.TrimPrefix(line, string(utf8BOM))
		}

		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, extInf):
			// A malformed #EXTINF is treated as a comment so the next location still imports.
			origin, err := parseExtInf(line)
			if err != nil {
				origin = nil
			}
			pending = origin
		case strings.HasPrefix(line, "#"):
			continue
		default:
			origin := pending
			pending = nil
			if origin == nil {
				origin = &models.FileOrigin{Title: titleFromLocation(line)}
			}
			origin.URL = line

			track := models.Track{
				Title:      origin.Title,
				Artist:     origin.Artist,
				Position:   len(tracks) + 1,
				FileOrigin: origin,
			}
			if origin.Duration != nil {
				track.Duration = models.Seconds(*origin.Duration)
			}
			tracks = append(tracks, track)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read playlist: %w", err)
	}

	return tracks, nil
}

// ParseFile reads a playlist from disk.
//
// Files with the .m3u extension are decoded from Windows-1252 unless they begin with a UTF-8 byte
// order mark. Everything else, including .m3u8, is read as UTF-8.
func ParseFile(name string) ([]models.Track, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	var r io.Reader = bytes.NewReader(data)
	if strings.EqualFold(filepath.Ext(name), ".m3u") && !bytes.HasPrefix(data, utf8BOM) {
		r = charmap.Windows1252.NewDecoder().Reader(r)
	}

	return Parse(r)
}

// Write emits tracks as an extended M3U playlist.
//
// The location of a track is its file origin URL, falling back to its Spotify URI. Tracks with
// neither are skipped.
func Write(w io.Writer, tracks []models.Track) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, header)

	for _, track := range tracks {
		location := Location(track)
		if location == "" {
			continue
		}

		seconds := -1
		if track.Duration != nil && *track.Duration >= 0 {
			seconds = int(math.Round(*track.Duration))
		}

		info := track.Title
		if track.Artist != "" {
			info = track.Artist + separator + track.Title
		}

		fmt.Fprintf(bw, "%s%d,%s\n%s\n", extInf, seconds, info, location)
	}

	return bw.Flush()
}

// Location returns the playable location of a track, or "" when it has none.
func Location(track models.Track) string {
	if track.FileOrigin != nil && track.FileOrigin.URL != "" {
		return track.FileOrigin.URL
	}
	if link, ok := track.Link(models.ProvenanceSpotify); ok && link.ID != "" {
		return "spotify:track:" + link.ID
	}
	return ""
}

// parseExtInf parses "#EXTINF:<seconds>[ attrs],<artist> - <title>".
func parseExtInf(line string) (*models.FileOrigin, error) {
	body := strings.TrimPrefix(line, extInf)

	meta, display, ok := strings.Cut(body, ",")
	if !ok {
		return nil, fmt.Errorf("malformed #EXTINF: %q", line)
	}

	origin := &models.FileOrigin{}

	// Attributes such as tvg-id="..." may follow the duration.
	if fields := strings.Fields(meta); len(fields) > 0 {
		seconds, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid #EXTINF duration %q: %w", fields[0], err)
		}
		if seconds >= 0 {
			origin.Duration = models.Seconds(seconds)
		}
	}

	display = strings.TrimSpace(display)
	if artist, title, found := strings.Cut(display, separator); found {
		origin.Artist = strings.TrimSpace(artist)
		origin.Title = strings.TrimSpace(title)
	} else {
		origin.Title = display
	}

	return origin, nil
}

// titleFromLocation derives a title from the base name of a path or URL, without extension.
func titleFromLocation(location string) string {
	loc := strings.ReplaceAll(location, "\\", "/")
	if i := strings.IndexAny(loc, "?#"); i >= 0 && strings.Contains(loc, "://") {
		loc = loc[:i]
	}

	base := path.Base(loc)
	if base == "." || base == "/" {
		return location
	}
	return strings.TrimSuffix(base, path.Ext(base))
}
