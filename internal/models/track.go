package models

import "maps"

// Provenance tags name the source an incoming track list came from.
const (
	ProvenanceSpotify = "spotify"
	ProvenanceFile    = "file"
)

// ExternalLink is an enrichment record linking a track to an external catalog entry.
type ExternalLink struct {
	ID       string   `json:"id"`
	Title    string   `json:"title,omitempty"`
	Artist   string   `json:"artist,omitempty"`
	Album    string   `json:"album,omitempty"`
	CoverURL string   `json:"cover_url,omitempty"`
	Duration *float64 `json:"duration,omitempty"` // seconds
}

// FileOrigin records where a track's playback location came from when imported from an M3U entry.
type FileOrigin struct {
	Title    string   `json:"title,omitempty"`
	Artist   string   `json:"artist,omitempty"`
	URL      string   `json:"url"`
	Duration *float64 `json:"duration,omitempty"` // seconds
}

// Track represents a single playlist entry.
//
// Position is 1-based and derived from list order; it is renumbered on every merge.
type Track struct {
	Title         string                  `json:"title"`
	Artist        string                  `json:"artist"`
	Album         string                  `json:"album,omitempty"`
	Position      int                     `json:"position"`
	Duration      *float64                `json:"duration,omitempty"` // seconds
	CoverKey      string                  `json:"cover_key,omitempty"`
	ExternalLinks map[string]ExternalLink `json:"external_links,omitempty"`
	FileOrigin    *FileOrigin             `json:"file_origin,omitempty"`
}

// Link returns the enrichment record for the given source, if any.
func (t Track) Link(source string) (ExternalLink, bool) {
	l, ok := t.ExternalLinks[source]
	return l, ok
}

// HasEnrichment reports whether the track carries any enrichment data
// (catalog link, cover reference, album, or file origin).
func (t Track) HasEnrichment() bool {
	return len(t.ExternalLinks) > 0 || t.CoverKey != "" || t.Album != "" || t.FileOrigin != nil
}

// Clone returns a deep copy of t so callers can modify it without aliasing the original.
func (t Track) Clone() Track {
	c := t
	c.Duration = cloneFloat(t.Duration)
	if t.ExternalLinks != nil {
		c.ExternalLinks = make(map[string]ExternalLink, len(t.ExternalLinks))
		for k, l := range t.ExternalLinks {
			l.Duration = cloneFloat(l.Duration)
			c.ExternalLinks[k] = l
		}
	}
	if t.FileOrigin != nil {
		fo := *t.FileOrigin
		fo.Duration = cloneFloat(fo.Duration)
		c.FileOrigin = &fo
	}
	return c
}

// WithLink returns a copy of t carrying the given enrichment record under source.
func (t Track) WithLink(source string, link ExternalLink) Track {
	c := t
	c.ExternalLinks = make(map[string]ExternalLink, len(t.ExternalLinks)+1)
	maps.Copy(c.ExternalLinks, t.ExternalLinks)
	c.ExternalLinks[source] = link
	return c
}

// Seconds is a convenience for building optional durations.
func Seconds(s float64) *float64 {
	return &s
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
