package models

import (
	"fmt"
	"strings"
)

// Playlist represents playlist metadata from any source
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Order       int    `json:"order"`
	TrackCount  int    `json:"track_count"`
	Public      bool   `json:"public"`
	CoverURL    string `json:"cover_url,omitempty"`
}

// PlaylistExport represents a playlist with its full track sequence
type PlaylistExport struct {
	Playlist Playlist `json:"playlist"`
	Tracks   []Track  `json:"tracks"`
}

// PersistedPlaylist is a locally stored playlist.
//
// Provenance and SourceRef record where the playlist was imported from so it can be re-synced later.
type PersistedPlaylist struct {
	entity
	name        string
	description string
	order       int
	provenance  string
	sourceRef   string
	coverKey    string
	trackCount  int
}

// NewPersistedPlaylist creates a [PersistedPlaylist] from a [Playlist] DTO.
func NewPersistedPlaylist(sequence int, provenance, sourceRef string, dto Playlist) *PersistedPlaylist {
	return &PersistedPlaylist{
		entity:      newEntity(sequence),
		name:        dto.Name,
		description: dto.Description,
		order:       dto.Order,
		provenance:  provenance,
		sourceRef:   sourceRef,
		trackCount:  dto.TrackCount,
	}
}

func (p *PersistedPlaylist) Name() string        { return p.name }
func (p *PersistedPlaylist) Description() string { return p.description }
func (p *PersistedPlaylist) Order() int          { return p.order }
func (p *PersistedPlaylist) Provenance() string  { return p.provenance }
func (p *PersistedPlaylist) SourceRef() string   { return p.sourceRef }
func (p *PersistedPlaylist) CoverKey() string    { return p.coverKey }
func (p *PersistedPlaylist) TrackCount() int     { return p.trackCount }

func (p *PersistedPlaylist) SetName(name string)       { p.name = name }
func (p *PersistedPlaylist) SetDescription(d string)   { p.description = d }
func (p *PersistedPlaylist) SetOrder(order int)        { p.order = order }
func (p *PersistedPlaylist) SetSourceRef(ref string)   { p.sourceRef = ref }
func (p *PersistedPlaylist) SetCoverKey(key string)    { p.coverKey = key }
func (p *PersistedPlaylist) SetTrackCount(count int)   { p.trackCount = count }
func (p *PersistedPlaylist) SetProvenance(prov string) { p.provenance = prov }

// Validate checks required fields.
func (p *PersistedPlaylist) Validate() error {
	if strings.TrimSpace(p.name) == "" {
		return fmt.Errorf("playlist name is required")
	}
	if p.provenance == "" {
		return fmt.Errorf("playlist provenance is required")
	}
	if p.trackCount < 0 {
		return fmt.Errorf("track count cannot be negative")
	}
	return nil
}

// DTO converts the entity back into a [Playlist].
func (p *PersistedPlaylist) DTO() Playlist {
	return Playlist{
		ID:          p.id,
		Name:        p.name,
		Description: p.description,
		Order:       p.order,
		TrackCount:  p.trackCount,
	}
}
