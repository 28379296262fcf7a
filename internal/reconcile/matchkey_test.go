package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/desertthunder/mixsync/internal/models"
)

func TestMatchKey(t *testing.T) {
	linked := models.Track{Title: "Song", Artist: "Band"}.WithLink(models.ProvenanceSpotify, models.ExternalLink{ID: "s1"})
	emptyID := models.Track{Title: "Song", Artist: "Band"}.WithLink(models.ProvenanceSpotify, models.ExternalLink{ID: ""})

	tests := []struct {
		name       string
		track      models.Track
		provenance string
		want       string
	}{
		{
			name:       "text key lowercases and trims",
			track:      models.Track{Title: "  Hello World ", Artist: " The BAND"},
			provenance: models.ProvenanceFile,
			want:       "the band-hello world",
		},
		{
			name:       "spotify provenance uses linked id",
			track:      linked,
			provenance: models.ProvenanceSpotify,
			want:       "s1",
		},
		{
			name:       "spotify provenance without link falls back to text key",
			track:      models.Track{Title: "Song", Artist: "Band"},
			provenance: models.ProvenanceSpotify,
			want:       "band-song",
		},
		{
			name:       "spotify provenance with empty id falls back to text key",
			track:      emptyID,
			provenance: models.ProvenanceSpotify,
			want:       "band-song",
		},
		{
			name:       "linked track under file provenance uses text key",
			track:      linked,
			provenance: models.ProvenanceFile,
			want:       "band-song",
		},
		{
			name:       "unknown provenance uses text key",
			track:      linked,
			provenance: "tidal",
			want:       "band-song",
		},
		{
			name:       "whitespace only fields are degenerate but deterministic",
			track:      models.Track{Title: "   ", Artist: "\t"},
			provenance: models.ProvenanceFile,
			want:       "-",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchKey(tt.track, tt.provenance)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, MatchKey(tt.track, tt.provenance), "key must be deterministic")
		})
	}
}

func TestTextKey_Collisions(t *testing.T) {
	a := models.Track{Title: "X", Artist: "A", Album: "First"}
	b := models.Track{Title: "x ", Artist: " a", Album: "Second"}
	assert.Equal(t, TextKey(a), TextKey(b))
}
