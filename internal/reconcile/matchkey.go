package reconcile

import (
	"strings"

	"github.com/desertthunder/mixsync/internal/models"
)

// KeyFunc derives the identity string used to pair tracks across two lists.
type KeyFunc func(t models.Track) string

// keyFuncs maps a provenance tag to its identity rule. Provenances without an
// entry use [TextKey].
var keyFuncs = map[string]KeyFunc{
	models.ProvenanceSpotify: spotifyKey,
}

// MatchKey returns the identity string for t under the given provenance.
func MatchKey(t models.Track, provenance string) string {
	return keyFor(provenance)(t)
}

// TextKey returns lowercase(trim(artist)) + "-" + lowercase(trim(title)).
func TextKey(t models.Track) string {
	return strings.ToLower(strings.TrimSpace(t.Artist)) + "-" + strings.ToLower(strings.TrimSpace(t.Title))
}

func keyFor(provenance string) KeyFunc {
	if fn, ok := keyFuncs[provenance]; ok {
		return fn
	}
	return TextKey
}

func spotifyKey(t models.Track) string {
	if l, ok := t.Link(models.ProvenanceSpotify); ok && l.ID != "" {
		return l.ID
	}
	return TextKey(t)
}

// keySet builds the set of match keys for tracks.
func keySet(tracks []models.Track, key KeyFunc) map[string]struct{} {
	set := make(map[string]struct{}, len(tracks))
	for _, t := range tracks {
		set[key(t)] = struct{}{}
	}
	return set
}
