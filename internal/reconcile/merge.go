package reconcile

import (
	"maps"

	"github.com/desertthunder/mixsync/internal/models"
)

// Policy selects how [Merge] combines a local and an incoming track list.
// The three flags are independent; their interactions are not special-cased.
type Policy struct {
	KeepLocalOnlyTracks           bool   `json:"keep_local_only_tracks" toml:"keep_local_only_tracks"`
	DropTracksMissingFromIncoming bool   `json:"drop_tracks_missing_from_incoming" toml:"drop_tracks_missing_from_incoming"`
	ResyncOrderFromIncoming       bool   `json:"resync_order_from_incoming" toml:"resync_order_from_incoming"`
	Provenance                    string `json:"provenance" toml:"-"`
}

// Result is the outcome of a [Merge].
type Result struct {
	MergedTracks     []models.Track `json:"merged_tracks"`      // full sequence, positions 1..n
	NewlyAddedTracks []models.Track `json:"newly_added_tracks"` // unmatched incoming tracks, with final positions
}

// slot is a track in the merge output plus whether it entered as a new, unmatched incoming track.
type slot struct {
	track models.Track
	isNew bool
}

// Merge produces the merged track list for local and incoming under policy.
//
// Local-only tracks appended to preserve them under ResyncOrderFromIncoming are not reported as newly added.
// With KeepLocalOnlyTracks and DropTracksMissingFromIncoming both set, those appended tracks are pruned again.
func Merge(local, incoming []models.Track, policy Policy) Result {
	key := keyFor(policy.Provenance)
	incomingKeys := keySet(incoming, key)

	var out []slot
	if policy.ResyncOrderFromIncoming {
		out = resyncOrder(local, incoming, incomingKeys, key, policy.KeepLocalOnlyTracks)
	} else {
		out = keepOrder(local, incoming, key, policy.KeepLocalOnlyTracks)
	}

	if policy.DropTracksMissingFromIncoming {
		out = prune(out, incomingKeys, key)
	}

	res := Result{
		MergedTracks:     make([]models.Track, 0, len(out)),
		NewlyAddedTracks: make([]models.Track, 0),
	}
	for i, s := range out {
		s.track.Position = i + 1
		res.MergedTracks = append(res.MergedTracks, s.track)
		if s.isNew {
			res.NewlyAddedTracks = append(res.NewlyAddedTracks, s.track.Clone())
		}
	}
	return res
}

// resyncOrder follows the incoming order, carrying local enrichment onto matched tracks.
func resyncOrder(local, incoming []models.Track, incomingKeys map[string]struct{}, key KeyFunc, keepLocalOnly bool) []slot {
	localByKey := firstByKey(local, key)

	out := make([]slot, 0, len(incoming))
	for _, in := range incoming {
		if l, ok := localByKey[key(in)]; ok {
			out = append(out, slot{track: overlay(l, in)})
			continue
		}
		out = append(out, slot{track: in.Clone(), isNew: true})
	}

	if keepLocalOnly {
		for _, l := range local {
			if _, ok := incomingKeys[key(l)]; !ok {
				out = append(out, slot{track: l.Clone()})
			}
		}
	}
	return out
}

// keepOrder starts from the local list and, when keepLocalOnly is set, folds incoming tracks into it.
func keepOrder(local, incoming []models.Track, key KeyFunc, keepLocalOnly bool) []slot {
	out := make([]slot, 0, len(local)+len(incoming))
	for _, l := range local {
		out = append(out, slot{track: l.Clone()})
	}
	if !keepLocalOnly {
		return out
	}

	index := make(map[string]int, len(out))
	for i, s := range out {
		if _, seen := index[key(s.track)]; !seen {
			index[key(s.track)] = i
		}
	}

	for _, in := range incoming {
		k := key(in)
		if i, ok := index[k]; ok {
			out[i].track = overlay(out[i].track, in)
			continue
		}
		index[k] = len(out)
		out = append(out, slot{track: in.Clone(), isNew: true})
	}
	return out
}

func prune(out []slot, incomingKeys map[string]struct{}, key KeyFunc) []slot {
	kept := out[:0]
	for _, s := range out {
		if _, ok := incomingKeys[key(s.track)]; ok {
			kept = append(kept, s)
		}
	}
	return kept
}

// firstByKey indexes tracks by key, keeping the first occurrence of each key.
func firstByKey(tracks []models.Track, key KeyFunc) map[string]models.Track {
	m := make(map[string]models.Track, len(tracks))
	for _, t := range tracks {
		k := key(t)
		if _, ok := m[k]; !ok {
			m[k] = t
		}
	}
	return m
}

// overlay merges an incoming track onto its local counterpart.
//
// Primary fields (title, artist, duration) come from incoming when it supplies them.
// Enrichment fields resolve to the local value, else the incoming value.
func overlay(local, incoming models.Track) models.Track {
	l := local.Clone()
	in := incoming.Clone()

	merged := l
	if in.Title != "" {
		merged.Title = in.Title
	}
	if in.Artist != "" {
		merged.Artist = in.Artist
	}
	if in.Duration != nil {
		merged.Duration = in.Duration
	}

	if merged.Album == "" {
		merged.Album = in.Album
	}
	if merged.CoverKey == "" {
		merged.CoverKey = in.CoverKey
	}
	if merged.FileOrigin == nil {
		merged.FileOrigin = in.FileOrigin
	}
	merged.ExternalLinks = mergeLinks(l.ExternalLinks, in.ExternalLinks)
	return merged
}

// mergeLinks unions two enrichment maps, preferring local records per source.
func mergeLinks(local, incoming map[string]models.ExternalLink) map[string]models.ExternalLink {
	if len(local) == 0 && len(incoming) == 0 {
		return nil
	}
	links := make(map[string]models.ExternalLink, len(local)+len(incoming))
	maps.Copy(links, incoming)
	for source, l := range local {
		if _, ok := links[source]; ok && l.ID == "" {
			continue
		}
		links[source] = l
	}
	return links
}
