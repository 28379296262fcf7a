package reconcile

import (
	"slices"

	"github.com/desertthunder/mixsync/internal/models"
)

// Comparison is the classification of a local track list against an incoming one.
type Comparison struct {
	Added              []models.Track `json:"added"`   // incoming tracks with no local counterpart
	Missing            []models.Track `json:"missing"` // local tracks with no incoming counterpart
	Common             []models.Track `json:"common"`  // local tracks (local field values) also present in incoming
	HasOrderDifference bool           `json:"has_order_difference"`
}

// Compare classifies local and incoming tracks into added, missing and common sets.
//
// HasOrderDifference is advisory: it is set when Common is non-empty and the keys of Common
// (local order) differ from the keys of incoming tracks present locally (incoming order).
// Both sides use the same provenance key function.
func Compare(local, incoming []models.Track, provenance string) Comparison {
	key := keyFor(provenance)
	localKeys := keySet(local, key)
	incomingKeys := keySet(incoming, key)

	cmp := Comparison{
		Added:   make([]models.Track, 0),
		Missing: make([]models.Track, 0),
		Common:  make([]models.Track, 0),
	}

	var commonSeq []string
	for _, t := range local {
		k := key(t)
		if _, ok := incomingKeys[k]; ok {
			cmp.Common = append(cmp.Common, t.Clone())
			commonSeq = append(commonSeq, k)
		} else {
			cmp.Missing = append(cmp.Missing, t.Clone())
		}
	}

	var incomingSeq []string
	for _, t := range incoming {
		k := key(t)
		if _, ok := localKeys[k]; ok {
			incomingSeq = append(incomingSeq, k)
		} else {
			cmp.Added = append(cmp.Added, t.Clone())
		}
	}

	cmp.HasOrderDifference = len(cmp.Common) > 0 && !slices.Equal(commonSeq, incomingSeq)
	return cmp
}

// IsEmpty reports whether the comparison found nothing to reconcile.
func (c Comparison) IsEmpty() bool {
	return len(c.Added) == 0 && len(c.Missing) == 0 && !c.HasOrderDifference
}
