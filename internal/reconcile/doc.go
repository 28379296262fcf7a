// Package reconcile compares and merges a playlist's local track list with a freshly obtained one.
//
// # Match Keys
//
// Every operation pairs tracks through [MatchKey], which derives an identity string conditioned on provenance:
//   - "spotify": the linked Spotify track ID when present, since catalog IDs survive renames and retags
//   - anything else (or an unlinked track): a text key, lowercase(trim(artist)) + "-" + lowercase(trim(title))
//
// Two tracks sharing artist and title collide on the text key and are indistinguishable.
//
// # Comparison
//
// [Compare] classifies two lists into added, missing and common sets and reports whether the
// shared tracks appear in a different order. It is meant for previewing a reconciliation.
//
// # Merge
//
// [Merge] produces the authoritative track list under a [Policy] of three independent flags:
//  1. ordering: follow the incoming order (ResyncOrderFromIncoming) or keep the local order
//  2. pruning: drop tracks whose key is absent from the incoming list (DropTracksMissingFromIncoming)
//  3. renumbering: positions are always rewritten 1..n
//
// KeepLocalOnlyTracks controls whether local-only tracks survive a resync, and whether incoming
// tracks are folded into the local list at all when the local order is kept.
//
// Enrichment (catalog links, cover key, album, file origin) is resolved "local value, else incoming value"
// for every matched pair so a re-import never unlinks a track.
//
// Both functions are pure: inputs are never modified and outputs are freshly allocated, so they may be
// called concurrently without coordination.
package reconcile
