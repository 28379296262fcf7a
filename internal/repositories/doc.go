// Package repositories implements SQLite persistence for playlists, their tracks, cover art, and sync history.
//
// Entity repositories handle CRUD operations with atomic sequence generation for human-readable ordering.
// They support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [PlaylistRepository] : Local playlists with provenance and source lookups
//   - [PlaylistTrackRepository] : Ordered track sequences, replaced atomically per playlist
//   - [CoverRepository] : Downscaled cover images keyed by {provenance}_{filename}
//   - [SyncRunRepository] : Reconciliation history with status tracking
//
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
