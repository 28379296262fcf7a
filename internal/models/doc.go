// Package models defines domain entities and persistence interfaces for mixsync.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs passed between sources, the reconciliation engine and storage
//   - [Track] : A single playlist entry with display metadata and enrichment records
//   - [ExternalLink] : Catalog enrichment for a track (e.g. a Spotify track ID and its attributes)
//   - [FileOrigin] : Provenance record for a track imported from an M3U entry
//   - [Playlist] : Basic playlist metadata
//   - [PlaylistExport] : Playlist with its complete track sequence
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [PersistedPlaylist] : Locally stored playlists with their source reference
//   - [SyncRun] : History of reconciliations applied to a playlist
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
