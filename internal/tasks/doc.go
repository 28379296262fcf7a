// Package tasks orchestrates playlist reconciliation between local playlists and incoming sources with real-time progress reporting.
//
// # Core Operations
//
// The [SyncEngine] interface defines three operations:
//
//  1. [SyncEngine.Preview] : Compare a local playlist with its source
//     - Loads the stored playlist and its ordered tracks
//     - Fetches the incoming playlist in full from a [services.Source]
//     - Classifies tracks as added, missing, or common using the source's provenance
//
//  2. [SyncEngine.Apply] : Merge the incoming playlist into the local one
//     - Takes the per-playlist [Locker] lock, failing fast with [shared.ErrLocked]
//     - Merges under a [reconcile.Policy] and replaces the stored track sequence
//     - Records a [models.SyncRun] with before/after counts, or the failure
//
//  3. [SyncEngine.Import] : Create a local playlist from a source
//
// [PlaylistEngine.BulkExport] writes local playlists to disk with a worker pool and a JSON manifest.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for richer rendering.
// Updates use select with default to prevent blocking.
//
// # Cover Art
//
// With [WithCovers], Apply and Import download the incoming playlist's cover once and store it in the cover cache.
// Cover failures are logged and never fail the reconciliation.
package tasks
