// Package services defines the [Source] interface for incoming playlists and implements it for the Spotify catalog and M3U files.
//
// # Source Interface
//
// A source resolves a reference (playlist ID, URI, URL, or file path) into a fully materialized
// [models.PlaylistExport]. Reconciliation never sees a partial list: sources page until exhaustion
// before returning.
//
// # Spotify Implementation
//
// [SpotifyService] wraps github.com/zmb3/spotify/v2 with an app-only client credentials token.
// Paging is throttled by a shared rate limiter. Each track carries a [models.ExternalLink] under the
// "spotify" provenance so later reconciliations can match on catalog identity.
//
// # File Implementation
//
// [FileSource] reads .m3u and .m3u8 files via the m3u package. Tracks carry a [models.FileOrigin] and
// no catalog enrichment.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrMissingCredentials] : client_id or client_secret not configured
//   - [shared.ErrAuthFailed] : token request or API authorization failed
//   - [shared.ErrAPIRequest] : HTTP request failed
//   - [shared.ErrPlaylistNotFound] : Playlist ID not found
//   - [shared.ErrInvalidArgument] : reference could not be parsed
package services
