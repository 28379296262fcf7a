// Spotify catalog implementation of [Source]
//
// Public playlists are read with an app-only (client credentials) token; no user authorization is involved.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixsync/internal/models"
	"github.com/desertthunder/mixsync/internal/shared"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	defaultPageSize          = 100
	defaultRequestsPerSecond = 5.0
	spotifyURIPrefix         = "spotify:playlist:"
)

// SpotifyService implements [Source] for the Spotify Web API.
//
// Every API call waits on a shared [rate.Limiter] so long playlists page politely.
type SpotifyService struct {
	client     *spotify.Client
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	pageSize   int
	logger     *log.Logger
}

// SpotifyOption configures a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithPageSize sets the number of playlist items requested per page (1-100).
func WithPageSize(size int) SpotifyOption {
	return func(s *SpotifyService) {
		if size > 0 && size <= defaultPageSize {
			s.pageSize = size
		}
	}
}

// WithRequestsPerSecond sets the API request rate. Non-positive values disable limiting.
func WithRequestsPerSecond(rps float64) SpotifyOption {
	return func(s *SpotifyService) {
		if rps <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithHTTPClient replaces the client-credentials HTTP client.
func WithHTTPClient(client *http.Client) SpotifyOption {
	return func(s *SpotifyService) { s.httpClient = client }
}

// WithBaseURL points the service at a different API root (must end in "/").
func WithBaseURL(baseURL string) SpotifyOption {
	return func(s *SpotifyService) { s.baseURL = baseURL }
}

// WithLogger sets the logger used for paging diagnostics.
func WithLogger(logger *log.Logger) SpotifyOption {
	return func(s *SpotifyService) { s.logger = logger }
}

// NewSpotifyService creates a new Spotify source from "client_id" and "client_secret" credentials.
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) (*SpotifyService, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id in credentials", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret in credentials", shared.ErrMissingCredentials)
	}

	s := &SpotifyService{
		limiter:  rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), 1),
		pageSize: defaultPageSize,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.httpClient == nil {
		cfg := &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     spotifyauth.TokenURL,
		}
		s.httpClient = cfg.Client(context.Background())
	}

	var clientOpts []spotify.ClientOption
	if s.baseURL != "" {
		clientOpts = append(clientOpts, spotify.WithBaseURL(s.baseURL))
	}
	s.client = spotify.New(s.httpClient, clientOpts...)

	return s, nil
}

func (s *SpotifyService) Name() string       { return "Spotify" }
func (s *SpotifyService) Provenance() string { return models.ProvenanceSpotify }

// FetchTracks loads playlist metadata and pages through every playlist item.
//
// ref may be a playlist ID, a spotify:playlist: URI, or an open.spotify.com URL.
// Episodes and unavailable (null) items are skipped.
func (s *SpotifyService) FetchTracks(ctx context.Context, ref string) (*models.PlaylistExport, error) {
	id, err := ParsePlaylistRef(ref)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	playlist, err := s.client.GetPlaylist(ctx, spotify.ID(id))
	if err != nil {
		return nil, s.wrapError(err, id)
	}

	tracks := []models.Track{}
	offset := 0

	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		page, err := s.client.GetPlaylistItems(ctx, spotify.ID(id), spotify.Limit(s.pageSize), spotify.Offset(offset))
		if err != nil {
			return nil, s.wrapError(err, id)
		}

		for i := range page.Items {
			full := page.Items[i].Track.Track
			if full == nil {
				continue
			}
			track := toTrack(full)
			track.Position = len(tracks) + 1
			tracks = append(tracks, track)
		}

		s.logger.Debug("fetched playlist page", "playlist", id, "offset", offset, "items", len(page.Items))

		if len(page.Items) < s.pageSize {
			break
		}
		offset += s.pageSize
	}

	return &models.PlaylistExport{
		Playlist: models.Playlist{
			ID:          id,
			Name:        playlist.Name,
			Description: playlist.Description,
			TrackCount:  len(tracks),
			Public:      playlist.IsPublic,
			CoverURL:    largestImage(playlist.Images),
		},
		Tracks: tracks,
	}, nil
}

// wrapError maps Spotify API errors onto shared sentinel errors.
func (s *SpotifyService) wrapError(err error, id string) error {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusNotFound:
			return fmt.Errorf("%w: spotify playlist %s", shared.ErrPlaylistNotFound, id)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", shared.ErrAuthFailed, apiErr.Message)
		}
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
}

// toTrack converts a catalog track into a [models.Track] carrying a Spotify enrichment record.
func toTrack(full *spotify.FullTrack) models.Track {
	artist := ""
	if len(full.Artists) > 0 {
		artist = full.Artists[0].Name
	}

	duration := models.Seconds(float64(full.Duration) / 1000)

	return models.Track{
		Title:    full.Name,
		Artist:   artist,
		Album:    full.Album.Name,
		Duration: duration,
		ExternalLinks: map[string]models.ExternalLink{
			models.ProvenanceSpotify: {
				ID:       string(full.ID),
				Title:    full.Name,
				Artist:   artist,
				Album:    full.Album.Name,
				CoverURL: largestImage(full.Album.Images),
				Duration: models.Seconds(*duration),
			},
		},
	}
}

// largestImage returns the URL of the image with the greatest area, or "".
func largestImage(images []spotify.Image) string {
	best, bestArea := "", -1
	for _, img := range images {
		if area := int(img.Width) * int(img.Height); area > bestArea {
			best, bestArea = img.URL, area
		}
	}
	return best
}

// ParsePlaylistRef extracts a playlist ID from an ID, a spotify:playlist: URI, or an open.spotify.com URL.
func ParsePlaylistRef(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: playlist reference is required", shared.ErrMissingArgument)
	}

	if id, ok := strings.CutPrefix(ref, spotifyURIPrefix); ok {
		return validID(id, ref)
	}

	if strings.Contains(ref, "open.spotify.com") {
		raw := ref
		if !strings.Contains(raw, "://") {
			raw = "https://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("%w: %q is not a valid URL", shared.ErrInvalidArgument, ref)
		}

		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		for i := 0; i < len(segments)-1; i++ {
			if segments[i] == "playlist" {
				return validID(segments[i+1], ref)
			}
		}
		return "", fmt.Errorf("%w: %q is not a playlist URL", shared.ErrInvalidArgument, ref)
	}

	return validID(ref, ref)
}

func validID(id, ref string) (string, error) {
	if id == "" || strings.ContainsAny(id, "/:?# ") {
		return "", fmt.Errorf("%w: %q is not a Spotify playlist reference", shared.ErrInvalidArgument, ref)
	}
	return id, nil
}
