package shared

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"

	"github.com/desertthunder/mixsync/internal/reconcile"
)

//go:embed config.example.toml
var exampleConf []byte

const appName = "mixsync"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Covers      CoversConfig      `toml:"covers"`
	Sync        SyncConfig        `toml:"sync"`
	Spotify     SpotifyAPIConfig  `toml:"spotify"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// Map returns the credentials in the map form accepted by services.NewSpotifyService.
func (c SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
	}
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// CoversConfig controls how cover art is downscaled and cached.
type CoversConfig struct {
	MaxDimension uint `toml:"max_dimension"`
	JPEGQuality  int  `toml:"jpeg_quality"`
	CacheSize    int  `toml:"cache_size"`
}

// SyncConfig holds the default reconciliation policy and lock location.
type SyncConfig struct {
	KeepLocalOnlyTracks           bool   `toml:"keep_local_only_tracks"`
	DropTracksMissingFromIncoming bool   `toml:"drop_tracks_missing_from_incoming"`
	ResyncOrderFromIncoming       bool   `toml:"resync_order_from_incoming"`
	LockDir                       string `toml:"lock_dir"`
}

// SpotifyAPIConfig tunes catalog fetching.
type SpotifyAPIConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
	PageSize          int     `toml:"page_size"`
}

// Policy builds the default [reconcile.Policy] for the given provenance.
func (c *Config) Policy(provenance string) reconcile.Policy {
	return reconcile.Policy{
		KeepLocalOnlyTracks:           c.Sync.KeepLocalOnlyTracks,
		DropTracksMissingFromIncoming: c.Sync.DropTracksMissingFromIncoming,
		ResyncOrderFromIncoming:       c.Sync.ResyncOrderFromIncoming,
		Provenance:                    provenance,
	}
}

// DatabasePath returns the configured database path, or a file under the XDG data directory when unset.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(xdg.DataHome, appName, appName+".db")
}

// LockDir returns the directory holding playlist lock files, defaulting to the XDG state directory.
func (c *Config) LockDir() string {
	if c.Sync.LockDir != "" {
		return c.Sync.LockDir
	}
	return filepath.Join(xdg.StateHome, appName, "locks")
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks value ranges that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	if c.Covers.JPEGQuality < 1 || c.Covers.JPEGQuality > 100 {
		return fmt.Errorf("%w: covers.jpeg_quality must be between 1 and 100", ErrInvalidConfig)
	}
	if c.Covers.MaxDimension == 0 {
		return fmt.Errorf("%w: covers.max_dimension must be positive", ErrInvalidConfig)
	}
	if c.Spotify.PageSize < 1 || c.Spotify.PageSize > 100 {
		return fmt.Errorf("%w: spotify.page_size must be between 1 and 100", ErrInvalidConfig)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes config to path as TOML, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
