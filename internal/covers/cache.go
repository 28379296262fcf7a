// package covers downscales cover art and caches it by {provenance}_{filename} key.
//
// Images are decoded (JPEG or PNG), shrunk to fit a square bounding box, re-encoded as JPEG, and
// written through a [Store]. Reads go through an in-process LRU before hitting the store.
package covers

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/mixsync/internal/models"
	"github.com/desertthunder/mixsync/internal/shared"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/nfnt/resize"
)

const (
	DefaultMaxDimension = 600
	DefaultJPEGQuality  = 85
	DefaultCacheSize    = 128

	maxDownloadBytes = 10 << 20
)

// Store persists encoded covers. [repositories.CoverRepository] satisfies it.
type Store interface {
	Save(key string, data []byte, width, height int) error
	Load(key string) (*models.Cover, error)
}

// Options controls downscaling and in-memory caching.
type Options struct {
	MaxDimension uint
	JPEGQuality  int
	CacheSize    int
}

// Cache stores downscaled covers and serves them from memory when possible.
type Cache struct {
	store  Store
	recent *lru.Cache[string, *models.Cover]
	opts   Options
}

// New creates a Cache writing through store. Zero option values fall back to defaults.
func New(store Store, opts Options) (*Cache, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: cover store is required", shared.ErrInvalidInput)
	}
	if opts.MaxDimension == 0 {
		opts.MaxDimension = DefaultMaxDimension
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = DefaultJPEGQuality
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}

	recent, err := lru.New[string, *models.Cover](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create cover LRU: %w", err)
	}

	return &Cache{store: store, recent: recent, opts: opts}, nil
}

// Key builds the cache key for a cover. Directory components of filename are discarded.
func Key(provenance, filename string) string {
	return provenance + "_" + filepath.Base(filename)
}

// Put decodes data, downscales it, stores it as JPEG, and returns the cover key.
func (c *Cache) Put(ctx context.Context, provenance, filename string, data []byte) (string, error) {
	if provenance == "" || strings.TrimSpace(filename) == "" {
		return "", fmt.Errorf("%w: provenance and filename are required", shared.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: failed to decode image: %v", shared.ErrInvalidInput, err)
	}

	scaled := resize.Thumbnail(c.opts.MaxDimension, c.opts.MaxDimension, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: c.opts.JPEGQuality}); err != nil {
		return "", fmt.Errorf("failed to encode cover: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := Key(provenance, filename)
	bounds := scaled.Bounds()
	if err := c.store.Save(key, buf.Bytes(), bounds.Dx(), bounds.Dy()); err != nil {
		return "", fmt.Errorf("failed to store cover: %w", err)
	}

	c.recent.Add(key, &models.Cover{
		Key:       key,
		Data:      buf.Bytes(),
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		Size:      buf.Len(),
		CreatedAt: time.Now(),
	})

	return key, nil
}

// Get returns the cover for key, consulting the LRU before the store.
func (c *Cache) Get(key string) (*models.Cover, error) {
	if cover, ok := c.recent.Get(key); ok {
		return cover, nil
	}

	cover, err := c.store.Load(key)
	if err != nil {
		return nil, err
	}

	c.recent.Add(key, cover)
	return cover, nil
}

// Download fetches an image from url, refusing bodies larger than 10 MiB.
func Download(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty URL provided", shared.ErrInvalidArgument)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: failed to download image: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if len(data) > maxDownloadBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", shared.ErrInvalidInput, maxDownloadBytes)
	}

	return data, nil
}
