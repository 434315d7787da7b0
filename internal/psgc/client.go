package psgc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Entity is one record of the PSGC hierarchy. ZipCode is only populated by
// some per-entity lookups.
type Entity struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	ZipCode string `json:"zipCode,omitempty"`
}

// RegionNCR is the National Capital Region, which has no province tier:
// selecting it fetches cities/municipalities directly.
const RegionNCR = "130000000"

// Client fetches the Philippine Standard Geographic Code hierarchy.
// Responses are cached in redis since the dataset is near-static.
type Client struct {
	baseURL  string
	http     *http.Client
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewClient constructs a PSGC client. cache may be nil to disable caching.
func NewClient(baseURL string, timeout time.Duration, cache *redis.Client, cacheTTL time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: timeout},
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Regions returns all first-level regions.
func (c *Client) Regions(ctx context.Context) ([]Entity, error) {
	return c.list(ctx, "/regions/")
}

// Provinces returns the provinces under a region.
func (c *Client) Provinces(ctx context.Context, regionCode string) ([]Entity, error) {
	return c.list(ctx, fmt.Sprintf("/regions/%s/provinces/", regionCode))
}

// CitiesByRegion returns cities/municipalities directly under a region.
// Used for NCR, which skips the province tier.
func (c *Client) CitiesByRegion(ctx context.Context, regionCode string) ([]Entity, error) {
	return c.list(ctx, fmt.Sprintf("/regions/%s/cities-municipalities/", regionCode))
}

// CitiesByProvince returns cities/municipalities under a province.
func (c *Client) CitiesByProvince(ctx context.Context, provinceCode string) ([]Entity, error) {
	return c.list(ctx, fmt.Sprintf("/provinces/%s/cities-municipalities/", provinceCode))
}

// Barangays returns the barangays of a city/municipality.
func (c *Client) Barangays(ctx context.Context, cityCode string) ([]Entity, error) {
	return c.list(ctx, fmt.Sprintf("/cities-municipalities/%s/barangays/", cityCode))
}

// City performs the per-entity lookup for one city/municipality.
func (c *Client) City(ctx context.Context, cityCode string) (*Entity, error) {
	body, err := c.fetch(ctx, fmt.Sprintf("/cities-municipalities/%s", cityCode))
	if err != nil {
		return nil, err
	}
	var entity Entity
	if err := json.Unmarshal(body, &entity); err != nil {
		return nil, fmt.Errorf("decode psgc entity: %w", err)
	}
	return &entity, nil
}

func (c *Client) list(ctx context.Context, path string) ([]Entity, error) {
	body, err := c.fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	var entities []Entity
	if err := json.Unmarshal(body, &entities); err != nil {
		return nil, fmt.Errorf("decode psgc list: %w", err)
	}
	return entities, nil
}

func (c *Client) fetch(ctx context.Context, path string) ([]byte, error) {
	cacheKey := "psgc:" + path
	if c.cache != nil {
		cached, err := c.cache.Get(ctx, cacheKey).Bytes()
		if err == nil {
			return cached, nil
		}
		if err != redis.Nil {
			c.logger.Warn("psgc cache read failed", zap.String("path", path), zap.Error(err))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build psgc request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read psgc response: %w", err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, body, c.cacheTTL).Err(); err != nil {
			c.logger.Warn("psgc cache write failed", zap.String("path", path), zap.Error(err))
		}
	}
	return body, nil
}
