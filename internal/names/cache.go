package names

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightboard/internal/kv"
)

const cacheKey = "names"

// CachedSource wraps a Source and keeps the last non-empty result in a bucket.
// The cached list is served when the live fetch fails or comes back empty.
type CachedSource struct {
	src    Source
	bucket kv.Bucket
	ttl    time.Duration
}

// NewCachedSource creates a caching wrapper. A non-positive ttl keeps the list forever.
func NewCachedSource(src Source, bucket kv.Bucket, ttl time.Duration) *CachedSource {
	return &CachedSource{src: src, bucket: bucket, ttl: ttl}
}

// Fetch returns live names when available, falling back to the cache.
func (c *CachedSource) Fetch(ctx context.Context) ([]string, error) {
	names, err := c.src.Fetch(ctx)
	if err == nil && len(names) > 0 {
		if putErr := c.bucket.Put(cacheKey, names, c.ttl); putErr != nil {
			log.Warn().Err(putErr).Msg("Failed to cache preset names")
		}
		return names, nil
	}

	var cached []string
	found, loadErr := c.bucket.Load(cacheKey, &cached)
	if loadErr != nil {
		log.Warn().Err(loadErr).Msg("Failed to read cached preset names")
	}
	if found && len(cached) > 0 {
		log.Info().Int("names", len(cached)).Msg("Using cached preset names")
		return cached, nil
	}

	return names, err
}
