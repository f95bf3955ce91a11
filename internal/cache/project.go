package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/folio/folio/internal/model"
)

// Cache key prefixes and TTLs.
const (
	publishedKey      = "projects:published"
	projectKeyPrefix  = "project:"
	negCacheKeySuffix = ":neg"

	// DefaultProjectTTL is the TTL for cached project data.
	DefaultProjectTTL = 10 * time.Minute

	// NegativeCacheTTL is the TTL for negative cache entries.
	NegativeCacheTTL = time.Minute
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// GetPublished returns the cached list of published projects.
// Returns ErrCacheMiss if not cached.
func (c *Cache) GetPublished(ctx context.Context) ([]*model.Project, error) {
	data, err := c.client.Get(ctx, publishedKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var projects []*model.Project
	if err := json.Unmarshal(data, &projects); err != nil {
		return nil, fmt.Errorf("decode cached projects: %w", err)
	}
	return projects, nil
}

// SetPublished stores the published project list.
func (c *Cache) SetPublished(ctx context.Context, projects []*model.Project) error {
	if projects == nil {
		projects = []*model.Project{}
	}
	data, err := json.Marshal(projects)
	if err != nil {
		return fmt.Errorf("encode projects: %w", err)
	}
	if err := c.client.Set(ctx, publishedKey, data, DefaultProjectTTL).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// GetProject retrieves a published project by slug.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetProject(ctx context.Context, slug string) (*model.Project, error) {
	data, err := c.client.Get(ctx, projectKeyPrefix+slug).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var project model.Project
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, fmt.Errorf("decode cached project: %w", err)
	}
	return &project, nil
}

// SetProject stores a published project and clears any negative entry.
func (c *Cache) SetProject(ctx context.Context, project *model.Project) error {
	data, err := json.Marshal(project)
	if err != nil {
		return fmt.Errorf("encode project: %w", err)
	}

	key := projectKeyPrefix + project.Slug
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, key, data, DefaultProjectTTL)
	pipe.Del(ctx, key+negCacheKeySuffix)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

// SetNegative records that a slug has no published project.
func (c *Cache) SetNegative(ctx context.Context, slug string) error {
	key := projectKeyPrefix + slug + negCacheKeySuffix
	return c.client.Set(ctx, key, "1", NegativeCacheTTL).Err()
}

// IsNegative reports whether a slug is negatively cached.
func (c *Cache) IsNegative(ctx context.Context, slug string) (bool, error) {
	key := projectKeyPrefix + slug + negCacheKeySuffix
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists failed: %w", err)
	}
	return n > 0, nil
}

// InvalidateProjects drops the published list and the entries for the
// given slugs. Called after every admin write.
func (c *Cache) InvalidateProjects(ctx context.Context, slugs ...string) error {
	keys := []string{publishedKey}
	for _, slug := range slugs {
		if slug == "" {
			continue
		}
		keys = append(keys, projectKeyPrefix+slug, projectKeyPrefix+slug+negCacheKeySuffix)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}
