package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lgulliver/blogshelf/internal/common"
	"github.com/lgulliver/blogshelf/pkg/types"
)

const (
	blogListKeyPrefix = "blog:list:"
	blogKeyPrefix     = "blog:id:"

	// blogGenerationKey is bumped on every write; loads that straddle a
	// write are not cached
	blogGenerationKey = "blog:generation"
)

// CachedBlogRepository is a read-through Redis cache in front of a
// BlogRepository. Cache failures are logged and bypassed. A read that loaded
// its value before a concurrent write finished never repopulates the cache.
type CachedBlogRepository struct {
	next  BlogRepository
	cache *common.Cache
	ttl   time.Duration
}

// NewCachedBlogRepository wraps next with a cache
func NewCachedBlogRepository(next BlogRepository, cache *common.Cache, ttl time.Duration) *CachedBlogRepository {
	return &CachedBlogRepository{next: next, cache: cache, ttl: ttl}
}

// Create writes through and invalidates every cached listing
func (r *CachedBlogRepository) Create(ctx context.Context, post *types.BlogPost) error {
	if err := r.next.Create(ctx, post); err != nil {
		return err
	}
	r.bump(ctx)
	r.invalidate(ctx, blogListKeyPrefix+"*")
	return nil
}

// Get serves a post from cache, loading it on a miss
func (r *CachedBlogRepository) Get(ctx context.Context, id string) (*types.BlogPost, error) {
	key := blogKeyPrefix + id

	var cached types.BlogPost
	if r.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	generation, genErr := r.cache.Version(ctx, blogGenerationKey)
	post, err := r.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if genErr == nil {
		r.store(ctx, generation, key, post)
	}
	return post, nil
}

// List serves a listing from cache, loading it on a miss
func (r *CachedBlogRepository) List(ctx context.Context, filter types.BlogFilter) ([]*types.BlogPost, error) {
	key := blogListKeyPrefix + filter.Category

	var cached []*types.BlogPost
	if r.lookup(ctx, key, &cached) {
		if cached == nil {
			cached = make([]*types.BlogPost, 0)
		}
		return cached, nil
	}

	generation, genErr := r.cache.Version(ctx, blogGenerationKey)
	posts, err := r.next.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if genErr == nil {
		r.store(ctx, generation, key, posts)
	}
	return posts, nil
}

// Delete removes the post and drops its cached entries
func (r *CachedBlogRepository) Delete(ctx context.Context, id string) error {
	err := r.next.Delete(ctx, id)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return err
	}

	r.bump(ctx)
	if cacheErr := r.cache.Delete(ctx, blogKeyPrefix+id); cacheErr != nil {
		log.Warn().Err(cacheErr).Str("blog_id", id).Msg("failed to evict cached blog")
	}
	r.invalidate(ctx, blogListKeyPrefix+"*")
	return err
}

func (r *CachedBlogRepository) lookup(ctx context.Context, key string, dest interface{}) bool {
	err := r.cache.Get(ctx, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, common.ErrCacheMiss) {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed, falling back to repository")
	}
	return false
}

func (r *CachedBlogRepository) store(ctx context.Context, generation int64, key string, value interface{}) {
	stored, err := r.cache.SetIfVersion(ctx, blogGenerationKey, generation, key, value, r.ttl)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to cache value")
		return
	}
	if !stored {
		log.Debug().Str("key", key).Msg("skipped caching value loaded before a concurrent write")
	}
}

func (r *CachedBlogRepository) bump(ctx context.Context) {
	if err := r.cache.Bump(ctx, blogGenerationKey); err != nil {
		log.Warn().Err(err).Msg("failed to bump cache generation")
	}
}

func (r *CachedBlogRepository) invalidate(ctx context.Context, pattern string) {
	if err := r.cache.DeletePattern(ctx, pattern); err != nil {
		log.Warn().Err(err).Str("pattern", pattern).Msg("failed to invalidate cache")
	}
}
