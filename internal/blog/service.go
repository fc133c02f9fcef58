package blog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lgulliver/blogshelf/internal/repository"
	"github.com/lgulliver/blogshelf/internal/storage"
	"github.com/lgulliver/blogshelf/pkg/config"
	"github.com/lgulliver/blogshelf/pkg/types"
	"github.com/lgulliver/blogshelf/pkg/utils"
)

// ImageUpload is the raw image submitted with a new post
type ImageUpload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// CreateInput carries the fields of a new post
type CreateInput struct {
	Title       string
	Description string
	Category    string
	Author      string
	AuthorImg   string
	Image       *ImageUpload
}

// Service keeps blog records and their image assets consistent. The image is
// stored before the record is written; if the write fails the image is
// removed again.
type Service struct {
	repo       repository.BlogRepository
	store      storage.AssetStore
	categories []string
	policy     string
	now        func() time.Time
}

// NewService creates a new blog service
func NewService(repo repository.BlogRepository, store storage.AssetStore, cfg *config.BlogConfig) *Service {
	categories := cfg.Categories
	if len(categories) == 0 {
		categories = types.DefaultCategories
	}
	policy := cfg.CleanupPolicy
	if policy == "" {
		policy = config.CleanupWarn
	}

	return &Service{
		repo:       repo,
		store:      store,
		categories: categories,
		policy:     policy,
		now:        time.Now,
	}
}

// Categories returns the accepted category set
func (s *Service) Categories() []string {
	return s.categories
}

// Create validates the input, stores the image and persists the post
func (s *Service) Create(ctx context.Context, in CreateInput) (*types.BlogPost, error) {
	startTime := time.Now()

	post, err := s.validate(in)
	if err != nil {
		return nil, err
	}

	meta, err := storage.ValidateAsset(in.Image.Content, storage.AssetMeta{
		ContentType: in.Image.ContentType,
		Size:        int64(len(in.Image.Content)),
		Filename:    in.Image.Filename,
	})
	if err != nil {
		log.Debug().Err(err).Str("filename", in.Image.Filename).Msg("image rejected")
		return nil, err
	}

	asset, err := s.store.Store(ctx, in.Image.Content, meta)
	if err != nil {
		log.Error().Err(err).Str("title", post.Title).Msg("failed to store blog image")
		return nil, err
	}

	post.Image = asset.Locator
	post.ImageAssetID = asset.AssetID
	post.ImageContentType = asset.ContentType
	post.ImageSize = asset.Size
	post.CreatedAt = s.now().UTC()

	if err := s.repo.Create(ctx, post); err != nil {
		log.Error().Err(err).Str("locator", asset.Locator).Msg("failed to save blog, removing stored image")
		if rmErr := s.store.Remove(ctx, asset.Ref()); rmErr != nil {
			log.Warn().
				Err(rmErr).
				Str("locator", asset.Locator).
				Str("asset_id", asset.AssetID).
				Msg("failed to remove image after blog save failure, asset is orphaned")
		}
		if !errors.Is(err, types.ErrRepository) {
			err = fmt.Errorf("%w: %v", types.ErrRepository, err)
		}
		return nil, err
	}

	log.Info().
		Str("blog_id", post.ID).
		Str("category", post.Category).
		Str("locator", post.Image).
		Str("size", utils.FormatBytes(post.ImageSize)).
		Dur("duration", time.Since(startTime)).
		Msg("blog created")

	return post, nil
}

// Get returns a post by ID
func (s *Service) Get(ctx context.Context, id string) (*types.BlogPost, error) {
	if strings.TrimSpace(id) == "" {
		return nil, types.NewValidationError("id", "id is required")
	}
	return s.repo.Get(ctx, id)
}

// List returns posts in insertion order, optionally filtered by category
func (s *Service) List(ctx context.Context, filter types.BlogFilter) ([]*types.BlogPost, error) {
	if filter.Category != "" {
		if canonical, ok := utils.ContainsFold(s.categories, filter.Category); ok {
			filter.Category = canonical
		}
	}
	return s.repo.List(ctx, filter)
}

// Delete removes a post and its image. How an image removal failure is
// handled depends on the cleanup policy.
func (s *Service) Delete(ctx context.Context, id string) error {
	post, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Remove(ctx, post.AssetRef()); err != nil {
		if s.policy == config.CleanupStrict {
			log.Error().Err(err).Str("blog_id", id).Str("locator", post.Image).Msg("failed to remove blog image, keeping blog")
			return fmt.Errorf("failed to remove image for blog %s: %w", id, err)
		}
		log.Warn().Err(err).Str("blog_id", id).Str("locator", post.Image).Msg("failed to remove blog image, asset is orphaned")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	log.Info().Str("blog_id", id).Str("locator", post.Image).Msg("blog deleted")
	return nil
}

// validate checks the text fields in a fixed order and reports the first
// failure. The returned post carries the trimmed values.
func (s *Service) validate(in CreateInput) (*types.BlogPost, error) {
	fields := []struct {
		name  string
		value string
	}{
		{"title", in.Title},
		{"description", in.Description},
		{"category", in.Category},
		{"author", in.Author},
		{"authorImg", in.AuthorImg},
	}

	values := make(map[string]string, len(fields))
	for _, f := range fields {
		v := strings.TrimSpace(f.value)
		if v == "" {
			return nil, types.NewValidationError(f.name, f.name+" is required")
		}
		values[f.name] = v
	}

	category, ok := utils.ContainsFold(s.categories, values["category"])
	if !ok {
		return nil, types.NewValidationError("category",
			fmt.Sprintf("category must be one of: %s", strings.Join(s.categories, ", ")))
	}

	if in.Image == nil || len(in.Image.Content) == 0 {
		return nil, types.NewValidationError("image", "image required")
	}

	return &types.BlogPost{
		Title:       values["title"],
		Description: values["description"],
		Category:    category,
		Author:      values["author"],
		AuthorImg:   values["authorImg"],
	}, nil
}
