package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/lgulliver/blogshelf/pkg/types"
)

// GormBlogRepository stores blog posts in a relational database
type GormBlogRepository struct {
	db *gorm.DB
}

// NewGormBlogRepository creates a new relational blog repository
func NewGormBlogRepository(db *gorm.DB) *GormBlogRepository {
	return &GormBlogRepository{db: db}
}

// Create inserts a post; BeforeCreate assigns the UUID
func (r *GormBlogRepository) Create(ctx context.Context, post *types.BlogPost) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return fmt.Errorf("%w: failed to create blog: %v", types.ErrRepository, err)
	}
	return nil
}

// Get retrieves a post by ID
func (r *GormBlogRepository) Get(ctx context.Context, id string) (*types.BlogPost, error) {
	var post types.BlogPost
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("%w: failed to get blog: %v", types.ErrRepository, err)
	}
	return &post, nil
}

// List returns posts in insertion order, optionally filtered by category
func (r *GormBlogRepository) List(ctx context.Context, filter types.BlogFilter) ([]*types.BlogPost, error) {
	db := r.db.WithContext(ctx).Model(&types.BlogPost{})
	if filter.Category != "" {
		db = db.Where("category = ?", filter.Category)
	}

	posts := make([]*types.BlogPost, 0)
	if err := db.Order("created_at ASC").Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to list blogs: %v", types.ErrRepository, err)
	}
	return posts, nil
}

// Delete removes a post, returning ErrNotFound when no row matched
func (r *GormBlogRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&types.BlogPost{})
	if result.Error != nil {
		return fmt.Errorf("%w: failed to delete blog: %v", types.ErrRepository, result.Error)
	}
	if result.RowsAffected == 0 {
		return types.ErrNotFound
	}
	return nil
}

// GormEmailRepository stores subscriptions in a relational database
type GormEmailRepository struct {
	db *gorm.DB
}

// NewGormEmailRepository creates a new relational subscription repository
func NewGormEmailRepository(db *gorm.DB) *GormEmailRepository {
	return &GormEmailRepository{db: db}
}

// Create inserts a subscription
func (r *GormEmailRepository) Create(ctx context.Context, sub *types.EmailSubscription) error {
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		return fmt.Errorf("%w: failed to create subscription: %v", types.ErrRepository, err)
	}
	return nil
}

// List returns subscriptions in insertion order
func (r *GormEmailRepository) List(ctx context.Context) ([]*types.EmailSubscription, error) {
	subs := make([]*types.EmailSubscription, 0)
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to list subscriptions: %v", types.ErrRepository, err)
	}
	return subs, nil
}

// Delete removes a subscription, returning ErrNotFound when no row matched
func (r *GormEmailRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&types.EmailSubscription{})
	if result.Error != nil {
		return fmt.Errorf("%w: failed to delete subscription: %v", types.ErrRepository, result.Error)
	}
	if result.RowsAffected == 0 {
		return types.ErrNotFound
	}
	return nil
}
