package repository

import (
	"context"

	"github.com/lgulliver/blogshelf/pkg/types"
)

// BlogRepository persists blog records. Implementations assign the ID on Create.
type BlogRepository interface {
	Create(ctx context.Context, post *types.BlogPost) error
	Get(ctx context.Context, id string) (*types.BlogPost, error)
	List(ctx context.Context, filter types.BlogFilter) ([]*types.BlogPost, error)
	Delete(ctx context.Context, id string) error
}

// EmailRepository persists newsletter subscriptions
type EmailRepository interface {
	Create(ctx context.Context, sub *types.EmailSubscription) error
	List(ctx context.Context) ([]*types.EmailSubscription, error)
	Delete(ctx context.Context, id string) error
}
