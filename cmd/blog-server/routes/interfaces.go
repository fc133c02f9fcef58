package routes

import (
	"context"

	"github.com/lgulliver/blogshelf/internal/blog"
	"github.com/lgulliver/blogshelf/pkg/types"
)

// BlogServiceInterface defines the contract for the blog lifecycle service
type BlogServiceInterface interface {
	Create(ctx context.Context, in blog.CreateInput) (*types.BlogPost, error)
	Get(ctx context.Context, id string) (*types.BlogPost, error)
	List(ctx context.Context, filter types.BlogFilter) ([]*types.BlogPost, error)
	Delete(ctx context.Context, id string) error
	Categories() []string
}

// SubscriptionServiceInterface defines the contract for newsletter subscriptions
type SubscriptionServiceInterface interface {
	Subscribe(ctx context.Context, email string) (*types.EmailSubscription, error)
	List(ctx context.Context) ([]*types.EmailSubscription, error)
	Delete(ctx context.Context, id string) error
}

// HealthChecker reports whether backing services are reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}
