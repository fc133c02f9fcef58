package subscription

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/lgulliver/blogshelf/internal/repository"
	"github.com/lgulliver/blogshelf/pkg/types"
)

var validate = validator.New()

// Service manages newsletter subscriptions
type Service struct {
	repo repository.EmailRepository
}

// NewService creates a new subscription service
func NewService(repo repository.EmailRepository) *Service {
	return &Service{repo: repo}
}

// Subscribe records an email address. Duplicate addresses are allowed.
func (s *Service) Subscribe(ctx context.Context, email string) (*types.EmailSubscription, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, types.NewValidationError("email", "email is required")
	}

	if err := validate.Var(email, "email"); err != nil {
		return nil, types.NewValidationError("email", "email is invalid")
	}

	sub := &types.EmailSubscription{Email: email}
	if err := s.repo.Create(ctx, sub); err != nil {
		log.Error().Err(err).Msg("failed to save subscription")
		return nil, err
	}

	log.Info().Str("subscription_id", sub.ID).Msg("email subscribed")
	return sub, nil
}

// List returns every subscription in insertion order
func (s *Service) List(ctx context.Context) ([]*types.EmailSubscription, error) {
	return s.repo.List(ctx)
}

// Delete removes a subscription
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return types.NewValidationError("id", "id is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	log.Info().Str("subscription_id", id).Msg("subscription deleted")
	return nil
}
