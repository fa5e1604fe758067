package contract

import (
	"context"
	"time"

	"genius-be/internal/entity"
	"genius-be/internal/repository/specification"
)

type SubscriptionRepository interface {
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.UserSubscription, error)
	// UpsertByUserId creates or replaces the user's subscription row.
	UpsertByUserId(ctx context.Context, sub *entity.UserSubscription) error
	// UpdateBySubscriptionId reports false when no row carries subscriptionId.
	UpdateBySubscriptionId(ctx context.Context, subscriptionId, priceId string, periodEnd time.Time) (bool, error)
}
