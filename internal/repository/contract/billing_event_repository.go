package contract

import (
	"context"

	"genius-be/internal/entity"
	"genius-be/internal/repository/specification"
)

type BillingEventRepository interface {
	// Record stores the event once. It returns false when the same
	// (order, status) pair was already recorded.
	Record(ctx context.Context, event *entity.BillingEvent) (bool, error)
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.BillingEvent, error)
}
