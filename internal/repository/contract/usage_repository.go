package contract

import (
	"context"
	"time"

	"genius-be/internal/entity"
)

type UsageRepository interface {
	FindByUserId(ctx context.Context, userId string) (*entity.UserApiLimit, error)
	// IncrementBelow adds one to the user's counter, creating it at 1 if
	// absent, unless the counter has already reached limit. It reports
	// whether the count moved.
	IncrementBelow(ctx context.Context, userId string, limit int, at time.Time) (bool, error)
}
