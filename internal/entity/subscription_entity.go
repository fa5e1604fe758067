package entity

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionGracePeriod keeps a subscriber entitled for one day after the
// recorded period end, covering renewals that settle late.
const SubscriptionGracePeriod = 24 * time.Hour

type UserSubscription struct {
	Id               uuid.UUID
	UserId           string
	SubscriptionId   string
	CustomerRef      string
	PriceId          string
	CurrentPeriodEnd *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsActiveAt reports whether the subscription grants paid access at now.
func (s *UserSubscription) IsActiveAt(now time.Time) bool {
	if s == nil || s.PriceId == "" || s.CurrentPeriodEnd == nil {
		return false
	}
	return s.CurrentPeriodEnd.Add(SubscriptionGracePeriod).After(now)
}
