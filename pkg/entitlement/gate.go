// Package entitlement decides whether a user may spend a paid feature call.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"genius-be/internal/entity"
	"genius-be/internal/repository/memory"
	"genius-be/internal/repository/specification"
	"genius-be/internal/repository/unitofwork"
)

// ErrUnavailable means the decision could not be made. Callers must treat
// it as a denial.
var ErrUnavailable = errors.New("entitlement status unavailable")

// ErrLimitReached means the free allowance was used up before this call
// could be charged.
var ErrLimitReached = errors.New("free usage limit reached")

type Decision struct {
	Allowed    bool
	Subscribed bool
	Used       int
	Limit      int
}

type Option func(*Gate)

func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithSubscriptionCache enables in-process caching of subscription lookups.
func WithSubscriptionCache(cache *memory.SubscriptionCache) Option {
	return func(g *Gate) { g.cache = cache }
}

type Gate struct {
	uowFactory unitofwork.RepositoryFactory
	freeLimit  int
	cache      *memory.SubscriptionCache
	now        func() time.Time
}

func NewGate(uowFactory unitofwork.RepositoryFactory, freeLimit int, opts ...Option) *Gate {
	g := &Gate{
		uowFactory: uowFactory,
		freeLimit:  freeLimit,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Subscription returns the user's subscription row, or nil when there is none.
func (g *Gate) Subscription(ctx context.Context, userId string) (*entity.UserSubscription, error) {
	if g.cache != nil {
		if sub, ok := g.cache.Get(userId); ok {
			return sub, nil
		}
	}

	uow := g.uowFactory.NewUnitOfWork(ctx)
	sub, err := uow.SubscriptionRepository().FindOne(ctx, specification.UserOwnedBy{UserID: userId})
	if err != nil {
		return nil, err
	}

	if g.cache != nil {
		g.cache.Save(userId, sub)
	}
	return sub, nil
}

// IsAllowed grants access to active subscribers, and to everyone else while
// their free usage count is below the limit.
func (g *Gate) IsAllowed(ctx context.Context, userId string) (Decision, error) {
	decision := Decision{Limit: g.freeLimit}

	sub, err := g.Subscription(ctx, userId)
	if err != nil {
		return decision, fmt.Errorf("%w: subscription lookup: %v", ErrUnavailable, err)
	}
	if sub.IsActiveAt(g.now()) {
		decision.Allowed = true
		decision.Subscribed = true
		return decision, nil
	}

	used, err := g.usage(ctx, userId)
	if err != nil {
		return decision, fmt.Errorf("%w: usage lookup: %v", ErrUnavailable, err)
	}
	decision.Used = used
	decision.Allowed = used < g.freeLimit
	return decision, nil
}

// RecordUsage charges one free call. Callers skip it for subscribers.
func (g *Gate) RecordUsage(ctx context.Context, userId string) error {
	return g.RecordUsageIn(ctx, g.uowFactory.NewUnitOfWork(ctx), userId)
}

// RecordUsageIn charges one free call through uow, so the charge commits or
// rolls back with the caller's other writes. It fails with ErrLimitReached
// when the allowance is already spent.
func (g *Gate) RecordUsageIn(ctx context.Context, uow unitofwork.UnitOfWork, userId string) error {
	charged, err := uow.UsageRepository().IncrementBelow(ctx, userId, g.freeLimit, g.now().UTC())
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	if !charged {
		return ErrLimitReached
	}
	return nil
}

// Invalidate drops any cached subscription state for the user.
func (g *Gate) Invalidate(userId string) {
	if g.cache != nil {
		g.cache.Invalidate(userId)
	}
}

func (g *Gate) usage(ctx context.Context, userId string) (int, error) {
	uow := g.uowFactory.NewUnitOfWork(ctx)
	limit, err := uow.UsageRepository().FindByUserId(ctx, userId)
	if err != nil {
		return 0, err
	}
	if limit == nil {
		return 0, nil
	}
	return limit.Count, nil
}
