package memory

import (
	"time"

	"genius-be/internal/entity"

	"github.com/patrickmn/go-cache"
)

// SubscriptionCache keeps recent subscription lookups in process. A cached
// nil means "looked up, user has no subscription".
type SubscriptionCache struct {
	cache *cache.Cache
}

func NewSubscriptionCache(ttl time.Duration) *SubscriptionCache {
	return &SubscriptionCache{
		cache: cache.New(ttl, 2*ttl),
	}
}

func (r *SubscriptionCache) Save(userId string, sub *entity.UserSubscription) {
	r.cache.Set(userId, sub, cache.DefaultExpiration)
}

func (r *SubscriptionCache) Get(userId string) (*entity.UserSubscription, bool) {
	if x, found := r.cache.Get(userId); found {
		return x.(*entity.UserSubscription), true
	}
	return nil, false
}

func (r *SubscriptionCache) Invalidate(userId string) {
	r.cache.Delete(userId)
}
