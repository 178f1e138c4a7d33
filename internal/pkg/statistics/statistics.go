// Package statistics exposes the read-only counters behind the admin
// status endpoint, cached in Redis so status polls stay off the database.
package statistics

import (
	"log"
	"sync"
	"time"

	"github.com/musevip/musebot/app/repository"
	"github.com/musevip/musebot/internal/pkg/cache"
)

const (
	CacheKeyActiveSubs      = "statistics:subscriptions:active"
	CacheKeyExpiredSubs     = "statistics:subscriptions:expired"
	CacheKeyTotalDeliveries = "statistics:deliveries:total"
	CacheExpiration         = 30 * time.Minute
)

// StatisticsData holds the counters returned by the admin endpoint.
type StatisticsData struct {
	ActiveSubscriptions  int `json:"active_subscriptions"`
	ExpiredSubscriptions int `json:"expired_subscriptions"`
	TotalDeliveries      int `json:"total_deliveries"`
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// GetStatistics returns the counters, refreshing the cache when stale and
// falling back to direct counts when the cache is unavailable.
func GetStatistics(store repository.Store) (StatisticsData, error) {
	updateCacheIfNeeded(store)

	active, errA := cache.GetInt(CacheKeyActiveSubs)
	expired, errE := cache.GetInt(CacheKeyExpiredSubs)
	total, errT := cache.GetInt(CacheKeyTotalDeliveries)
	if errA == nil && errE == nil && errT == nil {
		return StatisticsData{
			ActiveSubscriptions:  active,
			ExpiredSubscriptions: expired,
			TotalDeliveries:      total,
		}, nil
	}

	return countFromStore(store)
}

func updateCacheIfNeeded(store repository.Store) {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	if time.Since(lastCacheUpdate) <= cacheUpdateInterval {
		return
	}

	data, err := countFromStore(store)
	if err != nil {
		log.Printf("statistics: refresh failed: %v", err)
		return
	}

	if err := cache.Set(CacheKeyActiveSubs, data.ActiveSubscriptions, CacheExpiration); err != nil {
		log.Printf("statistics: caching active count failed: %v", err)
		return
	}
	if err := cache.Set(CacheKeyExpiredSubs, data.ExpiredSubscriptions, CacheExpiration); err != nil {
		log.Printf("statistics: caching expired count failed: %v", err)
		return
	}
	if err := cache.Set(CacheKeyTotalDeliveries, data.TotalDeliveries, CacheExpiration); err != nil {
		log.Printf("statistics: caching delivery count failed: %v", err)
		return
	}
	lastCacheUpdate = time.Now()
}

// Invalidate drops the cached counters so the next status call recounts,
// best-effort. Called after mutations that change the numbers, like the
// admin purge.
func Invalidate() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	lastCacheUpdate = time.Time{}
	for _, key := range []string{CacheKeyActiveSubs, CacheKeyExpiredSubs, CacheKeyTotalDeliveries} {
		if err := cache.Delete(key); err != nil {
			log.Printf("statistics: invalidating %s failed: %v", key, err)
		}
	}
}

func countFromStore(store repository.Store) (StatisticsData, error) {
	now := time.Now()

	active, err := store.VIPUsers().CountActive(now)
	if err != nil {
		return StatisticsData{}, err
	}
	expired, err := store.VIPUsers().CountExpired(now)
	if err != nil {
		return StatisticsData{}, err
	}
	deliveries, err := store.Deliveries().Count()
	if err != nil {
		return StatisticsData{}, err
	}

	return StatisticsData{
		ActiveSubscriptions:  int(active),
		ExpiredSubscriptions: int(expired),
		TotalDeliveries:      int(deliveries),
	}, nil
}
