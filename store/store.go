package store

import (
	"time"

	"github.com/keepsakehq/keepsake/internal/profile"
	"github.com/keepsakehq/keepsake/store/cache"
)

// Store provides database access to all raw objects.
type Store struct {
	profile  *profile.Profile
	driver   Driver
	notifier *Notifier

	// Caches
	instanceSettingCache *cache.Cache // cache for instance settings
	userCache            *cache.Cache // cache for users
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	cacheConfig := cache.Config{
		DefaultTTL:      10 * time.Minute,
		CleanupInterval: 5 * time.Minute,
		MaxItems:        1000,
	}

	return &Store{
		driver:               driver,
		profile:              profile,
		notifier:             NewNotifier(),
		instanceSettingCache: cache.New(cacheConfig),
		userCache:            cache.New(cacheConfig),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

// Notifier exposes the store's change notification fan-out.
func (s *Store) Notifier() *Notifier {
	return s.notifier
}

func (s *Store) Close() error {
	s.instanceSettingCache.Close()
	s.userCache.Close()
	return s.driver.Close()
}
