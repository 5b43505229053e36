package service

import (
	"context"
	"sync"
	"time"

	userRepo "github.com/GalitskyKK/kirakira-sub003/internal/modules/user/repository"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

const timezoneTTL = 10 * time.Minute

// TimezoneResolver supplies the reference location a user's calendar days
// are counted in.
type TimezoneResolver interface {
	Location(ctx context.Context, userID uuid.UUID) *time.Location
	Invalidate(userID uuid.UUID)
}

type cachedLocation struct {
	loc     *time.Location
	expires time.Time
}

type timezoneResolver struct {
	repo     userRepo.UserRepository
	cache    *lru.Cache
	fallback *time.Location
	now      func() time.Time
	log      *zap.Logger

	// time.LoadLocation reads the zone database; names are few, keep them.
	zonesMu sync.Mutex
	zones   map[string]*time.Location
}

func NewTimezoneResolver(repo userRepo.UserRepository, fallback *time.Location, size int, log *zap.Logger) (TimezoneResolver, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	if fallback == nil {
		fallback = time.UTC
	}
	return &timezoneResolver{
		repo:     repo,
		cache:    cache,
		fallback: fallback,
		now:      time.Now,
		log:      log.Named("timezone"),
		zones:    make(map[string]*time.Location),
	}, nil
}

func (r *timezoneResolver) Location(ctx context.Context, userID uuid.UUID) *time.Location {
	if v, ok := r.cache.Get(userID); ok {
		entry := v.(cachedLocation)
		if r.now().Before(entry.expires) {
			return entry.loc
		}
	}

	user, err := r.repo.FindByID(ctx, userID.String())
	if err != nil {
		// Unknown users are not cached so a later sign-up is picked up.
		r.log.Debug("user lookup failed, using default timezone", zap.Stringer("user_id", userID), zap.Error(err))
		return r.fallback
	}

	loc := r.load(user.Timezone)
	r.cache.Add(userID, cachedLocation{loc: loc, expires: r.now().Add(timezoneTTL)})
	return loc
}

func (r *timezoneResolver) Invalidate(userID uuid.UUID) {
	r.cache.Remove(userID)
}

func (r *timezoneResolver) load(name string) *time.Location {
	if name == "" {
		return r.fallback
	}

	r.zonesMu.Lock()
	defer r.zonesMu.Unlock()
	if loc, ok := r.zones[name]; ok {
		return loc
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		r.log.Warn("invalid user timezone, using default", zap.String("timezone", name), zap.Error(err))
		loc = r.fallback
	}
	r.zones[name] = loc
	return loc
}
