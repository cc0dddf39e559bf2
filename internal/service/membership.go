package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/confhub/recommender/internal/observability"
	"github.com/confhub/recommender/pkg/cache"
)

// MembershipRepository answers conference membership from the data store.
type MembershipRepository interface {
	IsMember(ctx context.Context, conferenceID, profileID uuid.UUID) (bool, error)
}

const (
	membershipCacheName = "membership"
	membershipCacheSize = 10000
)

// errNotMember keeps negative answers out of the cache so a new registration is seen at once.
var errNotMember = errors.New("not a member")

type membershipKey struct {
	conferenceID uuid.UUID
	profileID    uuid.UUID
}

// CachingMembershipChecker caches positive membership answers for a short TTL.
type CachingMembershipChecker struct {
	repo    MembershipRepository
	cache   *cache.LoaderCache[membershipKey, bool]
	metrics observability.CacheMetrics
}

// NewCachingMembershipChecker wraps repo. ttl <= 0 disables caching. metrics may be nil.
func NewCachingMembershipChecker(
	repo MembershipRepository, ttl time.Duration, metrics observability.CacheMetrics,
) *CachingMembershipChecker {
	c := &CachingMembershipChecker{repo: repo, metrics: metrics}
	if ttl > 0 {
		c.cache = cache.NewLoaderCache[membershipKey, bool](membershipCacheSize, ttl, func(k membershipKey) string {
			return k.conferenceID.String() + "/" + k.profileID.String()
		})
	}

	return c
}

// IsMember reports whether profileID belongs to conferenceID.
func (c *CachingMembershipChecker) IsMember(ctx context.Context, conferenceID, profileID uuid.UUID) (bool, error) {
	if c.cache == nil {
		return c.load(ctx, membershipKey{conferenceID: conferenceID, profileID: profileID})
	}

	_, hit, err := c.cache.GetWithStats(ctx, membershipKey{conferenceID: conferenceID, profileID: profileID},
		func(ctx context.Context, k membershipKey) (bool, error) {
			ok, err := c.load(ctx, k)
			if err != nil {
				return false, err
			}

			if !ok {
				return false, errNotMember
			}

			return true, nil
		})

	if c.metrics != nil {
		if hit {
			c.metrics.RecordHit(ctx, membershipCacheName)
		} else {
			c.metrics.RecordMiss(ctx, membershipCacheName)
		}
	}

	if errors.Is(err, errNotMember) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}

func (c *CachingMembershipChecker) load(ctx context.Context, k membershipKey) (bool, error) {
	ok, err := c.repo.IsMember(ctx, k.conferenceID, k.profileID)
	if err != nil {
		return false, fmt.Errorf("membership lookup: %w", err)
	}

	return ok, nil
}
