package permissions

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	idSetKeyPrefix  = "perm:"
	reportKeyPrefix = "effperm:"

	// DefaultCacheTTL bounds staleness for cached evaluations. Fixed from
	// last write, not sliding: role-grant changes become visible to
	// already-cached users at the latest after this interval.
	DefaultCacheTTL = 10 * time.Minute
)

// Cache memoizes per-user effective-permission state in Redis under two
// independent keys: the raw ID set used by point checks and the full report
// DTO. Entries expire after a fixed TTL and are removed explicitly when a
// user's direct grants change. All methods are nil-safe so the engine
// degrades to uncached evaluation when Redis is absent.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// GetIDSet loads the cached permission-ID set for a user. The second return
// value reports a cache hit.
func (c *Cache) GetIDSet(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]struct{}, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}
	payload, err := c.client.Get(ctx, idSetKeyPrefix+userID.String()).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var ids []uuid.UUID
	if err := json.Unmarshal(payload, &ids); err != nil {
		return nil, false, err
	}
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, true, nil
}

// SetIDSet stores the permission-ID set for a user with the fixed TTL.
func (c *Cache) SetIDSet(ctx context.Context, userID uuid.UUID, set map[uuid.UUID]struct{}) error {
	if c == nil || c.client == nil {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	payload, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, idSetKeyPrefix+userID.String(), payload, c.ttl).Err()
}

// GetReport loads the cached effective-permissions report for a user.
func (c *Cache) GetReport(ctx context.Context, userID uuid.UUID) (*EffectiveReport, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}
	payload, err := c.client.Get(ctx, reportKeyPrefix+userID.String()).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var report EffectiveReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, false, err
	}
	return &report, true, nil
}

// SetReport stores the effective-permissions report with the fixed TTL.
func (c *Cache) SetReport(ctx context.Context, userID uuid.UUID, report EffectiveReport) error {
	if c == nil || c.client == nil {
		return nil
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, reportKeyPrefix+userID.String(), payload, c.ttl).Err()
}

// InvalidateUser drops both cache entries for a user. Called after every
// successful direct grant or revoke. Role-grant mutations deliberately do
// not fan out here; members converge via TTL expiry.
func (c *Cache) InvalidateUser(ctx context.Context, userID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, idSetKeyPrefix+userID.String(), reportKeyPrefix+userID.String()).Err()
}
