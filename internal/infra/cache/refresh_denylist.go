package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const denylistPrefix = "auth:refresh:revoked:"

// RefreshDenylistRedis keeps one key per revoked refresh token. Keys expire
// together with the token they block.
type RefreshDenylistRedis struct {
	rdb redis.Cmdable
	now func() time.Time
}

func NewRefreshDenylistRedis(rdb redis.Cmdable) *RefreshDenylistRedis {
	return &RefreshDenylistRedis{rdb: rdb, now: time.Now}
}

func (d *RefreshDenylistRedis) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := until.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	return d.rdb.Set(ctx, denylistPrefix+jti, "1", ttl).Err()
}

func (d *RefreshDenylistRedis) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := d.rdb.Exists(ctx, denylistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
