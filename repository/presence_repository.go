package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type presence struct {
	db *redis.Client
}

const (
	presenceKeyPrefix = "presence:"
	onlineStatus      = "online"
)

// Connections refresh the key on every pong, so the TTL only needs to
// outlive a couple of ping intervals.
const onlinePresenceDuration = 40 * time.Second

func (r *presence) SetOnline(ctx context.Context, address string) error {
	return r.db.Set(
		ctx,
		r.getKey(address),
		onlineStatus,
		onlinePresenceDuration).Err()
}

func (r *presence) Refresh(ctx context.Context, address string) error {
	return r.db.Expire(ctx, r.getKey(address), onlinePresenceDuration).Err()
}

func (r *presence) SetOffline(ctx context.Context, address string) error {
	return r.db.Del(ctx, r.getKey(address)).Err()
}

func (r *presence) OnlineAmong(ctx context.Context, addresses []string) ([]string, error) {
	if len(addresses) == 0 {
		return nil, nil
	}

	keys := make([]string, len(addresses))
	for i, address := range addresses {
		keys[i] = r.getKey(address)
	}

	values, err := r.db.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	var online []string

	for i, value := range values {
		if s, ok := value.(string); ok && s == onlineStatus {
			online = append(online, addresses[i])
		}
	}

	return online, nil
}

func (r *presence) getKey(address string) string {
	return presenceKeyPrefix + address
}

func NewPresence(client *redis.Client) *presence {
	return &presence{
		db: client,
	}
}
