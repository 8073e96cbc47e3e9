package storage

import (
	"context"
	"time"

	rds "LinkChat/service/storage/redis"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// presence key: im:presence:<user>
// value: node id; TTL bounds the online validity period.
func presenceKey(user string) string { return "im:presence:" + user }

// PresenceOnline marks the user online on this node and renews the TTL.
func PresenceOnline(ctx context.Context, user, nodeID string, ttl time.Duration) error {
	return rds.GetRedis().Set(ctx, presenceKey(user), nodeID, ttl).Err()
}

// PresenceOffline actively marks the user offline (deletes the key).
func PresenceOffline(ctx context.Context, user string) error {
	return rds.GetRedis().Del(ctx, presenceKey(user)).Err()
}

// PresenceLookup reports whether the user is online anywhere.
func PresenceLookup(ctx context.Context, user string) (nodeID string, online bool, err error) {
	val, err := rds.GetRedis().Get(ctx, presenceKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}
