package storage

import (
	"context"
	"time"

	"LinkChat/logger"
)

// RedisMirror adapts the redis presence keys to the registry's PresenceMirror
// hook. Mirror failures are logged and swallowed: redis being down must never
// take the live delivery path with it.
type RedisMirror struct {
	NodeID string
	TTL    time.Duration
}

func NewRedisMirror(nodeID string, ttl time.Duration) *RedisMirror {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisMirror{NodeID: nodeID, TTL: ttl}
}

func (m *RedisMirror) Online(ctx context.Context, user string) {
	// detach from the caller: a dropped websocket cancels its request context,
	// and the mirror write must still go out
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := PresenceOnline(ctx, user, m.NodeID, m.TTL); err != nil {
		logger.Infof("[Presence] online mirror failed user=%s err=%v", user, err)
	}
}

func (m *RedisMirror) Offline(ctx context.Context, user string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := PresenceOffline(ctx, user); err != nil {
		logger.Infof("[Presence] offline mirror failed user=%s err=%v", user, err)
	}
}
