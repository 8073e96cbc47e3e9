package chat

import (
	"context"
	"sort"
	"sync"

	"LinkChat/logger"
	"LinkChat/tools/safe"
)

// Sink is the outbound half of a live connection: it can emit named events to
// exactly one remote peer. *Client is the production implementation.
type Sink interface {
	Emit(event string, data interface{}) error
	Close()
}

// PresenceMirror reflects local presence into shared storage (redis) so other
// services can observe who is online. Nil disables mirroring.
type PresenceMirror interface {
	Online(ctx context.Context, user string)
	Offline(ctx context.Context, user string)
}

// Registry is the single source of truth for "who is online" on this node.
//
// Invariant: at most one sink per user at any instant. A new connection for the
// same user replaces the previous one (last connection wins); the superseded
// sink is closed, and its eventual disconnect is ignored as stale.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]Sink

	mirror PresenceMirror
}

func NewRegistry(mirror PresenceMirror) *Registry {
	return &Registry{
		byUser: make(map[string]Sink),
		mirror: mirror,
	}
}

// Connect registers (or overwrites) the sink for user and broadcasts the new
// online set to every registered connection.
func (r *Registry) Connect(ctx context.Context, user string, s Sink) {
	r.mu.Lock()
	prev := r.byUser[user]
	r.byUser[user] = s
	r.mu.Unlock()

	if prev == nil {
		OnlineConns.Inc()
	} else if prev != s {
		logger.Infof("[Registry] superseding connection user=%s", user)
		prev.Close()
	}
	if r.mirror != nil {
		safe.SafeGo(func() { r.mirror.Online(ctx, user) })
	}
	r.broadcastOnline()
}

// Disconnect removes the entry only if s is still the sink on record. A stale
// disconnect from a superseded connection is a no-op, not an error.
func (r *Registry) Disconnect(ctx context.Context, user string, s Sink) {
	r.mu.Lock()
	cur, ok := r.byUser[user]
	if !ok || cur != s {
		r.mu.Unlock()
		return
	}
	delete(r.byUser, user)
	r.mu.Unlock()

	OnlineConns.Dec()
	if r.mirror != nil {
		safe.SafeGo(func() { r.mirror.Offline(ctx, user) })
	}
	r.broadcastOnline()
}

// Lookup returns the live sink for user. Absence means offline, not failure.
func (r *Registry) Lookup(user string) (Sink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byUser[user]
	return s, ok
}

// ListOnline returns the sorted set of online user ids.
func (r *Registry) ListOnline() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byUser))
	for u := range r.byUser {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// broadcastOnline pushes the current online set to all registered connections.
// Snapshot under the read lock; emission goes through the per-conn queues.
func (r *Registry) broadcastOnline() {
	r.mu.RLock()
	users := make([]string, 0, len(r.byUser))
	sinks := make([]Sink, 0, len(r.byUser))
	for u, s := range r.byUser {
		users = append(users, u)
		sinks = append(sinks, s)
	}
	r.mu.RUnlock()

	sort.Strings(users)
	for _, s := range sinks {
		if err := s.Emit(EventOnlineUsers, users); err != nil {
			logger.Infof("[Registry] online broadcast dropped: %v", err)
		}
	}
}
