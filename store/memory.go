package store

import (
	"context"
	"sync"
	"time"

	"github.com/karlseguin/ccache/v3"

	"github.com/foyerspace/foyer/activity"
	"github.com/foyerspace/foyer/client"
)

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithTTL sets how long directory entries stay fresh. The default is
// one hour.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) { m.ttl = ttl }
}

// Memory keeps everything in process. Suitable for tests and for
// embedders that handle persistence themselves.
type Memory struct {
	ttl time.Duration

	mu   sync.Mutex
	cred *client.Credential

	ids    *ccache.Cache[string]
	actors *ccache.Cache[*activity.Actor]
	nodes  *ccache.Cache[Node]
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		ttl:    time.Hour,
		ids:    ccache.New(ccache.Configure[string]()),
		actors: ccache.New(ccache.Configure[*activity.Actor]()),
		nodes:  ccache.New(ccache.Configure[Node]()),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Load(context.Context) (client.Credential, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cred == nil {
		return client.Credential{}, false, nil
	}
	return *m.cred, true, nil
}

func (m *Memory) Save(_ context.Context, cred client.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = &cred
	return nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = nil
	return nil
}

func (m *Memory) ActorID(_ context.Context, handle string) (string, bool) {
	return cacheGet(m.ids, handle)
}

func (m *Memory) SetActorID(_ context.Context, handle, actorID string) {
	m.ids.Set(handle, actorID, m.ttl)
}

func (m *Memory) Actor(_ context.Context, actorID string) (*activity.Actor, bool) {
	return cacheGet(m.actors, actorID)
}

func (m *Memory) SetActor(_ context.Context, actor *activity.Actor) {
	if actor == nil || actor.ID == "" {
		return
	}
	m.actors.Set(actor.ID, actor, m.ttl)
}

func (m *Memory) Node(_ context.Context, origin string) (Node, bool) {
	return cacheGet(m.nodes, origin)
}

func (m *Memory) SetNode(_ context.Context, node Node) {
	if node.Origin == "" {
		return
	}
	m.nodes.Set(node.Origin, node, m.ttl)
}

// Close stops the cache workers.
func (m *Memory) Close() error {
	m.ids.Stop()
	m.actors.Stop()
	m.nodes.Stop()
	return nil
}

func cacheGet[T any](c *ccache.Cache[T], key string) (T, bool) {
	item := c.Get(key)
	if item == nil || item.Expired() {
		var zero T
		return zero, false
	}
	return item.Value(), true
}
