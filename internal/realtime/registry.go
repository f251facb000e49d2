package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Registry tracks live viewer streams keyed by form session. A session has at
// most one stream: registering again cancels the previous one.
type Registry struct {
	mu    sync.Mutex
	conns map[string]registration
}

type registration struct {
	id     string
	cancel context.CancelFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]registration)}
}

// Register claims the stream slot for key. The returned context is cancelled
// when the caller's context ends, when release is called, or when a newer
// stream registers under the same key.
func (r *Registry) Register(ctx context.Context, key string) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	reg := registration{id: uuid.NewString(), cancel: cancel}

	r.mu.Lock()
	if prev, ok := r.conns[key]; ok {
		prev.cancel()
	}
	r.conns[key] = reg
	r.mu.Unlock()

	go r.cleanUp(ctx, key, reg.id)
	return ctx, cancel
}

// cleanUp drops the entry once its context ends, unless a newer stream has
// already taken the slot.
func (r *Registry) cleanUp(ctx context.Context, key, id string) {
	<-ctx.Done()

	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.conns[key]; ok && cur.id == id {
		delete(r.conns, key)
	}
}

// Count returns the number of live streams.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
