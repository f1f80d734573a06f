package engine

import (
	"context"
	"strings"
	"sync"

	"github.com/expr-lang/expr/vm"

	"webhook-bot/internal/model"
)

// Snapshot is an immutable, compiled view of a webhook and its payloads.
type Snapshot struct {
	Webhook  model.Webhook
	Bot      model.Bot
	Payloads []CompiledPayload
	filter   *vm.Program
}

// NewSnapshot compiles the webhook filter and every payload's conditions.
func NewSnapshot(wh model.Webhook, bot model.Bot, payloads []model.Payload) (*Snapshot, error) {
	s := &Snapshot{
		Webhook:  wh,
		Bot:      bot,
		Payloads: CompilePayloads(payloads),
	}
	if strings.TrimSpace(wh.Filter) != "" {
		prog, err := CompileFilter(wh.Filter)
		if err != nil {
			return nil, err
		}
		s.filter = prog
	}
	return s, nil
}

// Dispatch applies the webhook filter, then dispatches the payloads.
func (s *Snapshot) Dispatch(ctx context.Context, event Value) *DispatchResult {
	pass, err := EvaluateFilter(s.filter, event)
	if err != nil {
		return (&DispatchResult{}).fail(err)
	}
	if !pass {
		return &DispatchResult{}
	}
	return Dispatch(ctx, s.Payloads, event)
}

// Registry caches compiled snapshots by webhook id. Writers invalidate the
// entry after any change to the webhook, its payloads or their conditions.
//
// Each webhook has a generation that Invalidate bumps. A snapshot loaded
// after Get is only stored by Put if no invalidation happened in between.
type Registry struct {
	mu          sync.RWMutex
	snapshots   map[int64]*Snapshot
	generations map[int64]uint64
}

func NewRegistry() *Registry {
	return &Registry{
		snapshots:   make(map[int64]*Snapshot),
		generations: make(map[int64]uint64),
	}
}

// Get returns the cached snapshot for a webhook, or nil, together with the
// webhook's current generation.
func (r *Registry) Get(webhookID int64) (*Snapshot, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshots[webhookID], r.generations[webhookID]
}

// Put stores a snapshot loaded at generation gen. It reports false and
// stores nothing when the webhook was invalidated since.
func (r *Registry) Put(s *Snapshot, gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generations[s.Webhook.ID] != gen {
		return false
	}
	r.snapshots[s.Webhook.ID] = s
	return true
}

// Invalidate drops the cached snapshot for a webhook.
func (r *Registry) Invalidate(webhookID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.snapshots, webhookID)
	r.generations[webhookID]++
}

// Len returns the number of cached snapshots.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.snapshots)
}
