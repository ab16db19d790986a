// Package taskstore abstracts the Task Manager's task table, following
// the Store interface split in control_plane/store/interface.go: an
// in-memory default plus an optional durable Postgres backend.
package taskstore

import (
	"context"
	"sync"

	"github.com/vn6295337/Researcher-Agent/internal/model"
)

// Store is the contract the Task Manager mutates and polls. Get returns
// a snapshot copy of the task; the in-memory store takes a read lock to
// make it, so reads are not lock-free.
type Store interface {
	Create(ctx context.Context, task model.Task) error
	Get(ctx context.Context, id string) (model.Task, bool)
	Update(ctx context.Context, id string, mutate func(*model.Task)) (model.Task, bool)
	Count(ctx context.Context) int
}

// Memory is the default in-process task table: a concurrent map keyed
// by task id, per spec.md §5's shared-resources model.
type Memory struct {
	mu    sync.RWMutex
	tasks map[string]*model.Task
}

// NewMemory builds an empty in-memory task table.
func NewMemory() *Memory {
	return &Memory{tasks: make(map[string]*model.Task)}
}

func (m *Memory) Create(_ context.Context, task model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := task
	m.tasks[task.ID] = &cp
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (model.Task, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return model.Task{}, false
	}
	return t.Snapshot(), true
}

// Update applies mutate to the stored task under the table lock and
// returns the post-mutation snapshot. Only the aggregator owning a task
// id is expected to call this for that id, per spec.md §4.1's ownership
// rule, but the lock makes concurrent calls from different task ids
// safe regardless.
func (m *Memory) Update(_ context.Context, id string, mutate func(*model.Task)) (model.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return model.Task{}, false
	}
	mutate(t)
	return t.Snapshot(), true
}

// Count returns the number of tasks currently held in the table.
func (m *Memory) Count(_ context.Context) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tasks)
}
