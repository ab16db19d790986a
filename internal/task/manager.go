// Package task implements the Task Manager (C9) from spec.md §4.1: it
// accepts research requests, assigns task identifiers, runs the
// aggregator in the background, and serves polled status.
package task

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vn6295337/Researcher-Agent/internal/model"
	"github.com/vn6295337/Researcher-Agent/internal/observability"
	"github.com/vn6295337/Researcher-Agent/internal/taskstore"
	"github.com/vn6295337/Researcher-Agent/internal/tickerlookup"
)

// ErrInvalidParams and ErrTaskNotFound map to spec.md §7's InvalidParams
// and TaskNotFound error kinds.
var (
	ErrInvalidParams = errors.New("InvalidParams")
	ErrTaskNotFound  = errors.New("TaskNotFound")
)

// RunFunc runs the aggregator for a single ticker, reporting progress to
// sink and observing isCanceled at basket boundaries.
type RunFunc func(ctx context.Context, ticker model.Ticker, sink EventSink, isCanceled func() bool) model.ResearchArtifact

// EventSink is the append-only capability handed to a RunFunc.
type EventSink interface {
	Emit(model.MetricEvent)
}

// Manager owns the task table exclusively (spec.md §4's Ownership
// section) and drives a background aggregator per task.
type Manager struct {
	store    taskstore.Store
	resolver tickerlookup.Resolver
	run      RunFunc

	mu       sync.Mutex
	canceled map[string]*atomic.Bool
}

// New builds a Manager. run is the aggregator entry point; resolver
// parses free-form submit messages into (ticker, company name).
func New(store taskstore.Store, resolver tickerlookup.Resolver, run RunFunc) *Manager {
	return &Manager{store: store, resolver: resolver, run: run, canceled: make(map[string]*atomic.Bool)}
}

// Submit parses message, allocates a task id, records it SUBMITTED, and
// schedules the aggregator run in the background. It always returns
// immediately (spec.md §4.1).
func (m *Manager) Submit(ctx context.Context, message string) (model.Task, error) {
	symbol, companyName, ok := m.resolver.Resolve(message)
	if !ok || symbol == "" {
		return model.Task{}, fmt.Errorf("%w: could not resolve a ticker from %q", ErrInvalidParams, message)
	}

	now := time.Now().UTC()
	t := model.Task{
		ID:        uuid.NewString(),
		Status:    model.StatusSubmitted,
		Message:   message,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Create(ctx, t); err != nil {
		return model.Task{}, err
	}

	m.mu.Lock()
	m.canceled[t.ID] = &atomic.Bool{}
	m.mu.Unlock()

	go m.runTask(t.ID, model.Ticker{Symbol: symbol, CompanyName: companyName})

	return t, nil
}

// Get returns the current task snapshot.
func (m *Manager) Get(ctx context.Context, id string) (model.Task, error) {
	t, ok := m.store.Get(ctx, id)
	if !ok {
		return model.Task{}, ErrTaskNotFound
	}
	return t, nil
}

// Cancel marks a non-terminal task CANCELED and signals its aggregator.
// Terminal tasks are returned unchanged (idempotent).
func (m *Manager) Cancel(ctx context.Context, id string) (model.Task, error) {
	t, ok := m.store.Get(ctx, id)
	if !ok {
		return model.Task{}, ErrTaskNotFound
	}
	if t.Status.Terminal() {
		return t, nil
	}

	m.mu.Lock()
	if flag, ok := m.canceled[id]; ok {
		flag.Store(true)
	}
	m.mu.Unlock()

	updated, ok := m.store.Update(ctx, id, func(task *model.Task) {
		task.Status = model.StatusCanceled
		task.UpdatedAt = time.Now().UTC()
	})
	if !ok {
		return model.Task{}, ErrTaskNotFound
	}
	observability.TasksTotal.WithLabelValues(string(model.StatusCanceled)).Inc()
	return updated, nil
}

// Size returns the number of tasks currently held in the task table.
func (m *Manager) Size() int {
	return m.store.Count(context.Background())
}

func (m *Manager) isCanceled(id string) bool {
	m.mu.Lock()
	flag, ok := m.canceled[id]
	m.mu.Unlock()
	return ok && flag.Load()
}

// runTask drives the aggregator for one task and records the outcome.
// Any exception escaping the aggregator (a recovered panic) transitions
// the task to FAILED, per spec.md §4.2's failure model.
func (m *Manager) runTask(id string, ticker model.Ticker) {
	ctx := context.Background()

	if _, ok := m.store.Update(ctx, id, func(t *model.Task) {
		t.Status = model.StatusWorking
		t.UpdatedAt = time.Now().UTC()
	}); !ok {
		log.Printf("[task] %s vanished before WORKING transition", id)
		return
	}
	observability.TasksInFlight.Inc()
	defer observability.TasksInFlight.Dec()

	sink := &sink{manager: m, taskID: id}

	artifact, failErr := m.safeRun(ctx, ticker, sink)

	if m.isCanceled(id) {
		// A cancellation observed mid-run: leave the CANCELED status
		// Cancel() already wrote, don't overwrite with a result.
		return
	}

	if failErr != nil {
		m.store.Update(ctx, id, func(t *model.Task) {
			t.Status = model.StatusFailed
			t.Error = failErr.Error()
			t.UpdatedAt = time.Now().UTC()
		})
		observability.TasksTotal.WithLabelValues(string(model.StatusFailed)).Inc()
		return
	}

	m.store.Update(ctx, id, func(t *model.Task) {
		t.Status = model.StatusCompleted
		t.Artifacts = []model.Artifact{{Data: artifact}}
		t.UpdatedAt = time.Now().UTC()
	})
	observability.TasksTotal.WithLabelValues(string(model.StatusCompleted)).Inc()
}

// safeRun recovers a panic from m.run into an error, so only an
// exception escaping the aggregator (not a basket failure, which is
// captured internally) fails the task.
func (m *Manager) safeRun(ctx context.Context, ticker model.Ticker, sink EventSink) (artifact model.ResearchArtifact, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("aggregator panic: %v", r)
		}
	}()
	artifact = m.run(ctx, ticker, sink, func() bool { return m.isCanceled(sinkTaskID(sink)) })
	return artifact, nil
}

func sinkTaskID(s EventSink) string {
	if sk, ok := s.(*sink); ok {
		return sk.taskID
	}
	return ""
}

// sink appends MetricEvents to a task's partial_metrics, stamping
// receive time and refreshing updated_at (spec.md §4.1's progress sink).
type sink struct {
	manager *Manager
	taskID  string
}

func (s *sink) Emit(event model.MetricEvent) {
	if s.manager.isCanceled(s.taskID) {
		// Cancellation must not produce any further progress events
		// (spec.md §8's boundary behavior).
		return
	}
	event.Timestamp = time.Now().UTC()
	s.manager.store.Update(context.Background(), s.taskID, func(t *model.Task) {
		t.PartialMetrics = append(t.PartialMetrics, event)
		t.UpdatedAt = time.Now().UTC()
	})
}
