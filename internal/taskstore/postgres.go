package taskstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vn6295337/Researcher-Agent/internal/model"
)

// Postgres durably persists the task table, selected by TASK_STORE=postgres
// in SPEC_FULL.md's domain stack. It is additive to the in-memory
// default spec.md requires; the service runs without it.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres dials Postgres and ensures the task table exists, the way
// control_plane/store/postgres.go configures its pool.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, err
	}
	config.MaxConns = 20
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	store := &Postgres{pool: pool}
	if err := store.migrate(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS research_tasks (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`)
	return err
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) Create(ctx context.Context, task model.Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO research_tasks (id, status, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		task.ID, task.Status, payload, task.CreatedAt, task.UpdatedAt)
	return err
}

func (p *Postgres) Get(ctx context.Context, id string) (model.Task, bool) {
	var payload []byte
	err := p.pool.QueryRow(ctx, `SELECT payload FROM research_tasks WHERE id = $1`, id).Scan(&payload)
	if err != nil {
		return model.Task{}, false
	}
	var task model.Task
	if err := json.Unmarshal(payload, &task); err != nil {
		return model.Task{}, false
	}
	return task, true
}

// Update round-trips through Get/Create since the payload is an opaque
// JSONB blob rather than individually addressable columns; callers
// already serialize writes per task id via the Task Manager's
// single-aggregator-per-task ownership rule.
func (p *Postgres) Update(ctx context.Context, id string, mutate func(*model.Task)) (model.Task, bool) {
	task, ok := p.Get(ctx, id)
	if !ok {
		return model.Task{}, false
	}
	mutate(&task)
	task.UpdatedAt = time.Now().UTC()
	if err := p.Create(ctx, task); err != nil {
		return model.Task{}, false
	}
	return task, true
}

// Count returns the number of rows in the task table.
func (p *Postgres) Count(ctx context.Context) int {
	var n int
	if err := p.pool.QueryRow(ctx, `SELECT count(*) FROM research_tasks`).Scan(&n); err != nil {
		return 0
	}
	return n
}
