// Package threads manages the conversation threads of one process: creating
// and deleting them, tracking which is active, and dispatching turns to each
// thread's lazily built graph runner.
package threads

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/graph"
	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/model"
	errx "github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/core/error"
	logx "github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/pkg/logger"
)

// titleMaxRunes bounds thread titles derived from the first query.
const titleMaxRunes = 48

// RunnerFactory builds a graph runner for a new thread. Runners are built
// lazily, on the thread's first turn, so creating threads stays cheap.
type RunnerFactory func(ctx context.Context) (graph.Runner, error)

// Thread is one conversation with its own checkpoint and runner.
type Thread struct {
	ID        string
	Title     string
	CreatedAt time.Time

	initMu sync.Mutex
	runner graph.Runner

	// turnMu serializes turns within the thread; different threads run
	// concurrently.
	turnMu sync.Mutex
}

// ThreadInfo is the read-only listing view of a thread.
type ThreadInfo struct {
	ID        string
	Title     string
	CreatedAt time.Time
	Active    bool
}

// Registry owns the thread set. There is always at least one thread and
// exactly one active thread.
type Registry struct {
	mu      sync.Mutex
	threads map[string]*Thread
	order   []string
	active  string

	factory RunnerFactory
	repo    model.ConversationRepository
}

// NewRegistry creates the registry with one empty active thread.
func NewRegistry(factory RunnerFactory, repo model.ConversationRepository) *Registry {
	r := &Registry{
		threads: make(map[string]*Thread),
		factory: factory,
		repo:    repo,
	}
	r.addLocked(newThread())
	return r
}

func newThread() *Thread {
	return &Thread{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
}

func (r *Registry) addLocked(t *Thread) {
	r.threads[t.ID] = t
	r.order = append(r.order, t.ID)
	r.active = t.ID
}

// CreateThread starts a new empty thread and makes it active.
func (r *Registry) CreateThread() ThreadInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := newThread()
	r.addLocked(t)
	logx.Info().Str("thread_id", t.ID).Msg("thread created")
	return ThreadInfo{ID: t.ID, Title: t.Title, CreatedAt: t.CreatedAt, Active: true}
}

// Threads lists all threads in creation order.
func (r *Registry) Threads() []ThreadInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]ThreadInfo, 0, len(r.order))
	for _, id := range r.order {
		t := r.threads[id]
		infos = append(infos, ThreadInfo{
			ID:        t.ID,
			Title:     t.Title,
			CreatedAt: t.CreatedAt,
			Active:    id == r.active,
		})
	}
	return infos
}

// ActiveThread returns the currently active thread's info.
func (r *Registry) ActiveThread() ThreadInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.threads[r.active]
	return ThreadInfo{ID: t.ID, Title: t.Title, CreatedAt: t.CreatedAt, Active: true}
}

// SelectThread makes the given thread active. Selecting the already active
// thread is a no-op.
func (r *Registry) SelectThread(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.threads[id]; !ok {
		return fmt.Errorf("thread %q not found", id)
	}
	r.active = id
	return nil
}

// DeleteThread removes a thread and its checkpoint. The last remaining
// thread cannot be deleted; when the active thread is deleted the most
// recently created survivor becomes active. The thread is unregistered
// first, then an in-flight turn is allowed to finish before the checkpoint
// is wiped, so a racing turn can never re-persist messages afterwards.
func (r *Registry) DeleteThread(ctx context.Context, id string) error {
	r.mu.Lock()
	t, ok := r.threads[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("thread %q not found", id)
	}
	if len(r.threads) == 1 {
		r.mu.Unlock()
		return errx.ErrLastThread
	}

	delete(r.threads, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.active == id {
		r.active = r.order[len(r.order)-1]
	}
	r.mu.Unlock()

	t.turnMu.Lock()
	defer t.turnMu.Unlock()
	if err := r.repo.ClearHistory(ctx, id); err != nil {
		return fmt.Errorf("clear thread %q checkpoint: %w", id, err)
	}

	logx.Info().Str("thread_id", id).Msg("thread deleted")
	return nil
}

// ClearThread wipes a thread's checkpoint but keeps the thread and its title.
func (r *Registry) ClearThread(ctx context.Context, id string) error {
	r.mu.Lock()
	t, ok := r.threads[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("thread %q not found", id)
	}

	t.turnMu.Lock()
	defer t.turnMu.Unlock()
	return r.repo.ClearHistory(ctx, id)
}

// Invoke runs one turn on the active thread. The thread's runner is built on
// first use; turns within a thread are serialized.
func (r *Registry) Invoke(ctx context.Context, query string) (*model.TurnResult, error) {
	r.mu.Lock()
	t := r.threads[r.active]
	r.mu.Unlock()

	runner, err := t.ensureRunner(ctx, r.factory)
	if err != nil {
		return nil, err
	}

	t.turnMu.Lock()
	defer t.turnMu.Unlock()

	// The thread may have been deleted between the lookup above and taking
	// its turn lock; a turn on a dead thread would write past its wiped
	// checkpoint.
	r.mu.Lock()
	_, alive := r.threads[t.ID]
	r.mu.Unlock()
	if !alive {
		return nil, fmt.Errorf("thread %q was deleted", t.ID)
	}

	result, err := runner.Invoke(ctx, model.QueryInput{ThreadID: t.ID, Query: query})
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if t.Title == "" {
		t.Title = truncateTitle(query)
	}
	r.mu.Unlock()

	return result, nil
}

func (t *Thread) ensureRunner(ctx context.Context, factory RunnerFactory) (graph.Runner, error) {
	t.initMu.Lock()
	defer t.initMu.Unlock()

	if t.runner != nil {
		return t.runner, nil
	}
	runner, err := factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("build runner for thread %q: %w", t.ID, err)
	}
	t.runner = runner
	return runner, nil
}

func truncateTitle(query string) string {
	runes := []rune(query)
	if len(runes) <= titleMaxRunes {
		return query
	}
	return string(runes[:titleMaxRunes]) + "..."
}
