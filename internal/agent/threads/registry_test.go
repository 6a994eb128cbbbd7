package threads

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/graph"
	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/model"
	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/repo"
	errx "github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/core/error"
)

type fakeRunner struct {
	invoked atomic.Int32
}

func (f *fakeRunner) Invoke(ctx context.Context, in model.QueryInput) (*model.TurnResult, error) {
	f.invoked.Add(1)
	return &model.TurnResult{AgentName: model.AgentMisleading, AgentOutput: "reply to " + in.Query}, nil
}

func newTestRegistry(t *testing.T) (*Registry, *atomic.Int32) {
	t.Helper()
	var builds atomic.Int32
	factory := func(ctx context.Context) (graph.Runner, error) {
		builds.Add(1)
		return &fakeRunner{}, nil
	}
	return NewRegistry(factory, repo.NewMemoryConversationRepository()), &builds
}

func TestRegistryStartsWithOneActiveThread(t *testing.T) {
	r, _ := newTestRegistry(t)

	infos := r.Threads()
	if len(infos) != 1 {
		t.Fatalf("got %d threads, want 1", len(infos))
	}
	if !infos[0].Active {
		t.Error("initial thread is not active")
	}
}

func TestCreateThreadSwitchesActive(t *testing.T) {
	r, _ := newTestRegistry(t)
	first := r.ActiveThread()

	created := r.CreateThread()
	if created.ID == first.ID {
		t.Fatal("new thread reused the existing id")
	}
	if r.ActiveThread().ID != created.ID {
		t.Error("new thread did not become active")
	}
	if len(r.Threads()) != 2 {
		t.Errorf("got %d threads, want 2", len(r.Threads()))
	}
}

func TestDeleteLastThreadRefused(t *testing.T) {
	r, _ := newTestRegistry(t)
	only := r.ActiveThread()

	err := r.DeleteThread(context.Background(), only.ID)
	if !errors.Is(err, errx.ErrLastThread) {
		t.Fatalf("got %v, want ErrLastThread", err)
	}
	if len(r.Threads()) != 1 {
		t.Error("thread count changed after refused delete")
	}
}

func TestDeleteActiveThreadActivatesSurvivor(t *testing.T) {
	r, _ := newTestRegistry(t)
	first := r.ActiveThread()
	second := r.CreateThread()

	if err := r.DeleteThread(context.Background(), second.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if r.ActiveThread().ID != first.ID {
		t.Error("surviving thread did not become active")
	}
}

func TestDeleteUnknownThread(t *testing.T) {
	r, _ := newTestRegistry(t)
	if err := r.DeleteThread(context.Background(), "nope"); err == nil {
		t.Error("expected error for unknown thread")
	}
}

func TestSelectThreadIdempotent(t *testing.T) {
	r, _ := newTestRegistry(t)
	active := r.ActiveThread()

	if err := r.SelectThread(active.ID); err != nil {
		t.Fatalf("select active thread: %v", err)
	}
	if r.ActiveThread().ID != active.ID {
		t.Error("active thread changed")
	}
	if err := r.SelectThread("nope"); err == nil {
		t.Error("expected error for unknown thread")
	}
}

func TestInvokeBuildsRunnerOnce(t *testing.T) {
	r, builds := newTestRegistry(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := r.Invoke(ctx, "hello"); err != nil {
			t.Fatalf("invoke %d: %v", i, err)
		}
	}
	if got := builds.Load(); got != 1 {
		t.Errorf("runner built %d times, want 1", got)
	}
}

func TestInvokeSetsTitleFromFirstQuery(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	if _, err := r.Invoke(ctx, "how many cars were sold in July"); err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if _, err := r.Invoke(ctx, "and in August"); err != nil {
		t.Fatalf("invoke: %v", err)
	}

	if got := r.ActiveThread().Title; got != "how many cars were sold in July" {
		t.Errorf("title: got %q", got)
	}
}

func TestTitleTruncated(t *testing.T) {
	r, _ := newTestRegistry(t)
	long := "this is a very long first query that should definitely exceed the title limit"

	if _, err := r.Invoke(context.Background(), long); err != nil {
		t.Fatalf("invoke: %v", err)
	}
	title := r.ActiveThread().Title
	if len([]rune(title)) > titleMaxRunes+3 {
		t.Errorf("title too long: %q", title)
	}
}

func TestClearThreadKeepsTitle(t *testing.T) {
	var builds atomic.Int32
	memRepo := repo.NewMemoryConversationRepository()
	factory := func(ctx context.Context) (graph.Runner, error) {
		builds.Add(1)
		return &fakeRunner{}, nil
	}
	r := NewRegistry(factory, memRepo)
	ctx := context.Background()

	if _, err := r.Invoke(ctx, "first question"); err != nil {
		t.Fatalf("invoke: %v", err)
	}
	active := r.ActiveThread()

	if err := r.ClearThread(ctx, active.ID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got := r.ActiveThread().Title; got != "first question" {
		t.Errorf("title after clear: got %q", got)
	}
	n, err := memRepo.GetMessageCount(ctx, active.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("checkpoint not cleared, %d messages remain", n)
	}
}

// persistingRunner blocks mid-turn until released, then writes the turn's
// exchange like a real handler would.
type persistingRunner struct {
	repo    model.ConversationRepository
	started chan struct{}
	release chan struct{}
}

func (p *persistingRunner) Invoke(ctx context.Context, in model.QueryInput) (*model.TurnResult, error) {
	close(p.started)
	<-p.release
	err := p.repo.AddMessages(ctx, in.ThreadID,
		schema.UserMessage(in.Query),
		schema.AssistantMessage("late reply", nil),
	)
	if err != nil {
		return nil, err
	}
	return &model.TurnResult{AgentName: model.AgentMisleading, AgentOutput: "late reply"}, nil
}

func TestDeleteWaitsForInFlightTurn(t *testing.T) {
	memRepo := repo.NewMemoryConversationRepository()
	runner := &persistingRunner{
		repo:    memRepo,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	factory := func(ctx context.Context) (graph.Runner, error) {
		return runner, nil
	}
	r := NewRegistry(factory, memRepo)
	ctx := context.Background()

	first := r.ActiveThread()
	second := r.CreateThread()

	invokeDone := make(chan error, 1)
	go func() {
		_, err := r.Invoke(ctx, "slow question")
		invokeDone <- err
	}()
	<-runner.started

	deleteDone := make(chan error, 1)
	go func() {
		deleteDone <- r.DeleteThread(ctx, second.ID)
	}()

	// Give the delete a moment to reach the turn lock, then let the turn
	// finish its write.
	time.Sleep(50 * time.Millisecond)
	close(runner.release)

	if err := <-invokeDone; err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if err := <-deleteDone; err != nil {
		t.Fatalf("delete: %v", err)
	}

	n, err := memRepo.GetMessageCount(ctx, second.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("deleted thread kept %d messages from the racing turn", n)
	}
	if r.ActiveThread().ID != first.ID {
		t.Error("surviving thread did not become active")
	}
}

func TestDeleteThreadClearsCheckpoint(t *testing.T) {
	memRepo := repo.NewMemoryConversationRepository()
	factory := func(ctx context.Context) (graph.Runner, error) {
		return &fakeRunner{}, nil
	}
	r := NewRegistry(factory, memRepo)
	ctx := context.Background()

	first := r.ActiveThread()
	if err := memRepo.AddMessage(ctx, first.ID, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}
	r.CreateThread()

	if err := r.DeleteThread(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	n, err := memRepo.GetMessageCount(ctx, first.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("deleted thread left %d checkpoint messages", n)
	}
}
