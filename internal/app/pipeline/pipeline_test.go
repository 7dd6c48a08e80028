package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jsamuelsen11/orderflow/internal/app/bus"
	"github.com/jsamuelsen11/orderflow/internal/domain"
	"github.com/jsamuelsen11/orderflow/internal/domain/order"
	"github.com/jsamuelsen11/orderflow/internal/platform/scopes"
	"github.com/jsamuelsen11/orderflow/internal/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(new(bytes.Buffer), nil))
}

// fakeOrderStore records status transitions and lets tests script failures.
type fakeOrderStore struct {
	mu       sync.Mutex
	statuses map[int64][]order.Status

	// failOn, when set, is consulted before recording each transition.
	failOn func(id int64, status order.Status) error
}

var _ ports.OrderStore = (*fakeOrderStore)(nil)

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{statuses: make(map[int64][]order.Status)}
}

func (s *fakeOrderStore) Create(_ context.Context, o *order.Order) (*order.Order, error) {
	return o, nil
}

func (s *fakeOrderStore) FindByID(_ context.Context, id int64) (*order.Order, error) {
	return nil, fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
}

func (s *fakeOrderStore) FindAll(_ context.Context) ([]order.Order, error) {
	return nil, nil
}

func (s *fakeOrderStore) UpdateStatus(_ context.Context, id int64, status order.Status) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failOn != nil {
		if err := s.failOn(id, status); err != nil {
			return nil, err
		}
	}

	s.statuses[id] = append(s.statuses[id], status)
	return &order.Order{ID: id, Status: status}, nil
}

func (s *fakeOrderStore) transitions(id int64) []order.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]order.Status, len(s.statuses[id]))
	copy(out, s.statuses[id])
	return out
}

func approve(context.Context, order.Order) (bool, error) { return true, nil }

func testOrder(id int64) order.Order {
	return order.Order{ID: id, UserID: 1, ProductName: "widget", Amount: 9.99, Status: order.StatusPending}
}

// awaitTerminal consumes events until every listed order has reached a
// terminal outcome.
func awaitTerminal(t *testing.T, events <-chan domain.Event, ids ...int64) []domain.Event {
	t.Helper()

	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	var seen []domain.Event
	deadline := time.After(5 * time.Second)
	for len(want) > 0 {
		select {
		case e := <-events:
			seen = append(seen, e)
			switch ev := e.(type) {
			case domain.OrderStatusChanged:
				delete(want, ev.OrderID)
			case domain.SystemError:
				// SystemError does not carry the ID; match on any pending
				// order since the single consumer finishes them in order.
				for id := range want {
					delete(want, id)
					break
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for terminal events, still missing %v", want)
		}
	}
	return seen
}

func TestPipeline_ProcessesOrderToCompletion(t *testing.T) {
	t.Parallel()

	store := newFakeOrderStore()
	b := bus.New()
	reg := scopes.NewRegistry(discardLogger())
	defer func() { _ = reg.Shutdown(time.Second) }()

	p := New(Config{QueueCapacity: 4}, store, b, discardLogger(),
		WithChecks(approve, approve))

	events, stop := b.Events.Subscribe()
	defer stop()

	p.Start(reg)
	if err := p.Submit(context.Background(), testOrder(1)); err != nil {
		t.Fatalf("Submit error = %v", err)
	}

	awaitTerminal(t, events, 1)

	got := store.transitions(1)
	want := []order.Status{order.StatusProcessing, order.StatusCompleted}
	if len(got) != len(want) {
		t.Fatalf("transitions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("transition[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	state := b.OrderState.Current()
	if state.Phase != order.PhaseCompleted || state.OrderID != 1 || !state.Success {
		t.Errorf("final state = %+v, want completed success for order 1", state)
	}

	status := p.Status()
	if status.Processed != 1 || status.Failed != 0 {
		t.Errorf("Status = %+v, want 1 processed, 0 failed", status)
	}
}

func TestPipeline_StrictFIFOStartOrder(t *testing.T) {
	t.Parallel()

	store := newFakeOrderStore()
	b := bus.New()
	reg := scopes.NewRegistry(discardLogger())
	defer func() { _ = reg.Shutdown(time.Second) }()

	started := make(chan int64, 3)
	// Order 1's check is the slowest; under parallel consumption order 3
	// would finish first. Start order must still be 1, 2, 3.
	slowCheck := func(_ context.Context, o order.Order) (bool, error) {
		started <- o.ID
		if o.ID == 1 {
			time.Sleep(100 * time.Millisecond)
		}
		return true, nil
	}

	p := New(Config{QueueCapacity: 4}, store, b, discardLogger(),
		WithChecks(slowCheck, approve))

	events, stop := b.Events.Subscribe()
	defer stop()

	for id := int64(1); id <= 3; id++ {
		if err := p.Submit(context.Background(), testOrder(id)); err != nil {
			t.Fatalf("Submit(%d) error = %v", id, err)
		}
	}
	p.Start(reg)

	awaitTerminal(t, events, 1, 2, 3)

	close(started)
	var got []int64
	for id := range started {
		got = append(got, id)
	}
	want := []int64{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("start order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("start order = %v, want %v", got, want)
			break
		}
	}
}

func TestPipeline_FailedCheckCancelsOrderAndContinues(t *testing.T) {
	t.Parallel()

	store := newFakeOrderStore()
	b := bus.New()
	reg := scopes.NewRegistry(discardLogger())
	defer func() { _ = reg.Shutdown(time.Second) }()

	rejectFirst := func(_ context.Context, o order.Order) (bool, error) {
		return o.ID != 1, nil
	}

	p := New(Config{QueueCapacity: 4}, store, b, discardLogger(),
		WithChecks(rejectFirst, approve))

	events, stop := b.Events.Subscribe()
	defer stop()

	p.Start(reg)
	for id := int64(1); id <= 2; id++ {
		if err := p.Submit(context.Background(), testOrder(id)); err != nil {
			t.Fatalf("Submit(%d) error = %v", id, err)
		}
	}

	seen := awaitTerminal(t, events, 1, 2)

	var sawSystemError bool
	for _, e := range seen {
		if _, ok := e.(domain.SystemError); ok {
			sawSystemError = true
		}
	}
	if !sawSystemError {
		t.Error("no SystemError event for the rejected order")
	}

	if got := store.transitions(1); len(got) == 0 || got[len(got)-1] != order.StatusCancelled {
		t.Errorf("order 1 transitions = %v, want to end CANCELLED", got)
	}
	if got := store.transitions(2); len(got) == 0 || got[len(got)-1] != order.StatusCompleted {
		t.Errorf("order 2 transitions = %v, want to end COMPLETED", got)
	}

	status := p.Status()
	if status.Processed != 1 || status.Failed != 1 {
		t.Errorf("Status = %+v, want 1 processed, 1 failed", status)
	}
}

func TestPipeline_PanicInProcessingDoesNotStopWorker(t *testing.T) {
	t.Parallel()

	store := newFakeOrderStore()
	b := bus.New()
	reg := scopes.NewRegistry(discardLogger())
	defer func() { _ = reg.Shutdown(time.Second) }()

	panicFirst := func(_ context.Context, o order.Order) (bool, error) {
		if o.ID == 1 {
			panic("inventory system exploded")
		}
		return true, nil
	}

	p := New(Config{QueueCapacity: 4}, store, b, discardLogger(),
		WithChecks(panicFirst, approve))

	events, stop := b.Events.Subscribe()
	defer stop()

	p.Start(reg)
	for id := int64(1); id <= 2; id++ {
		if err := p.Submit(context.Background(), testOrder(id)); err != nil {
			t.Fatalf("Submit(%d) error = %v", id, err)
		}
	}

	awaitTerminal(t, events, 1, 2)

	if !p.Healthy() {
		t.Error("Healthy() = false after a per-order panic, want the worker alive")
	}

	state := b.OrderState.Current()
	if state.Phase != order.PhaseCompleted || state.OrderID != 2 {
		t.Errorf("final state = %+v, want order 2 completed", state)
	}
	if got := store.transitions(1); len(got) == 0 || got[len(got)-1] != order.StatusCancelled {
		t.Errorf("order 1 transitions = %v, want to end CANCELLED", got)
	}
}

func TestPipeline_SubmitAfterShutdownFails(t *testing.T) {
	t.Parallel()

	store := newFakeOrderStore()
	b := bus.New()

	p := New(Config{QueueCapacity: 1}, store, b, discardLogger(),
		WithChecks(approve, approve))

	p.Shutdown()
	p.Shutdown() // idempotent

	err := p.Submit(context.Background(), testOrder(1))
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("Submit after shutdown error = %v, want ErrClosed", err)
	}
}

func TestPipeline_SubmitBackpressureHonorsContext(t *testing.T) {
	t.Parallel()

	store := newFakeOrderStore()
	b := bus.New()

	// No worker started: the single queue slot fills and stays full.
	p := New(Config{QueueCapacity: 1}, store, b, discardLogger(),
		WithChecks(approve, approve))

	if err := p.Submit(context.Background(), testOrder(1)); err != nil {
		t.Fatalf("first Submit error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := p.Submit(ctx, testOrder(2))
	if !errors.Is(err, domain.ErrAdmissionTimeout) {
		t.Fatalf("blocked Submit error = %v, want ErrAdmissionTimeout", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("blocked Submit error = %v, want to wrap the context error", err)
	}
}

func TestPipeline_ShutdownDrainsQueuedOrders(t *testing.T) {
	t.Parallel()

	store := newFakeOrderStore()
	b := bus.New()
	reg := scopes.NewRegistry(discardLogger())
	defer func() { _ = reg.Shutdown(time.Second) }()

	p := New(Config{QueueCapacity: 4}, store, b, discardLogger(),
		WithChecks(approve, approve))

	events, stop := b.Events.Subscribe()
	defer stop()

	for id := int64(1); id <= 3; id++ {
		if err := p.Submit(context.Background(), testOrder(id)); err != nil {
			t.Fatalf("Submit(%d) error = %v", id, err)
		}
	}

	p.Shutdown()
	p.Start(reg)

	awaitTerminal(t, events, 1, 2, 3)

	for id := int64(1); id <= 3; id++ {
		if got := store.transitions(id); len(got) == 0 || got[len(got)-1] != order.StatusCompleted {
			t.Errorf("order %d transitions = %v, want to end COMPLETED", id, got)
		}
	}

	// The worker exits after the drain; liveness eventually reflects it.
	deadline := time.After(2 * time.Second)
	for p.Healthy() {
		select {
		case <-deadline:
			t.Fatal("worker still reported healthy after drain-out")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestPipeline_ProgressMilestonesInOrder(t *testing.T) {
	t.Parallel()

	store := newFakeOrderStore()
	b := bus.New()
	reg := scopes.NewRegistry(discardLogger())
	defer func() { _ = reg.Shutdown(time.Second) }()

	states, stopStates := b.OrderState.Subscribe()
	defer stopStates()

	p := New(Config{QueueCapacity: 1}, store, b, discardLogger(),
		WithChecks(approve, approve))

	// Submit before starting the worker so the progress-0 update from
	// submission is ordered ahead of the worker's milestones.
	if err := p.Submit(context.Background(), testOrder(1)); err != nil {
		t.Fatalf("Submit error = %v", err)
	}
	p.Start(reg)

	var progress []int
	deadline := time.After(5 * time.Second)
	for {
		select {
		case s := <-states:
			if s.Phase == order.PhaseIdle {
				continue // the seed value from attach time
			}
			if s.Phase == order.PhaseProcessing {
				progress = append(progress, s.Progress)
				continue
			}
			if s.Phase != order.PhaseCompleted {
				t.Fatalf("unexpected state %+v", s)
			}
			want := []int{0, 30, 60, 90}
			if len(progress) != len(want) {
				t.Fatalf("progress milestones = %v, want %v", progress, want)
			}
			for i := range want {
				if progress[i] != want[i] {
					t.Fatalf("progress milestones = %v, want %v", progress, want)
				}
			}
			return
		case <-deadline:
			t.Fatalf("timed out waiting for completion, progress so far %v", progress)
		}
	}
}

func TestPipeline_StoreFailureOnCompletionFailsOrder(t *testing.T) {
	t.Parallel()

	store := newFakeOrderStore()
	store.failOn = func(_ int64, status order.Status) error {
		if status == order.StatusCompleted {
			return fmt.Errorf("write failed: %w", domain.ErrTransient)
		}
		return nil
	}
	b := bus.New()
	reg := scopes.NewRegistry(discardLogger())
	defer func() { _ = reg.Shutdown(time.Second) }()

	p := New(Config{QueueCapacity: 1}, store, b, discardLogger(),
		WithChecks(approve, approve))

	events, stop := b.Events.Subscribe()
	defer stop()

	p.Start(reg)
	if err := p.Submit(context.Background(), testOrder(1)); err != nil {
		t.Fatalf("Submit error = %v", err)
	}

	awaitTerminal(t, events, 1)

	state := b.OrderState.Current()
	if state.Phase != order.PhaseError {
		t.Fatalf("final state = %+v, want error phase", state)
	}
	if !errors.Is(state.Err, domain.ErrTransient) {
		t.Errorf("state error = %v, want to wrap the store failure", state.Err)
	}
}
