package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jsamuelsen11/orderflow/internal/adapters/memory"
	"github.com/jsamuelsen11/orderflow/internal/domain"
	"github.com/jsamuelsen11/orderflow/internal/domain/user"
)

func TestUserStore_Seeded(t *testing.T) {
	t.Parallel()

	s := memory.NewUserStore(memory.Config{})

	users, err := s.FindAll(context.Background())
	if err != nil {
		t.Fatalf("FindAll error: %v", err)
	}

	if len(users) != 2 {
		t.Fatalf("len(users) = %d, want 2 seeded users", len(users))
	}
	if users[0].ID != 1 || users[1].ID != 2 {
		t.Errorf("seed IDs = %d, %d, want 1, 2", users[0].ID, users[1].ID)
	}
	if users[0].Name != "Alice" {
		t.Errorf("users[0].Name = %q, want \"Alice\"", users[0].Name)
	}
}

func TestUserStore_CreateAssignsSequentialIDs(t *testing.T) {
	t.Parallel()

	s := memory.NewUserStore(memory.Config{})

	created, err := s.Create(context.Background(), &user.User{Name: "Carol", Email: "carol@example.com"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if created.ID != 3 {
		t.Errorf("created.ID = %d, want 3 (after two seeds)", created.ID)
	}
	if created.CreatedAt.IsZero() {
		t.Error("created.CreatedAt is zero, want server-assigned timestamp")
	}

	got, err := s.FindByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("FindByID(%d) error: %v", created.ID, err)
	}
	if got.Name != "Carol" {
		t.Errorf("got.Name = %q, want \"Carol\"", got.Name)
	}
}

func TestUserStore_FindByID_NotFound(t *testing.T) {
	t.Parallel()

	s := memory.NewUserStore(memory.Config{})

	_, err := s.FindByID(context.Background(), 999)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("FindByID(999) error = %v, want domain.ErrNotFound", err)
	}
}

func TestUserStore_FindAllReturnsCopy(t *testing.T) {
	t.Parallel()

	s := memory.NewUserStore(memory.Config{})
	ctx := context.Background()

	first, err := s.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll error: %v", err)
	}
	first[0].Name = "mutated"

	second, err := s.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll error: %v", err)
	}
	if second[0].Name == "mutated" {
		t.Error("mutation of a returned slice leaked into the store")
	}
}

func TestUserStore_LatencyRespectsContext(t *testing.T) {
	t.Parallel()

	s := memory.NewUserStore(memory.Config{Latency: 5 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := s.FindAll(ctx)
	elapsed := time.Since(start)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("FindAll error = %v, want context.DeadlineExceeded", err)
	}
	if elapsed > time.Second {
		t.Errorf("FindAll took %v, want prompt return on context expiry", elapsed)
	}
}

func TestUserStore_FailureInjection(t *testing.T) {
	t.Parallel()

	// rand.Float64() < 1.0 always holds, so every call fails.
	s := memory.NewUserStore(memory.Config{FailureRate: 1.0})

	_, err := s.FindAll(context.Background())
	if !errors.Is(err, domain.ErrTransient) {
		t.Errorf("FindAll error = %v, want domain.ErrTransient", err)
	}
}
