package runs_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mwhitfield/assay/internal/runs"
)

func TestCommitGuardSerializes(t *testing.T) {
	ctx := context.Background()
	guard := runs.NewCommitGuard()
	sub := uuid.New()

	release, err := guard.Acquire(ctx, sub)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		second, err := guard.Acquire(ctx, sub)
		if err != nil {
			t.Errorf("second Acquire() error = %v", err)
			close(acquired)
			return
		}
		close(acquired)
		second()
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire() succeeded while slot was held")
	case <-time.After(20 * time.Millisecond):
	}

	release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Acquire() never succeeded after release")
	}
}

func TestCommitGuardIndependentSubmissions(t *testing.T) {
	ctx := context.Background()
	guard := runs.NewCommitGuard()

	releaseA, err := guard.Acquire(ctx, uuid.New())
	if err != nil {
		t.Fatalf("Acquire(A) error = %v", err)
	}
	defer releaseA()

	releaseB, err := guard.Acquire(ctx, uuid.New())
	if err != nil {
		t.Fatalf("Acquire(B) error = %v", err)
	}
	releaseB()
}

func TestCommitGuardHonorsContext(t *testing.T) {
	guard := runs.NewCommitGuard()
	sub := uuid.New()

	release, err := guard.Acquire(context.Background(), sub)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := guard.Acquire(ctx, sub); err == nil {
		t.Fatal("Acquire() with expired context succeeded, want context error")
	}
}
