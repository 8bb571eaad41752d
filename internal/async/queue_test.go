package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joseph-ayodele/refund-audit/internal/common"
)

func TestQueueDrainsOnShutdown(t *testing.T) {
	var n atomic.Int32
	q := NewProcessorQueue(func(ctx context.Context, job Job) error {
		time.Sleep(time.Millisecond)
		n.Add(1)
		return nil
	}, nil, WithWorkers(2), WithQueueSize(4))

	for i := 0; i < 20; i++ {
		if err := q.Enqueue(context.Background(), NewJob("f.png", "s")); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	q.Shutdown(context.Background())
	if got := n.Load(); got != 20 {
		t.Fatalf("expected 20 processed got %d", got)
	}
	if err := q.Enqueue(context.Background(), NewJob("late.png", "s")); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed got %v", err)
	}
	q.Shutdown(context.Background())
}

func TestQueueAppliesTimeoutAndSurvivesPanics(t *testing.T) {
	var mu sync.Mutex
	var deadlines []bool
	q := NewProcessorQueue(func(ctx context.Context, job Job) error {
		_, ok := ctx.Deadline()
		mu.Lock()
		deadlines = append(deadlines, ok)
		mu.Unlock()
		if job.Path == "panic" {
			panic("boom")
		}
		return errors.New("failed")
	}, nil, WithWorkers(1), WithProcessTimeout(time.Second))

	for _, p := range []string{"panic", "error", "ok"} {
		if err := q.Enqueue(context.Background(), NewJob(p, "")); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	q.Shutdown(context.Background())
	if len(deadlines) != 3 {
		t.Fatalf("expected 3 jobs handled got %d", len(deadlines))
	}
	for _, ok := range deadlines {
		if !ok {
			t.Fatalf("expected a deadline on every job context")
		}
	}
}

func TestEnqueueRespectsContextWhenFull(t *testing.T) {
	release := make(chan struct{})
	q := NewProcessorQueue(func(ctx context.Context, job Job) error {
		<-release
		return nil
	}, nil, WithWorkers(1), WithQueueSize(1))

	_ = q.Enqueue(context.Background(), NewJob("a", ""))
	// wait for the worker to pick up a, then fill the single slot
	deadline := time.Now().Add(2 * time.Second)
	for len(q.ch) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	_ = q.Enqueue(context.Background(), NewJob("b", ""))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := q.Enqueue(ctx, NewJob("d", "")); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded got %v", err)
	}
	close(release)
	q.Shutdown(context.Background())
}

func TestJobContextCarriesIDs(t *testing.T) {
	got := make(chan [2]string, 1)
	q := NewProcessorQueue(func(ctx context.Context, job Job) error {
		got <- [2]string{common.RequestIDFromContext(ctx), common.SessionIDFromContext(ctx)}
		return nil
	}, nil, WithWorkers(1))
	job := NewJob("f.png", "session-1")
	if err := q.Enqueue(context.Background(), job); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	q.Shutdown(context.Background())
	ids := <-got
	if ids[0] != job.ID.String() || ids[1] != "session-1" {
		t.Fatalf("unexpected context ids %v", ids)
	}
}
