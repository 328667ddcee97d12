package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dailyledger/internal/core"
	"dailyledger/internal/remote"
	"dailyledger/internal/remote/memory"
)

type failingWriter struct{}

func (failingWriter) Put(context.Context, remote.Document) error {
	return errors.New("network unreachable")
}

// blockingWriter holds every Put until release is closed.
type blockingWriter struct {
	release chan struct{}
	mu      sync.Mutex
	done    int
}

func (w *blockingWriter) Put(ctx context.Context, _ remote.Document) error {
	select {
	case <-w.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	w.mu.Lock()
	w.done++
	w.mu.Unlock()
	return nil
}

func sampleTx(id string) core.Transaction {
	return core.Transaction{
		ID:     id,
		Date:   time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		Type:   core.Expense,
		Amount: decimal.RequireFromString("12.50"),
		Note:   "coffee",
	}
}

func TestMirrorDispatcher_PushesUnderUser(t *testing.T) {
	sink := memory.New()
	d := NewMirrorDispatcher(sink, time.Second, nil)
	d.SetUser("user-1")

	d.Mirror(sampleTx("a"))
	d.Mirror(sampleTx("b"))
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if got := len(sink.List("user-1")); got != 2 {
		t.Fatalf("expected 2 documents, got %d", got)
	}
	doc, ok := sink.Get("user-1", "a")
	if !ok {
		t.Fatal("document a missing")
	}
	if doc.Amount.String() != "12.5" || doc.Type != "EXPENSE" {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if sent, failed := d.Stats(); sent != 2 || failed != 0 {
		t.Fatalf("Stats = %d/%d", sent, failed)
	}
}

func TestMirrorDispatcher_SkipsWithoutUser(t *testing.T) {
	sink := memory.New()
	d := NewMirrorDispatcher(sink, time.Second, nil)

	d.Mirror(sampleTx("a"))
	_ = d.Close(context.Background())

	if sink.Puts() != 0 {
		t.Fatal("nothing should be mirrored while signed out")
	}
}

func TestMirrorDispatcher_FailureIsCounted(t *testing.T) {
	d := NewMirrorDispatcher(failingWriter{}, time.Second, nil)
	d.SetUser("user-1")

	d.Mirror(sampleTx("a"))
	_ = d.Close(context.Background())

	if sent, failed := d.Stats(); sent != 0 || failed != 1 {
		t.Fatalf("Stats = %d/%d, want 0/1", sent, failed)
	}
}

func TestMirrorDispatcher_DoesNotBlockCaller(t *testing.T) {
	w := &blockingWriter{release: make(chan struct{})}
	d := NewMirrorDispatcher(w, 5*time.Second, nil)
	d.SetUser("user-1")

	start := time.Now()
	d.Mirror(sampleTx("a"))
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("Mirror should return immediately")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Close should time out while a push is in flight, got %v", err)
	}

	close(w.release)
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if w.done != 1 {
		t.Fatalf("expected the push to complete, done=%d", w.done)
	}
}

func TestMirrorDispatcher_ClosedDropsNewWork(t *testing.T) {
	sink := memory.New()
	d := NewMirrorDispatcher(sink, time.Second, nil)
	d.SetUser("user-1")
	_ = d.Close(context.Background())

	d.Mirror(sampleTx("late"))
	if sink.Puts() != 0 {
		t.Fatal("closed dispatcher must not push")
	}
}

func TestMirrorDispatcher_NilSafe(t *testing.T) {
	var d *MirrorDispatcher
	d.Mirror(sampleTx("a"))
}
