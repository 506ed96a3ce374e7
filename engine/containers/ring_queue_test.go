package containers

import (
	"testing"

	"github.com/cockroachdb/errors"
)

func TestRingQueueEnqueueDequeue(t *testing.T) {
	rq := NewRingQueue[int](3)
	for i := 1; i <= 3; i++ {
		if err := rq.Enqueue(i); err != nil {
			t.Fatal(err)
		}
	}
	if err := rq.Enqueue(4); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	for want := 1; want <= 3; want++ {
		got, err := rq.Dequeue()
		if err != nil || got != want {
			t.Fatalf("dequeue: got %d (%v), want %d", got, err, want)
		}
	}
	if _, err := rq.Dequeue(); !errors.Is(err, ErrQueueEmpty) {
		t.Fatalf("expected ErrQueueEmpty, got %v", err)
	}
}

func TestRingQueuePushEvictsOldest(t *testing.T) {
	rq := NewRingQueue[string](2)
	rq.Push("a")
	rq.Push("b")
	rq.Push("c")

	if rq.Len() != 2 {
		t.Fatalf("expected len 2, got %d", rq.Len())
	}
	if rq.At(0) != "b" || rq.At(1) != "c" {
		t.Fatalf("unexpected contents %q %q", rq.At(0), rq.At(1))
	}
	front, _ := rq.Peek()
	if front != "b" {
		t.Fatalf("peek: got %q", front)
	}

	rq.Clear()
	if !rq.IsEmpty() || rq.Cap() != 2 {
		t.Fatal("clear should empty the queue and keep capacity")
	}
}
