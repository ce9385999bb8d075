package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"transcript-restream-service/internal/models"
)

func eventFixture(text string) models.BridgeEvent {
	return models.BridgeEvent{Kind: "transcript", Timestamp: 1, Speaker: "S", Text: text}
}

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue()
	for _, s := range []string{"a", "b", "c"} {
		if !q.Push(eventFixture(s)) {
			t.Fatal("push rejected on open queue")
		}
	}
	if q.Len() != 3 {
		t.Errorf("expected len 3, got %d", q.Len())
	}
	for _, want := range []string{"a", "b", "c"} {
		ev, err := q.Pop(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if ev.Text != want {
			t.Errorf("expected %s, got %s", want, ev.Text)
		}
	}
}

func TestQueue_PushNeverBlocks(t *testing.T) {
	q := NewQueue()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100000; i++ {
			q.Push(eventFixture("x"))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("push blocked without a consumer")
	}
	if q.Len() != 100000 {
		t.Errorf("expected 100000 queued, got %d", q.Len())
	}
}

func TestQueue_PopBlocksUntilPush(t *testing.T) {
	q := NewQueue()
	got := make(chan string, 1)
	go func() {
		ev, err := q.Pop(context.Background())
		if err == nil {
			got <- ev.Text
		}
	}()

	time.Sleep(20 * time.Millisecond)
	q.Push(eventFixture("late"))

	select {
	case text := <-got:
		if text != "late" {
			t.Errorf("expected late, got %s", text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pop did not wake on push")
	}
}

func TestQueue_CloseDrainsRemaining(t *testing.T) {
	q := NewQueue()
	q.Push(eventFixture("one"))
	q.Push(eventFixture("two"))
	q.Close()
	q.Close()

	if q.Push(eventFixture("three")) {
		t.Error("expected push after close to be rejected")
	}
	for _, want := range []string{"one", "two"} {
		ev, err := q.Pop(context.Background())
		if err != nil || ev.Text != want {
			t.Errorf("expected %s, got %q (%v)", want, ev.Text, err)
		}
	}
	if _, err := q.Pop(context.Background()); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("expected ErrQueueClosed, got %v", err)
	}
}

func TestQueue_CloseWakesWaiters(t *testing.T) {
	q := NewQueue()
	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := q.Pop(context.Background())
			errs <- err
		}()
	}
	time.Sleep(20 * time.Millisecond)
	q.Close()
	wg.Wait()
	close(errs)
	for err := range errs {
		if !errors.Is(err, ErrQueueClosed) {
			t.Errorf("expected ErrQueueClosed, got %v", err)
		}
	}
}

func TestQueue_BurstWakesEveryWaiter(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	const waiters = 3
	got := make(chan string, waiters)
	errs := make(chan error, waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			ev, err := q.Pop(ctx)
			if err != nil {
				errs <- err
				return
			}
			got <- ev.Text
		}()
	}
	time.Sleep(20 * time.Millisecond)

	// Back-to-back pushes collapse into a single buffered wakeup.
	for _, text := range []string{"a", "b", "c"} {
		q.Push(eventFixture(text))
	}

	seen := map[string]bool{}
	for i := 0; i < waiters; i++ {
		select {
		case text := <-got:
			seen[text] = true
		case err := <-errs:
			t.Fatalf("waiter %d starved with events queued: %v", i, err)
		}
	}
	if len(seen) != waiters {
		t.Errorf("expected %d distinct events, got %v", waiters, seen)
	}
	if q.Len() != 0 {
		t.Errorf("expected empty queue, got %d", q.Len())
	}
}

func TestQueue_PopHonoursContext(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := q.Pop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestAdapter_HandleTransitions(t *testing.T) {
	tests := []struct {
		name  string
		from  State
		frame string
		want  State
	}{
		{"auth success starts streaming", StateAuthenticating, `{"type":"auth.success"}`, StateStreaming},
		{"transcription implies streaming", StateAuthenticating, `{"type":"transcription.broadcast","data":{"type":"t","timestamp":1,"speaker":"A","text":"x"}}`, StateStreaming},
		{"connection established keeps state", StateAuthenticating, `{"type":"connection.established"}`, StateAuthenticating},
		{"connection error keeps streaming", StateStreaming, `{"type":"connection.error","data":{}}`, StateStreaming},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAdapter(Config{}, &scriptedSource{}, NewQueue())
			a.setState(tt.from)
			if err := a.handle([]byte(tt.frame)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if a.State() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, a.State())
			}
		})
	}
}
