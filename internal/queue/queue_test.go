package queue

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/models"
)

func command(code, param string) models.Command {
	return models.Command{Codes: []string{code}, Params: []string{param}}
}

func TestQueueFIFO(t *testing.T) {
	q := New(10)
	for i := 0; i < 3; i++ {
		if err := q.Push(command("bi", fmt.Sprint(i))); err != nil {
			t.Fatalf("Push failed: %v", err)
		}
	}

	for i := 0; i < 3; i++ {
		cmd, ok := q.TryPop()
		if !ok {
			t.Fatalf("TryPop #%d returned nothing", i)
		}
		if got, want := cmd.Param(), fmt.Sprint(i); got != want {
			t.Errorf("TryPop #%d param = %q, want %q", i, got, want)
		}
	}

	if _, ok := q.TryPop(); ok {
		t.Error("TryPop on empty queue returned a command")
	}
}

func TestQueueBound(t *testing.T) {
	q := New(2)
	if err := q.Push(command("an", "a")); err != nil {
		t.Fatal(err)
	}
	if err := q.Push(command("an", "b")); err != nil {
		t.Fatal(err)
	}
	if err := q.Push(command("an", "c")); !errors.Is(err, ErrFull) {
		t.Fatalf("Push beyond limit error = %v, want ErrFull", err)
	}
	if got := q.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}

	cmd, _ := q.TryPop()
	if cmd.Param() != "a" {
		t.Errorf("oldest command was dropped, got %q", cmd.Param())
	}
	if err := q.Push(command("an", "c")); err != nil {
		t.Errorf("Push after pop failed: %v", err)
	}
}

func TestTryPopDoesNotWaitForLock(t *testing.T) {
	q := New(0)
	_ = q.Push(command("an", "x"))

	q.mu.Lock()
	_, ok := q.TryPop()
	q.mu.Unlock()

	if ok {
		t.Fatal("TryPop succeeded while the lock was held")
	}
	if _, ok := q.TryPop(); !ok {
		t.Fatal("command lost after contended TryPop")
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := New(0)
	const producers, perProducer = 4, 50

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_ = q.Push(command("an", fmt.Sprintf("%d-%d", p, i)))
			}
		}(p)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for {
		cmd, ok := q.TryPop()
		if !ok {
			break
		}
		if seen[cmd.Param()] {
			t.Fatalf("command %q popped twice", cmd.Param())
		}
		seen[cmd.Param()] = true
	}
	if len(seen) != producers*perProducer {
		t.Errorf("popped %d commands, want %d", len(seen), producers*perProducer)
	}
}
