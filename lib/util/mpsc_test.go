package util

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// TestBasicOperations tests basic push and consume functionality
func TestBasicOperations(t *testing.T) {
	q := NewMPSC[int]()
	defer q.Close()

	for i := 0; i < 10; i++ {
		if !q.Push(i) {
			t.Fatalf("Failed to push item %d", i)
		}
	}

	for i := 0; i < 10; i++ {
		select {
		case val := <-q.Recv():
			if val != i {
				t.Errorf("Expected %d, got %v", i, val)
			}
		case <-time.After(time.Second):
			t.Fatalf("Timeout waiting for item %d", i)
		}
	}

	select {
	case val := <-q.Recv():
		t.Errorf("Queue should be empty, but got %v", val)
	case <-time.After(10 * time.Millisecond):
	}
}

// TestCloseDrainsQueue tests that values pushed before Close are still delivered
func TestCloseDrainsQueue(t *testing.T) {
	q := NewMPSC[string]()

	for i := 0; i < 5; i++ {
		q.Push(fmt.Sprintf("item-%d", i))
	}
	q.Close()

	if q.Push("late") {
		t.Errorf("Push on a closed queue should return false")
	}
	if !q.IsClosed() {
		t.Errorf("IsClosed() = false after Close()")
	}

	var got []string
	for v := range q.Recv() {
		got = append(got, v)
	}

	if len(got) != 5 {
		t.Fatalf("Expected 5 drained items, got %d (%v)", len(got), got)
	}
	for i, v := range got {
		if v != fmt.Sprintf("item-%d", i) {
			t.Errorf("Item %d = %q, want %q", i, v, fmt.Sprintf("item-%d", i))
		}
	}

	select {
	case <-q.Done():
	case <-time.After(time.Second):
		t.Fatalf("Consumer goroutine did not exit after Close")
	}
}

// TestCloseEmptyQueue tests that closing an idle queue wakes the parked consumer
func TestCloseEmptyQueue(t *testing.T) {
	q := NewMPSC[int]()

	// give the consumer time to park on the condition variable
	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case _, ok := <-q.Recv():
		if ok {
			t.Errorf("Expected closed channel, got a value")
		}
	case <-time.After(time.Second):
		t.Fatalf("Recv channel was not closed")
	}
}

// TestConcurrentProducers verifies the queue works correctly with multiple producers
func TestConcurrentProducers(t *testing.T) {
	q := NewMPSC[string]()

	const numProducers = 10
	const itemsPerProducer = 1000
	totalItems := numProducers * itemsPerProducer

	received := make(map[string]bool, totalItems)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for v := range q.Recv() {
			received[v] = true
			if len(received) == totalItems {
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for p := 0; p < numProducers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < itemsPerProducer; i++ {
				q.Push(fmt.Sprintf("%d-%d", p, i))
			}
		}(p)
	}
	wg.Wait()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Timeout, received %d of %d items", len(received), totalItems)
	}
	q.Close()

	if len(received) != totalItems {
		t.Errorf("Expected %d items, got %d", totalItems, len(received))
	}
}

// TestProducerOrdering tests that the pushes of a single producer keep their order
func TestProducerOrdering(t *testing.T) {
	q := NewMPSC[int]()
	const n = 5000

	go func() {
		for i := 0; i < n; i++ {
			q.Push(i)
		}
		q.Close()
	}()

	expected := 0
	for v := range q.Recv() {
		if v != expected {
			t.Fatalf("Out of order: got %d, want %d", v, expected)
		}
		expected++
	}
	if expected != n {
		t.Errorf("Received %d items, want %d", expected, n)
	}
}

func BenchmarkMultiProducer(b *testing.B) {
	q := NewMPSC[int]()
	defer q.Close()

	go func() {
		for range q.Recv() {
		}
	}()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			q.Push(i)
			i++
		}
	})
}
