// Package util provides a lock-free Multi-Producer Single-Consumer (MPSC) queue.
//
// Features and Guarantees:
//
//   - Lock-Free pushes: producers append with atomic CAS operations only
//   - Unbounded Size: the queue grows as needed, limited only by available memory
//   - Single Consumer: exactly one goroutine drains values through Recv()
//   - Drain on Close: values pushed before Close() are still delivered, then the
//     Recv() channel is closed
//   - No Strict FIFO across producers: concurrent pushes are ordered by which
//     producer wins the CAS, pushes of a single producer keep their order
package util

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// node is a single element of the linked list
type node[T any] struct {
	value T
	next  atomic.Pointer[node[T]]
}

// MPSC is a lock-free multi-producer single-consumer queue.
// The zero value is not usable, create queues with NewMPSC.
type MPSC[T any] struct {
	head   atomic.Pointer[node[T]]
	tail   atomic.Pointer[node[T]]
	out    chan T
	closed atomic.Bool
	done   chan struct{}

	// mu/cond park the consumer while the list is empty
	mu   sync.Mutex
	cond *sync.Cond
}

// NewMPSC creates a queue and starts its delivery goroutine
func NewMPSC[T any]() *MPSC[T] {
	sentinel := &node[T]{}

	q := &MPSC[T]{
		out:  make(chan T),
		done: make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	go q.consume()
	return q
}

// Push appends a value. It returns false if the queue is already closed.
//
// Thread-safety: Push may be called from any number of goroutines.
func (q *MPSC[T]) Push(value T) bool {
	if q.closed.Load() {
		return false
	}

	newNode := &node[T]{value: value}
	var backoff uint8

	for {
		tailNode := q.tail.Load()
		next := tailNode.next.Load()

		if next == nil {
			if tailNode.next.CompareAndSwap(nil, newNode) {
				// a failed CAS here means another producer already advanced the tail
				q.tail.CompareAndSwap(tailNode, newNode)
				q.wake()
				return true
			}
		} else {
			// help a producer that appended but has not moved the tail yet
			q.tail.CompareAndSwap(tailNode, next)
		}

		// spin a little at low contention, yield at high contention
		if backoff < 10 {
			backoff++
			for i := 0; i < 1<<backoff; i++ {
				runtime.Gosched()
			}
		}
		runtime.Gosched()
	}
}

// Recv returns the channel the single consumer reads from. It is closed once the
// queue is closed and every pushed value has been delivered.
func (q *MPSC[T]) Recv() <-chan T {
	return q.out
}

// Close stops accepting new values. Values already pushed are still delivered.
// A Push running concurrently with Close may be dropped even if it returns true,
// so producers should be finished before the queue is closed.
func (q *MPSC[T]) Close() {
	q.closed.Store(true)
	q.wake()
}

// Done is closed after the delivery goroutine has exited
func (q *MPSC[T]) Done() <-chan struct{} {
	return q.done
}

// IsClosed reports whether Close has been called
func (q *MPSC[T]) IsClosed() bool {
	return q.closed.Load()
}

// Len returns an approximate number of queued values. O(n), debugging only.
func (q *MPSC[T]) Len() int {
	count := 0
	for current := q.head.Load().next.Load(); current != nil; current = current.next.Load() {
		count++
	}
	return count
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// wake signals the consumer while holding mu, so the signal cannot fall between
// the consumer's emptiness check and its call to Wait
func (q *MPSC[T]) wake() {
	q.mu.Lock()
	q.cond.Signal()
	q.mu.Unlock()
}

// consume moves values from the linked list to the output channel
func (q *MPSC[T]) consume() {
	defer close(q.done)
	defer close(q.out)

	var zero T
	for {
		delivered := false

		for {
			head := q.head.Load()
			next := head.next.Load()
			if next == nil {
				break
			}
			delivered = true

			value := next.value
			q.head.Store(next)
			q.out <- value

			// the old head is unreachable now, drop the value reference for the gc
			next.value = zero
		}

		if !delivered && q.closed.Load() {
			return
		}

		if !delivered {
			q.mu.Lock()
			if q.head.Load().next.Load() == nil && !q.closed.Load() {
				q.cond.Wait()
			}
			q.mu.Unlock()
		}
	}
}
