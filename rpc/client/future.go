package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/ValentinKolb/sockrpc/rpc/common"
	"github.com/ValentinKolb/sockrpc/rpc/contract"
)

// --------------------------------------------------------------------------
// Pending Call
// --------------------------------------------------------------------------

// pendingCall is the completion handle of one in-flight call. It is resolved
// exactly once: by the read loop when the matching response arrives, or by the
// connection teardown. Whoever removes it from the pending map resolves it.
type pendingCall struct {
	done    chan struct{}
	payload []byte
	err     error
}

func newPendingCall() *pendingCall {
	return &pendingCall{done: make(chan struct{})}
}

// failedCall returns an already resolved call
func failedCall(err error) *pendingCall {
	c := newPendingCall()
	c.resolve(nil, err)
	return c
}

func (c *pendingCall) resolve(payload []byte, err error) {
	c.payload, c.err = payload, err
	close(c.done)
}

// --------------------------------------------------------------------------
// Future
// --------------------------------------------------------------------------

// Future is the result of a call that may not have arrived yet. Abandoning a
// future is allowed: nothing is sent to the server and the response is dropped
// when it arrives.
type Future[R any] struct {
	call   *pendingCall
	decode func(payload []byte) (R, error)

	once  sync.Once
	value R
	err   error
}

func newFuture[R any](call *pendingCall, decode func(payload []byte) (R, error)) *Future[R] {
	return &Future[R]{call: call, decode: decode}
}

// Done is closed once the outcome of the call is known
func (f *Future[R]) Done() <-chan struct{} {
	return f.call.done
}

// Await waits for the outcome of the call or for ctx. A cancelled ctx only stops
// waiting; the call itself is not cancelled.
func (f *Future[R]) Await(ctx context.Context) (R, error) {
	select {
	case <-f.call.done:
		return f.result()
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// result decodes the payload once
func (f *Future[R]) result() (R, error) {
	f.once.Do(func() {
		if f.call.err != nil {
			f.err = f.call.err
			return
		}
		f.value, f.err = f.decode(f.call.payload)
	})
	return f.value, f.err
}

// --------------------------------------------------------------------------
// Typed Calls
// --------------------------------------------------------------------------

// Go starts a call of method and returns its future. Serialization failures and
// oversized arguments resolve the future immediately without any I/O.
func Go[A, R any](d *Dispatcher, method contract.Method[A, R], args A) *Future[R] {
	name := method.Name()
	s := d.serializer

	decode := func(payload []byte) (R, error) {
		var ret R
		if err := s.Deserialize(payload, &ret); err != nil {
			return ret, fmt.Errorf("%w: %s: %v", common.ErrMalformedResponse, name, err)
		}
		return ret, nil
	}

	payload, err := s.Serialize(args)
	if err != nil {
		return newFuture(failedCall(fmt.Errorf("%w: %s: arguments: %v", common.ErrSerializationFailed, name, err)), decode)
	}
	return newFuture(d.invoke(method.ID(), payload), decode)
}

// Call performs a call of method and waits for its result
func Call[A, R any](ctx context.Context, d *Dispatcher, method contract.Method[A, R], args A) (R, error) {
	return Go(d, method, args).Await(ctx)
}
