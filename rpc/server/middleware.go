package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ValentinKolb/sockrpc/rpc/common"
	"github.com/ValentinKolb/sockrpc/rpc/contract"
	"github.com/VictoriaMetrics/metrics"
	"golang.org/x/time/rate"
)

// Call is one request as seen by the middleware chain
type Call struct {
	Method        contract.Descriptor
	CorrelationID uint64
	Payload       []byte

	handler *Handler
	// detached counts goroutines still working on the call after its
	// response was produced. The connection keeps the call's in-flight slot
	// until they are done.
	detached *sync.WaitGroup
}

// detach runs fn in a goroutine that is accounted to the call
func (c *Call) detach(fn func()) {
	if c.detached == nil {
		go fn()
		return
	}
	c.detached.Add(1)
	go func() {
		defer c.detached.Done()
		fn()
	}()
}

// Invoker executes a call and returns the serialized result or a *common.RemoteError
type Invoker func(ctx context.Context, call *Call) ([]byte, error)

// Middleware wraps an Invoker
type Middleware func(next Invoker) Invoker

// Chain combines several middlewares into one. The first middleware is the
// outermost, i.e. it sees the call first.
func Chain(middlewares ...Middleware) Middleware {
	return func(next Invoker) Invoker {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// --------------------------------------------------------------------------
// Built-in Middlewares
// --------------------------------------------------------------------------

// LoggingMiddleware logs every call with its duration at debug level and every
// failed call at warning level
func LoggingMiddleware() Middleware {
	return func(next Invoker) Invoker {
		return func(ctx context.Context, call *Call) ([]byte, error) {
			start := time.Now()
			resp, err := next(ctx, call)
			if err != nil {
				Logger.Warningf("call %d to %s failed after %s: %v", call.CorrelationID, call.Method.Name, time.Since(start), err)
			} else {
				Logger.Debugf("call %d to %s took %s", call.CorrelationID, call.Method.Name, time.Since(start))
			}
			return resp, err
		}
	}
}

// RateLimitMiddleware rejects calls exceeding r calls per second (token bucket
// with the given burst) with a RateLimited error. The limit is shared by all
// connections of the server.
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next Invoker) Invoker {
		return func(ctx context.Context, call *Call) ([]byte, error) {
			if !limiter.Allow() {
				return nil, common.NewRemoteError(common.ErrKindRateLimited, "%s: more than %g calls per second", call.Method.Name, r)
			}
			return next(ctx, call)
		}
	}
}

// TimeoutMiddleware gives every handler a context deadline. A handler that does
// not return in time produces a HandlerFailed error right away. The handler
// goroutine is not killed, it should observe ctx.Done(); until it returns it
// still occupies one of the connection's MaxInFlightPerConn slots.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	type result struct {
		resp []byte
		err  error
	}

	return func(next Invoker) Invoker {
		return func(ctx context.Context, call *Call) ([]byte, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan result, 1)
			call.detach(func() {
				resp, err := next(ctx, call)
				done <- result{resp, err}
			})

			select {
			case r := <-done:
				return r.resp, r.err
			case <-ctx.Done():
				return nil, common.NewRemoteError(common.ErrKindHandlerFailed, "%s: no result after %s: %v", call.Method.Name, timeout, ctx.Err())
			}
		}
	}
}

// MetricsMiddleware counts calls per method and outcome and records call
// durations in VictoriaMetrics histograms. The metrics are registered in the
// global metrics set, see metrics.WritePrometheus.
func MetricsMiddleware() Middleware {
	return func(next Invoker) Invoker {
		return func(ctx context.Context, call *Call) ([]byte, error) {
			start := time.Now()
			resp, err := next(ctx, call)

			outcome := "ok"
			if err != nil {
				outcome = common.KindOf(err).String()
			}
			metrics.GetOrCreateCounter(fmt.Sprintf(`sockrpc_calls_total{method=%q,outcome=%q}`, call.Method.Name, outcome)).Inc()
			metrics.GetOrCreateHistogram(fmt.Sprintf(`sockrpc_call_duration_seconds{method=%q}`, call.Method.Name)).UpdateDuration(start)

			return resp, err
		}
	}
}

// FromConfig returns the middlewares the configuration asks for
func FromConfig(config common.ServerConfig) []Middleware {
	var middlewares []Middleware
	if config.RateLimit > 0 {
		middlewares = append(middlewares, RateLimitMiddleware(config.RateLimit, config.RateBurst))
	}
	if config.HandlerTimeoutSecond > 0 {
		middlewares = append(middlewares, TimeoutMiddleware(config.HandlerTimeout()))
	}
	return middlewares
}
