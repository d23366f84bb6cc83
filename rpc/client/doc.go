// Package client implements the client side of the RPC system.
//
// A Dispatcher owns one connection to a server socket. Calls are written as
// request frames tagged with a correlation id that is unique among the calls
// still pending on that Dispatcher; a background goroutine reads response
// frames and resolves the matching Future. Responses may arrive in any order.
//
// Usage Example:
//
//	d, err := client.Dial(ctx, "/run/app/rpc.sock")
//	if err != nil {
//	  return err // wraps common.ErrConnection
//	}
//	defer d.Close()
//
//	g, err := client.Call(ctx, d, demo.Hurt, contract.Pack2(demo.Goblin{Health: 20, Hungry: true}, 23))
//
//	// or without waiting right away
//	f := client.Go(d, demo.Add, contract.Pack2(1, 2))
//	sum, err := f.Await(ctx)
//
// Error Handling:
//
//   - Per-call failures reported by the server are *common.RemoteError values;
//     use errors.Is with common.ErrUnknownMethod, common.ErrHandlerFailed, ...
//
//   - Arguments larger than the configured maximum fail locally with
//     common.ErrOversizedPayload before anything is written.
//
//   - When the connection ends every pending call fails with
//     common.ErrConnectionClosed, and so does every later call.
//
// There is no timeout and no retry in the core: pass a context with a deadline
// to Await or Call. A call whose Await gave up still completes in the
// background and its response is dropped.
package client
