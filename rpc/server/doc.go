// Package server implements the server side of the RPC system: the handler table
// that binds declared methods to implementations, and the server loop that
// serves request frames on a Unix socket.
//
// Key Components:
//
//   - HandlerTable: maps method ids to type-erased handlers. Bind checks at
//     compile time (generics) that an implementation matches the declared
//     argument and return types, and at initialization time that the method is
//     declared in the table's registry. The table is sealed when the server
//     starts and is read without locks afterwards.
//
//   - Server: accepts connections and serves each one with a reader goroutine,
//     up to MaxInFlightPerConn concurrently running handlers, and a single writer
//     goroutine fed through a lock-free MPSC queue. Responses carry the
//     correlation id of their request and may be written out of order; set
//     MaxInFlightPerConn to 1 to answer strictly in request order.
//
//   - Middleware: wraps handler invocation. Built-ins cover logging, rate
//     limiting (golang.org/x/time/rate), handler timeouts and VictoriaMetrics
//     metrics.
//
// Failures of a single call (unknown method, malformed arguments, handler error
// or panic, unserializable or oversized return value, rate limit) are sent to the
// caller as err-responses and never close the connection. Framing errors and
// write failures close the affected connection only.
//
// Usage Example:
//
//	table := server.NewHandlerTable(nil, serializer.NewMsgPackSerializer())
//	server.MustBind(table, demo.Hurt, func(ctx context.Context, args contract.Args2[demo.Goblin, int]) (demo.Goblin, error) {
//	  g := args.First
//	  g.Health -= args.Second
//	  return g, nil
//	})
//
//	s := server.NewServer(common.ServerConfig{Endpoint: "/run/app/rpc.sock"}, table, nil)
//	if err := s.Serve(ctx); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Thread Safety:
//
//	Bind must be called before Serve. Serve may be called only once; Shutdown
//	may be called from any goroutine.
package server
