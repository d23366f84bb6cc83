package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/ValentinKolb/sockrpc/lib/util"
	"github.com/ValentinKolb/sockrpc/rpc/common"
	"github.com/ValentinKolb/sockrpc/rpc/transport"
	"github.com/ValentinKolb/sockrpc/rpc/transport/unix"
	"github.com/ValentinKolb/sockrpc/rpc/wire"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("rpc/server")

var (
	connectionsTotal  = metrics.NewCounter("sockrpc_connections_total")
	framingErrorTotal = metrics.NewCounter("sockrpc_framing_errors_total")
	writeErrorTotal   = metrics.NewCounter("sockrpc_write_errors_total")
)

// acceptRetryDelay is the pause after a temporary accept error
const acceptRetryDelay = 50 * time.Millisecond

// --------------------------------------------------------------------------
// Server
// --------------------------------------------------------------------------

// Server accepts connections on a socket and dispatches their request frames
// through a HandlerTable. Connections are served concurrently and
// independently; a failing connection never affects the others.
type Server struct {
	config      common.ServerConfig
	table       *HandlerTable
	connector   transport.IServerConnector
	middlewares []Middleware
	invoke      Invoker

	listener   net.Listener
	listenerMu sync.Mutex
	conns      *xsync.MapOf[uint64, *connection]
	nextConnID atomic.Uint64
	connWg     sync.WaitGroup

	started      atomic.Bool
	ready        chan struct{}
	closing      chan struct{}
	shutdownOnce sync.Once
}

// NewServer creates a server for table. A nil connector listens on a Unix
// socket at config.Endpoint. Middlewares requested by the config (rate limit,
// handler timeout) are installed after the logging middleware.
func NewServer(config common.ServerConfig, table *HandlerTable, connector transport.IServerConnector) *Server {
	config = config.WithDefaults()
	if connector == nil {
		connector = unix.NewServerConnector()
	}

	s := &Server{
		config:    config,
		table:     table,
		connector: connector,
		conns:     xsync.NewMapOf[uint64, *connection](),
		ready:     make(chan struct{}),
		closing:   make(chan struct{}),
	}
	s.middlewares = append([]Middleware{LoggingMiddleware()}, FromConfig(config)...)
	return s
}

// Serve is the one-call form: it serves table on a Unix socket at path until
// ctx is cancelled.
func Serve(ctx context.Context, path string, table *HandlerTable) error {
	return NewServer(common.ServerConfig{Endpoint: path}, table, nil).Serve(ctx)
}

// Use appends middlewares. It must be called before Serve.
func (s *Server) Use(middlewares ...Middleware) {
	s.middlewares = append(s.middlewares, middlewares...)
}

// Serve seals the handler table, listens and serves connections until ctx is
// cancelled or Shutdown is called. It returns after all connections are closed
// and the socket file is removed. Serve may only be called once.
func (s *Server) Serve(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return fmt.Errorf("server already started")
	}
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %v", err)
	}

	s.table.Seal()
	s.invoke = Chain(s.middlewares...)(func(ctx context.Context, call *Call) ([]byte, error) {
		return call.handler.Invoke(ctx, call.Payload)
	})

	listener, err := s.connector.Listen(s.config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %v", err)
	}

	s.listenerMu.Lock()
	select {
	case <-s.closing:
		// shut down before the listener existed
		s.listenerMu.Unlock()
		listener.Close()
		return s.connector.Cleanup(s.config)
	default:
	}
	s.listener = listener
	s.listenerMu.Unlock()
	close(s.ready)

	Logger.Infof("serving %d methods on %s socket %s (max %d in-flight calls per connection)",
		len(s.table.Methods()), s.connector.GetName(), s.config.Endpoint, s.config.MaxInFlightPerConn)

	go func() {
		select {
		case <-ctx.Done():
			s.Shutdown()
		case <-s.closing:
		}
	}()

	acceptErr := s.acceptLoop(ctx)

	// make sure everything is torn down, also when the accept loop failed
	s.Shutdown()
	s.connWg.Wait()

	if err := s.connector.Cleanup(s.config); err != nil {
		Logger.Warningf("failed to clean up %s: %v", s.config.Endpoint, err)
	}
	Logger.Infof("server on %s stopped", s.config.Endpoint)
	return acceptErr
}

// Shutdown stops accepting connections and closes all live connections. The
// contexts of running handlers are cancelled and their responses are dropped.
// It does not wait, Serve returns once the shutdown is complete.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.closing)

		s.listenerMu.Lock()
		if s.listener != nil {
			s.listener.Close()
		}
		s.listenerMu.Unlock()

		s.conns.Range(func(_ uint64, c *connection) bool {
			c.close()
			return true
		})
	})
}

// Ready is closed once the server listens
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the endpoint the server listens on
func (s *Server) Addr() string {
	return s.config.Endpoint
}

// ActiveConnections returns the number of currently served connections
func (s *Server) ActiveConnections() int {
	return s.conns.Size()
}

// acceptLoop accepts connections until the listener is closed
func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closing:
				return nil
			default:
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				Logger.Warningf("accept error: %v", err)
				time.Sleep(acceptRetryDelay)
				continue
			}
			Logger.Errorf("accept error: %v", err)
			return fmt.Errorf("accept failed: %v", err)
		}

		connCtx, cancel := context.WithCancel(ctx)
		c := &connection{
			id:     s.nextConnID.Add(1),
			conn:   conn,
			server: s,
			ctx:    connCtx,
			cancel: cancel,
			out:    util.NewMPSC[wire.Frame](),
			sem:    make(chan struct{}, s.config.MaxInFlightPerConn),
		}

		s.connWg.Add(1)
		s.conns.Store(c.id, c)
		connectionsTotal.Inc()

		// a connection accepted while shutting down is closed right away
		select {
		case <-s.closing:
			c.close()
		default:
		}

		go func() {
			defer s.connWg.Done()
			defer s.conns.Delete(c.id)
			c.serve()
		}()
	}
}

// handle turns one request frame into its response frame. Goroutines the
// middlewares leave running are tracked in detached.
func (s *Server) handle(ctx context.Context, req wire.Frame, detached *sync.WaitGroup) wire.Frame {
	h, ok := s.table.Lookup(req.MethodID)
	if !ok {
		Logger.Warningf("call %d: unknown method %#x", req.CorrelationID, req.MethodID)
		return s.errResponse(req, common.NewRemoteError(common.ErrKindUnknownMethod, "no handler for method id %#x", req.MethodID))
	}

	payload, err := s.invoke(ctx, &Call{
		Method:        h.Method,
		CorrelationID: req.CorrelationID,
		Payload:       req.Payload,
		handler:       h,
		detached:      detached,
	})
	if err != nil {
		var remote *common.RemoteError
		if !errors.As(err, &remote) {
			remote = common.NewRemoteError(common.ErrKindHandlerFailed, "%s: %v", h.Method.Name, err)
		}
		return s.errResponse(req, remote)
	}

	if err := wire.CheckPayload(payload, s.config.MaxPayloadSize); err != nil {
		return s.errResponse(req, common.NewRemoteError(common.ErrKindSerializationFailed, "%s: return value: %v", h.Method.Name, err))
	}
	return wire.NewOkResponse(req, payload)
}

// errResponse builds an err-response and shortens reasons that would not fit
// into a frame
func (s *Server) errResponse(req wire.Frame, failure *common.RemoteError) wire.Frame {
	if limit := int(s.config.MaxPayloadSize) - 1; len(failure.Reason) > limit {
		failure = &common.RemoteError{Kind: failure.Kind, Reason: truncateReason(failure.Reason, limit)}
	}
	return wire.NewErrResponse(req, failure)
}

// truncateReason cuts reason to at most limit bytes without splitting a rune
func truncateReason(reason string, limit int) string {
	if len(reason) <= limit {
		return reason
	}
	for limit > 0 && !utf8.RuneStart(reason[limit]) {
		limit--
	}
	return reason[:limit]
}

// --------------------------------------------------------------------------
// Connection
// --------------------------------------------------------------------------

// connection is the per-connection state: one reader (serve), up to
// MaxInFlightPerConn handler goroutines and one writer fed by an MPSC queue.
// Only the writer touches the socket for writing.
type connection struct {
	id     uint64
	conn   net.Conn
	server *Server

	// ctx is handed to handlers and cancelled when the connection closes
	ctx    context.Context
	cancel context.CancelFunc

	out       *util.MPSC[wire.Frame]
	sem       chan struct{}
	handlers  sync.WaitGroup
	closeOnce sync.Once
}

// serve reads request frames until the stream ends, then waits for running
// handlers, flushes their responses and closes the connection
func (c *connection) serve() {
	Logger.Debugf("connection %d opened", c.id)

	writerDone := make(chan struct{})
	go c.writeLoop(writerDone)

	reader := wire.NewReader(c.conn, c.server.config.MaxPayloadSize)
	for {
		req, err := reader.Read()
		if err != nil {
			c.logReadError(err)
			break
		}

		if req.Flag != wire.FlagRequest {
			framingErrorTotal.Inc()
			Logger.Errorf("connection %d: %v: expected a request, got a %s frame", c.id, common.ErrFraming, req.Flag)
			break
		}

		// blocks while MaxInFlightPerConn handlers are running
		c.sem <- struct{}{}
		c.handlers.Add(1)
		go c.dispatch(req)
	}

	// nobody reads the results of running handlers anymore
	c.cancel()
	c.handlers.Wait()
	c.out.Close()
	<-writerDone
	c.close()

	Logger.Debugf("connection %d closed", c.id)
}

// dispatch runs one call and queues its response
func (c *connection) dispatch(req wire.Frame) {
	var detached sync.WaitGroup
	defer func() {
		detached.Wait()
		<-c.sem
		c.handlers.Done()
	}()

	resp := c.server.handle(c.ctx, req, &detached)
	if !c.out.Push(resp) {
		Logger.Debugf("connection %d: dropped response to call %d, connection is closing", c.id, req.CorrelationID)
	}
}

// writeLoop writes queued responses. After the first write error the
// connection is closed and the rest of the queue is discarded.
func (c *connection) writeLoop(done chan<- struct{}) {
	defer close(done)

	timeout := c.server.config.WriteTimeout()
	broken := false

	for resp := range c.out.Recv() {
		if broken {
			continue
		}

		if timeout > 0 {
			if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
				Logger.Errorf("connection %d: failed to set write deadline: %v", c.id, err)
			}
		}

		if err := wire.WriteFrame(c.conn, resp, c.server.config.MaxPayloadSize); err != nil {
			writeErrorTotal.Inc()
			// failures on a connection that is already closing are expected
			if !errors.Is(err, net.ErrClosed) && c.ctx.Err() == nil {
				Logger.Errorf("connection %d: failed to write response to call %d: %v", c.id, resp.CorrelationID, err)
			}
			broken = true
			c.close()
		}
	}
}

func (c *connection) logReadError(err error) {
	switch {
	case err == io.EOF:
		Logger.Debugf("connection %d closed by client", c.id)
	case errors.Is(err, net.ErrClosed):
		Logger.Debugf("connection %d closed locally", c.id)
	case errors.Is(err, common.ErrFraming):
		framingErrorTotal.Inc()
		Logger.Errorf("connection %d: %v", c.id, err)
	default:
		Logger.Warningf("connection %d: read failed: %v", c.id, err)
	}
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.conn.Close()
	})
}
