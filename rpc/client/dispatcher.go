package client

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ValentinKolb/sockrpc/rpc/common"
	"github.com/ValentinKolb/sockrpc/rpc/serializer"
	"github.com/ValentinKolb/sockrpc/rpc/transport"
	"github.com/ValentinKolb/sockrpc/rpc/transport/unix"
	"github.com/ValentinKolb/sockrpc/rpc/wire"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("rpc/client")

// Dispatcher owns one connection and multiplexes any number of concurrent calls
// over it. Requests carry a correlation id, a background read loop resolves the
// matching pending call when a response arrives.
type Dispatcher struct {
	config     common.ClientConfig
	serializer serializer.IRPCSerializer
	conn       net.Conn

	// writeMu makes sure frames are written as a whole
	writeMu sync.Mutex

	// mu guards everything below
	mu      sync.Mutex
	pending map[uint64]*pendingCall
	nextID  uint64
	closed  bool
	cause   error

	done       chan struct{}
	readerDone chan struct{}
}

// Connect opens a connection to config.Endpoint. It fails with
// common.ErrConnection if the socket does not exist, is not accessible or
// refuses the connection. A nil serializer means serializer.Default().
func Connect(ctx context.Context, config common.ClientConfig, s serializer.IRPCSerializer) (*Dispatcher, error) {
	return ConnectWith(ctx, config, s, unix.NewClientConnector())
}

// ConnectWith is Connect with an explicit connector
func ConnectWith(ctx context.Context, config common.ClientConfig, s serializer.IRPCSerializer, connector transport.IClientConnector) (*Dispatcher, error) {
	config = config.WithDefaults()

	conn, err := connector.Connect(ctx, config)
	if err != nil {
		return nil, err
	}

	Logger.Infof("connected to %s socket %s", connector.GetName(), config.Endpoint)
	return NewDispatcher(conn, config, s), nil
}

// Dial connects to the Unix socket at path with default settings and the
// default serializer
func Dial(ctx context.Context, path string) (*Dispatcher, error) {
	return Connect(ctx, common.ClientConfig{Endpoint: path}, nil)
}

// NewDispatcher takes ownership of an established connection
func NewDispatcher(conn net.Conn, config common.ClientConfig, s serializer.IRPCSerializer) *Dispatcher {
	if s == nil {
		s = serializer.Default()
	}

	d := &Dispatcher{
		config:     config.WithDefaults(),
		serializer: s,
		conn:       conn,
		pending:    make(map[uint64]*pendingCall),
		done:       make(chan struct{}),
		readerDone: make(chan struct{}),
	}
	go d.readLoop()
	return d
}

// --------------------------------------------------------------------------
// Calls
// --------------------------------------------------------------------------

// Invoke sends a call with an already serialized argument tuple and returns a
// future of the raw response payload. The typed Go and Call functions build on
// it.
func (d *Dispatcher) Invoke(methodID uint64, payload []byte) *Future[[]byte] {
	return newFuture(d.invoke(methodID, payload), func(b []byte) ([]byte, error) {
		return b, nil
	})
}

func (d *Dispatcher) invoke(methodID uint64, payload []byte) *pendingCall {
	// fail oversized arguments before anything touches the socket
	if err := wire.CheckPayload(payload, d.config.MaxPayloadSize); err != nil {
		return failedCall(err)
	}

	call := newPendingCall()

	d.mu.Lock()
	if d.closed {
		err := d.closedError()
		d.mu.Unlock()
		return failedCall(err)
	}
	id := d.allocateID()
	d.pending[id] = call
	d.mu.Unlock()

	// the call is registered before the request is written, so a fast response
	// always finds it
	d.writeMu.Lock()
	if timeout := d.config.WriteTimeout(); timeout > 0 {
		d.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	err := wire.WriteFrame(d.conn, wire.NewRequest(id, methodID, payload), d.config.MaxPayloadSize)
	d.writeMu.Unlock()

	if err != nil {
		// a failed write may have left a partial frame, the stream is unusable
		d.teardown(fmt.Errorf("write failed: %v", err))
	}
	return call
}

// allocateID returns a correlation id not used by any pending call. Must hold mu.
func (d *Dispatcher) allocateID() uint64 {
	for {
		d.nextID++
		if _, taken := d.pending[d.nextID]; !taken && d.nextID != 0 {
			return d.nextID
		}
	}
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Close closes the connection. Pending calls fail with ErrConnectionClosed.
func (d *Dispatcher) Close() error {
	d.teardown(nil)
	<-d.readerDone
	return nil
}

// Done is closed once the connection is closed
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// Err returns why the connection ended: nil while it is open or after Close,
// the read or write error otherwise
func (d *Dispatcher) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cause
}

// Pending returns the number of calls waiting for a response
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Endpoint returns the socket path of the connection
func (d *Dispatcher) Endpoint() string {
	return d.config.Endpoint
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// readLoop resolves pending calls with incoming responses until the connection
// ends, then tears the dispatcher down
func (d *Dispatcher) readLoop() {
	defer close(d.readerDone)

	reader := wire.NewReader(d.conn, d.config.MaxPayloadSize)
	for {
		resp, err := reader.Read()
		if err != nil {
			d.teardown(err)
			return
		}

		if !resp.Flag.IsResponse() {
			d.teardown(fmt.Errorf("%w: expected a response, got a %s frame", common.ErrFraming, resp.Flag))
			return
		}

		d.mu.Lock()
		call, ok := d.pending[resp.CorrelationID]
		if ok {
			delete(d.pending, resp.CorrelationID)
		}
		d.mu.Unlock()

		if !ok {
			Logger.Debugf("discarding response to unknown call %d", resp.CorrelationID)
			continue
		}

		if resp.Flag == wire.FlagOk {
			call.resolve(resp.Payload, nil)
			continue
		}

		failure, err := wire.DecodeFailure(resp.Payload)
		if err != nil {
			call.resolve(nil, err)
		} else {
			call.resolve(nil, failure)
		}
	}
}

// teardown closes the connection once and fails every pending call with
// ErrConnectionClosed. cause is nil for a local Close.
func (d *Dispatcher) teardown(cause error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.cause = cause
	pending := d.pending
	d.pending = make(map[uint64]*pendingCall)
	err := d.closedError()
	d.mu.Unlock()

	d.conn.Close()
	for _, call := range pending {
		call.resolve(nil, err)
	}
	close(d.done)

	if cause != nil {
		Logger.Warningf("connection to %s lost with %d pending calls: %v", d.config.Endpoint, len(pending), cause)
	} else {
		Logger.Infof("connection to %s closed", d.config.Endpoint)
	}
}

// closedError returns the error for calls on a closed connection. Must hold mu.
func (d *Dispatcher) closedError() error {
	if d.cause == nil {
		return common.ErrConnectionClosed
	}
	return fmt.Errorf("%w: %v", common.ErrConnectionClosed, d.cause)
}
