package server

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/sockrpc/rpc/common"
	"github.com/ValentinKolb/sockrpc/rpc/contract"
	"github.com/ValentinKolb/sockrpc/rpc/serializer"
)

var (
	// ErrNotDeclared is returned when binding a method its table's registry does not know
	ErrNotDeclared = errors.New("method not declared")
	// ErrAlreadyBound is returned when binding a method a second time
	ErrAlreadyBound = errors.New("method already bound")
	// ErrTableSealed is returned when binding into a sealed handler table
	ErrTableSealed = errors.New("handler table is sealed")
)

// --------------------------------------------------------------------------
// Handler
// --------------------------------------------------------------------------

// HandlerFunc is the type-erased form of a bound implementation: serialized
// arguments in, serialized return value out. Errors are *common.RemoteError.
type HandlerFunc func(ctx context.Context, payload []byte) ([]byte, error)

// Handler is one entry of the handler table
type Handler struct {
	Method contract.Descriptor
	fn     HandlerFunc
}

// Invoke runs the handler. A panic inside the implementation is recovered and
// reported as a HandlerFailed error, so it never reaches the connection.
func (h *Handler) Invoke(ctx context.Context, payload []byte) (resp []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Errorf("handler %s panicked: %v\n%s", h.Method.Name, r, debug.Stack())
			resp, err = nil, common.NewRemoteError(common.ErrKindHandlerFailed, "%s: panic: %v", h.Method.Name, r)
		}
	}()
	return h.fn(ctx, payload)
}

// --------------------------------------------------------------------------
// Handler Table
// --------------------------------------------------------------------------

// HandlerTable maps method ids to handlers. It is filled before the server
// starts and sealed by it. After Seal the table is immutable and Lookup is safe
// for any number of goroutines without locking.
type HandlerTable struct {
	registry   *contract.Registry
	serializer serializer.IRPCSerializer
	handlers   map[uint64]*Handler
	sealed     atomic.Bool

	// mu guards handlers until the table is sealed
	mu sync.Mutex
}

// NewHandlerTable creates an empty table. A nil registry means
// contract.Default, a nil serializer means serializer.Default().
func NewHandlerTable(registry *contract.Registry, s serializer.IRPCSerializer) *HandlerTable {
	if registry == nil {
		registry = contract.Default
	}
	if s == nil {
		s = serializer.Default()
	}
	return &HandlerTable{
		registry:   registry,
		serializer: s,
		handlers:   make(map[uint64]*Handler),
	}
}

// Bind binds impl to method. The generic signature guarantees at compile time
// that impl takes the declared argument type and returns the declared type.
func Bind[A, R any](t *HandlerTable, method contract.Method[A, R], impl func(ctx context.Context, args A) (R, error)) error {
	desc := method.Descriptor()
	s := t.serializer

	fn := func(ctx context.Context, payload []byte) ([]byte, error) {
		var args A
		if err := s.Deserialize(payload, &args); err != nil {
			return nil, common.NewRemoteError(common.ErrKindMalformedArguments, "%s: %v", desc.Name, err)
		}

		ret, err := impl(ctx, args)
		if err != nil {
			var remote *common.RemoteError
			if errors.As(err, &remote) {
				return nil, remote
			}
			return nil, common.NewRemoteError(common.ErrKindHandlerFailed, "%s: %v", desc.Name, err)
		}

		out, err := s.Serialize(ret)
		if err != nil {
			return nil, common.NewRemoteError(common.ErrKindSerializationFailed, "%s: %v", desc.Name, err)
		}
		return out, nil
	}

	return t.add(desc, fn)
}

// BindFunc binds an implementation that does not need a context
func BindFunc[A, R any](t *HandlerTable, method contract.Method[A, R], impl func(args A) (R, error)) error {
	return Bind(t, method, func(_ context.Context, args A) (R, error) {
		return impl(args)
	})
}

// MustBind is Bind for initialization code: it panics on error
func MustBind[A, R any](t *HandlerTable, method contract.Method[A, R], impl func(ctx context.Context, args A) (R, error)) {
	if err := Bind(t, method, impl); err != nil {
		panic(err)
	}
}

// add stores a handler after checking it against the registry
func (t *HandlerTable) add(desc contract.Descriptor, fn HandlerFunc) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sealed.Load() {
		return fmt.Errorf("%w: cannot bind %s", ErrTableSealed, desc.Signature)
	}

	declared, ok := t.registry.Lookup(desc.ID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotDeclared, desc.Signature)
	}
	if !declared.SameShape(desc) {
		return fmt.Errorf("%w: %s is declared as %s", ErrNotDeclared, desc.Signature, declared.Signature)
	}

	if _, exists := t.handlers[desc.ID]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyBound, desc.Signature)
	}

	t.handlers[desc.ID] = &Handler{Method: desc, fn: fn}
	Logger.Debugf("bound handler for %s", desc)
	return nil
}

// Seal makes the table immutable and freezes its registry. It is safe to call
// more than once.
func (t *HandlerTable) Seal() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sealed.Swap(true) {
		return
	}
	t.registry.Freeze()

	// methods that are declared but never bound answer with UnknownMethod
	for _, desc := range t.registry.Descriptors() {
		if _, ok := t.handlers[desc.ID]; !ok {
			Logger.Warningf("method %s is declared but has no handler", desc.Signature)
		}
	}
}

// Sealed reports whether Seal was called
func (t *HandlerTable) Sealed() bool {
	return t.sealed.Load()
}

// Lookup returns the handler of a method id. It must only be called
// concurrently once the table is sealed.
func (t *HandlerTable) Lookup(id uint64) (*Handler, bool) {
	h, ok := t.handlers[id]
	return h, ok
}

// Methods returns the descriptors of all bound methods sorted by name
func (t *HandlerTable) Methods() []contract.Descriptor {
	t.mu.Lock()
	defer t.mu.Unlock()

	methods := make([]contract.Descriptor, 0, len(t.handlers))
	for _, h := range t.handlers {
		methods = append(methods, h.Method)
	}
	sort.Slice(methods, func(i, j int) bool {
		return methods[i].Name < methods[j].Name
	})
	return methods
}

// Serializer returns the serializer the table decodes arguments with
func (t *HandlerTable) Serializer() serializer.IRPCSerializer {
	return t.serializer
}
