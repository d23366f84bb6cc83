package contract

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("rpc/contract")

var (
	// ErrDuplicateMethod is returned when a declaration conflicts with an existing
	// one (same name or same id with a different shape)
	ErrDuplicateMethod = errors.New("duplicate method")
	// ErrRegistryFrozen is returned when registering into a frozen registry
	ErrRegistryFrozen = errors.New("registry is frozen")
)

// Default is the process wide registry used by Declare
var Default = NewRegistry()

// Registry maps method identifiers to descriptors. It is filled during
// initialization and becomes read-only once frozen. Lookups never lock.
type Registry struct {
	byID   *xsync.MapOf[uint64, Descriptor]
	byName *xsync.MapOf[string, uint64]
	frozen atomic.Bool

	// mu serializes Register, so the two maps are updated together
	mu sync.Mutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byID:   xsync.NewMapOf[uint64, Descriptor](),
		byName: xsync.NewMapOf[string, uint64](),
	}
}

// Register adds a descriptor. Registering an identical descriptor again is a
// no-op, so a contract package may be initialized by several binaries linked
// into the same test process.
func (r *Registry) Register(desc Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen.Load() {
		return fmt.Errorf("%w: cannot register %s", ErrRegistryFrozen, desc.Signature)
	}

	if existing, ok := r.byID.Load(desc.ID); ok {
		if existing.SameShape(desc) {
			return nil
		}
		return fmt.Errorf("%w: id %#x of %s is already used by %s", ErrDuplicateMethod, desc.ID, desc.Signature, existing.Signature)
	}

	if id, ok := r.byName.Load(desc.Name); ok {
		existing, _ := r.byID.Load(id)
		return fmt.Errorf("%w: %s is already declared as %s", ErrDuplicateMethod, desc.Name, existing.Signature)
	}

	r.byID.Store(desc.ID, desc)
	r.byName.Store(desc.Name, desc.ID)
	Logger.Debugf("registered method %s", desc)
	return nil
}

// Lookup returns the descriptor of a method id
func (r *Registry) Lookup(id uint64) (Descriptor, bool) {
	return r.byID.Load(id)
}

// LookupName returns the descriptor of a method name
func (r *Registry) LookupName(name string) (Descriptor, bool) {
	id, ok := r.byName.Load(name)
	if !ok {
		return Descriptor{}, false
	}
	return r.byID.Load(id)
}

// Freeze makes the registry read-only. It is safe to call more than once.
func (r *Registry) Freeze() {
	if !r.frozen.Swap(true) {
		Logger.Debugf("registry frozen with %d methods", r.Len())
	}
}

// Frozen reports whether Freeze was called
func (r *Registry) Frozen() bool {
	return r.frozen.Load()
}

// Len returns the number of registered methods
func (r *Registry) Len() int {
	return r.byID.Size()
}

// Descriptors returns all descriptors sorted by name
func (r *Registry) Descriptors() []Descriptor {
	result := make([]Descriptor, 0, r.Len())
	r.byID.Range(func(_ uint64, desc Descriptor) bool {
		result = append(result, desc)
		return true
	})
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}
