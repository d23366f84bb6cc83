package contract

import (
	"fmt"
	"reflect"

	"github.com/ValentinKolb/sockrpc/lib/util"
)

// methodIDSeed is mixed into every method id hash. Changing it changes every id
// and breaks compatibility with all other builds.
const methodIDSeed = 0

// --------------------------------------------------------------------------
// Descriptor
// --------------------------------------------------------------------------

// Descriptor describes one remote procedure: its name, the argument tuple type
// and the return type. ID is derived from Signature only, so two independently
// compiled binaries that declare the same method agree on the id.
type Descriptor struct {
	ID        uint64
	Name      string
	Args      reflect.Type
	Returns   reflect.Type
	Signature string
}

// NewDescriptor creates the descriptor of a method
func NewDescriptor(name string, args, returns reflect.Type) Descriptor {
	sig := Signature(name, args, returns)
	return Descriptor{
		ID:        MethodID(sig),
		Name:      name,
		Args:      args,
		Returns:   returns,
		Signature: sig,
	}
}

// Signature returns the canonical signature string "name(Args) -> Returns"
func Signature(name string, args, returns reflect.Type) string {
	return fmt.Sprintf("%s(%s) -> %s", name, typeName(args), typeName(returns))
}

// MethodID derives the method identifier from a canonical signature
func MethodID(signature string) uint64 {
	return util.HashString(signature, methodIDSeed)
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "nil"
	}
	return t.String()
}

// SameShape reports whether two descriptors describe the same method
func (d Descriptor) SameShape(other Descriptor) bool {
	return d.ID == other.ID && d.Signature == other.Signature && d.Args == other.Args && d.Returns == other.Returns
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%016x %s", d.ID, d.Signature)
}

// --------------------------------------------------------------------------
// Typed Method
// --------------------------------------------------------------------------

// Method is the typed handle of a declared method. A is the argument tuple type
// (use Unit, a plain type, Args2 or Args3), R the return type. The type
// parameters let the server bind and the client call the method without any
// runtime type assertion.
type Method[A, R any] struct {
	desc Descriptor
}

// NewMethod creates a typed method handle without registering it anywhere
func NewMethod[A, R any](name string) Method[A, R] {
	return Method[A, R]{
		desc: NewDescriptor(name, reflect.TypeOf((*A)(nil)).Elem(), reflect.TypeOf((*R)(nil)).Elem()),
	}
}

// Declare creates a method and registers it in the Default registry. It is meant
// for package level variables of a shared contract package and panics if the
// declaration conflicts with an existing one.
func Declare[A, R any](name string) Method[A, R] {
	m, err := DeclareIn[A, R](Default, name)
	if err != nil {
		panic(err)
	}
	return m
}

// DeclareIn creates a method and registers it in r
func DeclareIn[A, R any](r *Registry, name string) (Method[A, R], error) {
	m := NewMethod[A, R](name)
	if err := r.Register(m.desc); err != nil {
		return Method[A, R]{}, err
	}
	return m, nil
}

// ID returns the method identifier
func (m Method[A, R]) ID() uint64 {
	return m.desc.ID
}

// Name returns the declared name
func (m Method[A, R]) Name() string {
	return m.desc.Name
}

// Descriptor returns the untyped descriptor
func (m Method[A, R]) Descriptor() Descriptor {
	return m.desc
}

func (m Method[A, R]) String() string {
	return m.desc.Signature
}

// --------------------------------------------------------------------------
// Argument Tuples
// --------------------------------------------------------------------------

// Unit is the argument or return type of methods that take or return nothing
type Unit struct{}

// Args2 is an argument tuple of two values
type Args2[T1, T2 any] struct {
	First  T1
	Second T2
}

// Args3 is an argument tuple of three values
type Args3[T1, T2, T3 any] struct {
	First  T1
	Second T2
	Third  T3
}

// Pack2 creates a two value argument tuple
func Pack2[T1, T2 any](first T1, second T2) Args2[T1, T2] {
	return Args2[T1, T2]{First: first, Second: second}
}

// Pack3 creates a three value argument tuple
func Pack3[T1, T2, T3 any](first T1, second T2, third T3) Args3[T1, T2, T3] {
	return Args3[T1, T2, T3]{First: first, Second: second, Third: third}
}
