package contract

import (
	"errors"
	"reflect"
	"sync"
	"testing"
)

type testGoblin struct {
	Health int
	Hungry bool
}

func TestMethodIDDeterministic(t *testing.T) {
	a := NewMethod[Args2[testGoblin, int], testGoblin]("hurt")
	b := NewMethod[Args2[testGoblin, int], testGoblin]("hurt")

	if a.ID() != b.ID() {
		t.Errorf("Same declaration produced different ids: %#x != %#x", a.ID(), b.ID())
	}
	if a.ID() != MethodID(a.Descriptor().Signature) {
		t.Errorf("ID does not match the hash of the signature")
	}
	if a.Name() != "hurt" {
		t.Errorf("Name() = %q, want hurt", a.Name())
	}
}

func TestMethodIDDependsOnShape(t *testing.T) {
	base := NewMethod[Args2[int, int], int]("add")

	tests := []struct {
		name  string
		other Descriptor
	}{
		{"different name", NewMethod[Args2[int, int], int]("sub").Descriptor()},
		{"different args", NewMethod[Args2[int, int64], int]("add").Descriptor()},
		{"different return", NewMethod[Args2[int, int], int64]("add").Descriptor()},
		{"unit args", NewMethod[Unit, int]("add").Descriptor()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.other.ID == base.ID() {
				t.Errorf("%s and %s share id %#x", tt.other.Signature, base, base.ID())
			}
		})
	}
}

func TestSignatureFormat(t *testing.T) {
	m := NewMethod[string, int]("length")
	if m.String() != "length(string) -> int" {
		t.Errorf("Signature = %q", m.String())
	}

	d := m.Descriptor()
	if d.Args != reflect.TypeOf("") || d.Returns != reflect.TypeOf(0) {
		t.Errorf("Descriptor types are wrong: %v, %v", d.Args, d.Returns)
	}
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()

	echo, err := DeclareIn[string, string](r, "echo")
	if err != nil {
		t.Fatalf("DeclareIn failed: %v", err)
	}

	// identical declaration is idempotent
	if _, err := DeclareIn[string, string](r, "echo"); err != nil {
		t.Errorf("Re-declaring an identical method failed: %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}

	// same name, different shape
	if _, err := DeclareIn[int, string](r, "echo"); !errors.Is(err, ErrDuplicateMethod) {
		t.Errorf("Expected ErrDuplicateMethod, got %v", err)
	}

	desc, ok := r.Lookup(echo.ID())
	if !ok || !desc.SameShape(echo.Descriptor()) {
		t.Errorf("Lookup(%#x) = %v, %v", echo.ID(), desc, ok)
	}
	if _, ok := r.LookupName("echo"); !ok {
		t.Errorf("LookupName(echo) failed")
	}
	if _, ok := r.Lookup(12345); ok {
		t.Errorf("Lookup of an unknown id should fail")
	}
}

func TestRegistryIDCollision(t *testing.T) {
	r := NewRegistry()
	original := NewMethod[int, int]("inc").Descriptor()
	if err := r.Register(original); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// a different method that happens to hash to the same id
	fake := NewMethod[int, string]("other").Descriptor()
	fake.ID = original.ID
	if err := r.Register(fake); !errors.Is(err, ErrDuplicateMethod) {
		t.Errorf("Expected ErrDuplicateMethod for id collision, got %v", err)
	}
}

func TestRegistryFreeze(t *testing.T) {
	r := NewRegistry()
	if _, err := DeclareIn[Unit, Unit](r, "ping"); err != nil {
		t.Fatalf("DeclareIn failed: %v", err)
	}

	r.Freeze()
	r.Freeze()
	if !r.Frozen() {
		t.Fatalf("Registry should be frozen")
	}

	if _, err := DeclareIn[Unit, Unit](r, "pong"); !errors.Is(err, ErrRegistryFrozen) {
		t.Errorf("Expected ErrRegistryFrozen, got %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistryDescriptorsSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"sub", "add", "hurt", "echo"} {
		if _, err := DeclareIn[Args2[int, int], int](r, name); err != nil {
			t.Fatalf("DeclareIn(%s) failed: %v", name, err)
		}
	}

	var names []string
	for _, d := range r.Descriptors() {
		names = append(names, d.Name)
	}
	want := []string{"add", "echo", "hurt", "sub"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("Descriptors() names = %v, want %v", names, want)
	}
}

func TestRegistryConcurrentRegister(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := DeclareIn[string, int](r, "len"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent identical declaration failed: %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestDeclarePanicsOnConflict(t *testing.T) {
	Declare[Unit, string]("contract_test.version")

	defer func() {
		if recover() == nil {
			t.Errorf("Declare should panic on a conflicting declaration")
		}
	}()
	Declare[Unit, int]("contract_test.version")
}

func TestPack(t *testing.T) {
	p2 := Pack2(testGoblin{Health: 20, Hungry: true}, 23)
	if p2.First.Health != 20 || p2.Second != 23 {
		t.Errorf("Pack2 = %+v", p2)
	}

	p3 := Pack3("a", 1, true)
	if !reflect.DeepEqual(p3, Args3[string, int, bool]{First: "a", Second: 1, Third: true}) {
		t.Errorf("Pack3 = %+v", p3)
	}
}
