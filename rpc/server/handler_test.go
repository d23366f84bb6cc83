package server

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ValentinKolb/sockrpc/rpc/common"
	"github.com/ValentinKolb/sockrpc/rpc/contract"
	"github.com/ValentinKolb/sockrpc/rpc/serializer"
)

type testGoblin struct {
	Health int
	Hungry bool
}

func TestBindErrors(t *testing.T) {
	registry := contract.NewRegistry()
	inc, err := contract.DeclareIn[int, int](registry, "inc")
	if err != nil {
		t.Fatalf("DeclareIn failed: %v", err)
	}
	undeclared := contract.NewMethod[int, int]("dec")

	table := NewHandlerTable(registry, nil)
	double := func(_ context.Context, v int) (int, error) { return v * 2, nil }

	if err := Bind(table, inc, double); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	if err := Bind(table, inc, double); !errors.Is(err, ErrAlreadyBound) {
		t.Errorf("Expected ErrAlreadyBound, got %v", err)
	}
	if err := Bind(table, undeclared, double); !errors.Is(err, ErrNotDeclared) {
		t.Errorf("Expected ErrNotDeclared, got %v", err)
	}

	table.Seal()
	if !registry.Frozen() {
		t.Errorf("Seal should freeze the registry")
	}

	late, _ := contract.DeclareIn[string, string](contract.NewRegistry(), "late")
	if err := BindFunc(table, late, func(s string) (string, error) { return s, nil }); !errors.Is(err, ErrTableSealed) {
		t.Errorf("Expected ErrTableSealed, got %v", err)
	}

	methods := table.Methods()
	if len(methods) != 1 || methods[0].ID != inc.ID() {
		t.Errorf("Methods() = %v", methods)
	}
}

func TestMustBindPanics(t *testing.T) {
	table := NewHandlerTable(contract.NewRegistry(), nil)
	defer func() {
		if recover() == nil {
			t.Errorf("MustBind should panic for an undeclared method")
		}
	}()
	MustBind(table, contract.NewMethod[int, int]("nope"), func(_ context.Context, v int) (int, error) { return v, nil })
}

func TestHandlerInvoke(t *testing.T) {
	registry := contract.NewRegistry()
	s := serializer.NewJSONSerializer()
	table := NewHandlerTable(registry, s)

	hurt, _ := contract.DeclareIn[contract.Args2[testGoblin, int], testGoblin](registry, "hurt")
	fail, _ := contract.DeclareIn[int, int](registry, "fail")
	crash, _ := contract.DeclareIn[int, int](registry, "crash")
	limited, _ := contract.DeclareIn[int, int](registry, "limited")
	unencodable, _ := contract.DeclareIn[int, chan int](registry, "unencodable")

	MustBind(table, hurt, func(_ context.Context, args contract.Args2[testGoblin, int]) (testGoblin, error) {
		g := args.First
		g.Health -= args.Second
		return g, nil
	})
	MustBind(table, fail, func(_ context.Context, v int) (int, error) {
		return 0, fmt.Errorf("cannot handle %d", v)
	})
	MustBind(table, crash, func(_ context.Context, v int) (int, error) {
		var m map[string]int
		m["boom"] = v
		return v, nil
	})
	MustBind(table, limited, func(_ context.Context, v int) (int, error) {
		return 0, common.NewRemoteError(common.ErrKindRateLimited, "slow down")
	})
	MustBind(table, unencodable, func(_ context.Context, v int) (chan int, error) {
		return make(chan int), nil
	})
	table.Seal()

	encode := func(v any) []byte {
		data, err := s.Serialize(v)
		if err != nil {
			t.Fatalf("Serialize failed: %v", err)
		}
		return data
	}

	t.Run("success", func(t *testing.T) {
		h, _ := table.Lookup(hurt.ID())
		resp, err := h.Invoke(context.Background(), encode(contract.Pack2(testGoblin{Health: 20, Hungry: true}, 23)))
		if err != nil {
			t.Fatalf("Invoke failed: %v", err)
		}
		var g testGoblin
		if err := s.Deserialize(resp, &g); err != nil {
			t.Fatalf("Deserialize failed: %v", err)
		}
		if g != (testGoblin{Health: -3, Hungry: true}) {
			t.Errorf("Got %+v, want {-3 true}", g)
		}
	})

	tests := []struct {
		name    string
		id      uint64
		payload []byte
		kind    common.ErrorKind
	}{
		{"malformed arguments", hurt.ID(), []byte("{not json"), common.ErrKindMalformedArguments},
		{"handler error", fail.ID(), encode(1), common.ErrKindHandlerFailed},
		{"handler panic", crash.ID(), encode(1), common.ErrKindHandlerFailed},
		{"remote error passthrough", limited.ID(), encode(1), common.ErrKindRateLimited},
		{"unserializable result", unencodable.ID(), encode(1), common.ErrKindSerializationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, ok := table.Lookup(tt.id)
			if !ok {
				t.Fatalf("Lookup(%#x) failed", tt.id)
			}
			_, err := h.Invoke(context.Background(), tt.payload)
			if got := common.KindOf(err); got != tt.kind {
				t.Errorf("Error kind = %s, want %s (err: %v)", got, tt.kind, err)
			}
		})
	}

	if _, ok := table.Lookup(0xdead); ok {
		t.Errorf("Lookup of an unbound id should fail")
	}
}
