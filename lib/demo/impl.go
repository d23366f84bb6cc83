package demo

import (
	"context"
	"fmt"
	"time"

	"github.com/ValentinKolb/sockrpc/rpc/contract"
	"github.com/ValentinKolb/sockrpc/rpc/server"
)

// maxSleep bounds the sleep method
const maxSleep = time.Minute

// Bind binds implementations of the whole demo contract to table. version is
// returned by the version method.
func Bind(table *server.HandlerTable, version string) error {
	binds := []func() error{
		func() error { return server.BindFunc(table, Hurt, hurt) },
		func() error { return server.BindFunc(table, Add, add) },
		func() error { return server.BindFunc(table, Sub, sub) },
		func() error { return server.BindFunc(table, Echo, echo) },
		func() error { return server.Bind(table, Sleep, sleep) },
		func() error {
			return server.BindFunc(table, Version, func(contract.Unit) (string, error) {
				return version, nil
			})
		},
	}

	for _, bind := range binds {
		if err := bind(); err != nil {
			return err
		}
	}
	return nil
}

func hurt(args contract.Args2[Goblin, int]) (Goblin, error) {
	g := args.First
	g.Health -= args.Second
	return g, nil
}

func add(args contract.Args2[int, int]) (int, error) {
	return args.First + args.Second, nil
}

func sub(args contract.Args2[int, int]) (int, error) {
	return args.First - args.Second, nil
}

func echo(s string) (string, error) {
	return s, nil
}

func sleep(ctx context.Context, ms int) (int, error) {
	d := time.Duration(ms) * time.Millisecond
	if d < 0 || d > maxSleep {
		return 0, fmt.Errorf("sleep duration must be between 0 and %s, got %s", maxSleep, d)
	}

	select {
	case <-time.After(d):
		return ms, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
