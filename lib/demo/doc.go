// Package demo is an example contract with implementations. The sockrpc CLI
// serves it and calls it, and the tests use it as the reference contract.
//
//	hurt(Goblin, int) -> Goblin
//	add(int, int) -> int
//	sub(int, int) -> int
//	echo(string) -> string
//	sleep(int) -> int
//	version() -> string
package demo
