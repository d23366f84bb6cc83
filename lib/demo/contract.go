package demo

import (
	"github.com/ValentinKolb/sockrpc/rpc/contract"
)

// Goblin is the record passed around by the hurt method
type Goblin struct {
	Health int  `json:"health"`
	Hungry bool `json:"hungry"`
}

// The demo contract. Server and client binaries link this package, so both
// derive the same method ids.
var (
	// Hurt subtracts damage from a goblin's health
	Hurt = contract.Declare[contract.Args2[Goblin, int], Goblin]("hurt")
	// Add returns the sum of two integers
	Add = contract.Declare[contract.Args2[int, int], int]("add")
	// Sub returns the difference of two integers
	Sub = contract.Declare[contract.Args2[int, int], int]("sub")
	// Echo returns its argument
	Echo = contract.Declare[string, string]("echo")
	// Sleep waits the given number of milliseconds and returns it
	Sleep = contract.Declare[int, int]("sleep")
	// Version returns the version of the serving binary
	Version = contract.Declare[contract.Unit, string]("version")
)
