// Package contract declares remote procedures and derives their identifiers.
//
// A contract is a Go package shared by the server and the client binary. Each
// method is a package level variable:
//
//	var Hurt = contract.Declare[contract.Args2[Goblin, int], Goblin]("hurt")
//
// The method id is the FNV-1a hash of the canonical signature
// "hurt(contract.Args2[...Goblin,int]) -> ...Goblin", so two binaries compiled
// independently from the same contract agree on every id without a handshake.
// Changing a name, an argument type or the return type yields a new id, and a
// peer still using the old contract answers with an unknown method error.
//
// Declare registers the method in the process wide Default registry and panics
// on conflicts, so a broken contract fails at startup rather than at call time.
// The registry is read-only once frozen (the server freezes the registry of its
// handler table before it accepts connections).
package contract
