// Package util contains small, dependency free building blocks used by the RPC
// packages.
//
// The package contains:
//   - mpsc: a lock-free Multi-Producer Single-Consumer queue. The server uses one
//     queue per connection so that many handler goroutines can hand finished
//     response frames to a single writer goroutine.
//   - hash: the FNV-1a string hash used to derive stable method identifiers from
//     method signatures.
package util
