// Package serializer provides value serialization for the RPC system. The core
// only needs "serialize(T) -> bytes" and "deserialize(bytes) -> T", so the codec
// is a pluggable collaborator: both ends of a connection must use the same one.
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//
//   - msgpackSerializerImpl: MessagePack encoding through hashicorp/go-msgpack.
//     Compact and fast, this is the default.
//
//   - jsonSerializerImpl: Implementation using JSON encoding, useful for debugging
//     but with larger payloads and lower performance.
//
//   - gobSerializerImpl: Implementation using Go's built-in gob encoding. Gob
//     refuses types without exported fields, so contracts using contract.Unit
//     cannot use it.
//
// Thread Safety:
//
//	All serializer implementations are safe for concurrent use across multiple
//	goroutines without additional synchronization.
//
// Usage:
//
//	s, err := serializer.ByName("msgpack")
//	data, err := s.Serialize(args)
//	// ... send data ...
//	var received Args
//	err = s.Deserialize(data, &received)
package serializer
