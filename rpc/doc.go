// Package rpc provides typed request/response calls between processes on the
// same host. Requests and responses travel as length-prefixed frames over a
// single Unix domain socket connection, and a client may have many calls in
// flight on that connection at once.
//
// The package is organized into several subpackages:
//
//   - common: Error kinds, configuration structures and logging shared by
//     client and server.
//
//   - contract: Method declarations. A method is a name plus argument and
//     return types, and its 64 bit id is derived from that signature.
//
//   - wire: The frame format and the encoding of failure payloads.
//
//   - serializer: Payload serialization with multiple format options
//     (MessagePack, JSON, GOB).
//
//   - transport: Listening on and dialing the Unix socket.
//
//   - server: The handler table, middlewares and the server loop that runs
//     handlers concurrently per connection.
//
//   - client: The dispatcher that multiplexes calls over one connection and
//     matches responses to callers by correlation id.
package rpc
