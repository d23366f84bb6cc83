/*
Package wire implements the length-delimited frame codec shared by the RPC
server and client.

Every frame has the layout

	[ frame_length u32 ][ correlation_id u64 ][ method_id u64 ][ flag u8 ][ payload ]

with big endian integers. frame_length covers everything after itself, so a
reader always knows how many bytes it still needs and never scans for
delimiters. The flag distinguishes requests, ok-responses and err-responses.
Err-responses carry an encoded common.RemoteError as payload (see EncodeFailure).

Writing:

	err := wire.WriteFrame(conn, wire.NewRequest(1, methodID, payload), common.DefaultMaxPayloadSize)

Reading (one Reader per connection):

	r := wire.NewReader(conn, common.DefaultMaxPayloadSize)
	for {
		frame, err := r.Read()
		if err == io.EOF {
			break // peer closed the connection
		}
		...
	}

Payloads larger than the configured maximum are rejected with
common.ErrOversizedPayload before any byte is written. Malformed or truncated
frames are reported as common.ErrFraming.
*/
package wire
