package wire

import (
	"fmt"

	"github.com/ValentinKolb/sockrpc/rpc/common"
)

// EncodeFailure encodes the payload of an err-response frame:
//
//	[ kind u8 ][ reason bytes ]
//
// The reason is the remainder of the payload, so no length field is needed.
func EncodeFailure(failure *common.RemoteError) []byte {
	if failure == nil {
		return []byte{byte(common.ErrKindUnknown)}
	}
	buf := make([]byte, 1+len(failure.Reason))
	buf[0] = byte(failure.Kind)
	copy(buf[1:], failure.Reason)
	return buf
}

// DecodeFailure parses the payload of an err-response frame. Kinds unknown to
// this build are kept as they are, so the error still carries the reason.
func DecodeFailure(payload []byte) (*common.RemoteError, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("%w: empty failure payload", common.ErrMalformedResponse)
	}
	return &common.RemoteError{
		Kind:   common.ErrorKind(payload[0]),
		Reason: string(payload[1:]),
	}, nil
}
