package serializer

import (
	"github.com/hashicorp/go-msgpack/codec"
)

// NewMsgPackSerializer creates a new serializer using the MessagePack format
func NewMsgPackSerializer() IRPCSerializer {
	return &msgpackSerializerImpl{
		handle: &codec.MsgpackHandle{WriteExt: true},
	}
}

// msgpackSerializerImpl implements the IRPCSerializer interface using
// hashicorp/go-msgpack. The handle is configured once and then only read,
// so one instance can be shared by all goroutines.
type msgpackSerializerImpl struct {
	handle *codec.MsgpackHandle
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (m *msgpackSerializerImpl) Name() string {
	return "msgpack"
}

func (m *msgpackSerializerImpl) Serialize(v any) ([]byte, error) {
	var out []byte
	if err := codec.NewEncoderBytes(&out, m.handle).Encode(v); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *msgpackSerializerImpl) Deserialize(b []byte, v any) error {
	return codec.NewDecoderBytes(b, m.handle).Decode(v)
}
