package serializer

import (
	"fmt"
	"strings"
)

// IRPCSerializer is the interface for all value serializers. The RPC core uses it
// to turn argument tuples and return values into payload bytes and back.
type IRPCSerializer interface {
	// Name returns the short name of the serializer (e.g. "msgpack")
	Name() string
	// Serialize serializes a value into a byte array
	// It returns the serialized byte array and an error if any
	Serialize(v any) ([]byte, error)
	// Deserialize deserializes a byte array into the value v points to
	// It returns an error if the data does not fit the target type
	Deserialize(b []byte, v any) error
}

// Default returns the serializer used when none is configured
func Default() IRPCSerializer {
	return NewMsgPackSerializer()
}

// ByName returns the serializer with the given name (msgpack, json or gob)
func ByName(name string) (IRPCSerializer, error) {
	switch strings.ToLower(name) {
	case "msgpack", "":
		return NewMsgPackSerializer(), nil
	case "json":
		return NewJSONSerializer(), nil
	case "gob":
		return NewGOBSerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer: %s. must be one of msgpack, json, gob", name)
	}
}
