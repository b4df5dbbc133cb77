package api

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// jsonCodec lets connect carry plain go structs instead of protobuf
// messages. It registers under the name of connect's own json codec so the
// content type stays "application/json".
type jsonCodec struct{}

var _ connect.Codec = jsonCodec{}

func (jsonCodec) Name() string {
	return "json"
}

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

// WithJSON is the codec option every handler and client of this package
// needs.
func WithJSON() connect.Option {
	return connect.WithCodec(jsonCodec{})
}
