package lendcache

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
)

// Codec turns keys and values into a stable byte encoding and back.
type Codec interface {
	Encode(v interface{}) ([]byte, error)
	Decode(data []byte, v interface{}) error
}

// GobCodec encodes with encoding/gob, the default of serializing stores.
type GobCodec struct{}

// Encode implements Codec.
func (GobCodec) Encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer

	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode implements Codec.
func (GobCodec) Decode(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// JSONCodec encodes with encoding/json, handy when persisted records should
// stay inspectable with standard tooling.
type JSONCodec struct{}

// Encode implements Codec.
func (JSONCodec) Encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// Decode implements Codec.
func (JSONCodec) Decode(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
