// Package jsoncodec routes all JSON handling through sonic's std-compatible
// configuration. ConfigStd sorts map keys, which keeps written documents
// byte-for-byte repeatable.
package jsoncodec

import (
	"io"

	"github.com/bytedance/sonic"
)

var codec = sonic.ConfigStd

func Marshal(v any) ([]byte, error) {
	return codec.Marshal(v)
}

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return codec.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v any) error {
	return codec.Unmarshal(data, v)
}

// DecodeStrict decodes one value from r and rejects unknown object keys.
func DecodeStrict(r io.Reader, v any) error {
	dec := codec.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
