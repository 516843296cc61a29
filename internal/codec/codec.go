// Package codec provides the pluggable encode/decode capability used for
// request variables and response bodies.
package codec

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// Codec decodes request payload fragments and encodes response values.
// Implementations must be safe for concurrent use.
type Codec interface {
	// Decode parses a payload fragment into a generic Go value.
	Decode(s string) (any, error)
	// Encode serializes v into a response body.
	Encode(v any) ([]byte, error)
}

// JSON is the default Codec.
type JSON struct {
	// Pretty enables indented output (useful for dev).
	Pretty bool
	// UseNumber keeps numeric literals as json.Number instead of float64.
	UseNumber bool
}

func (c JSON) Decode(s string) (any, error) {
	d := json.NewDecoder(bytes.NewReader([]byte(s)))
	if c.UseNumber {
		d.UseNumber()
	}
	var v any
	if err := d.Decode(&v); err != nil {
		return nil, errors.Wrap(err, "decode json")
	}
	return v, nil
}

func (c JSON) Encode(v any) ([]byte, error) {
	if c.Pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}
