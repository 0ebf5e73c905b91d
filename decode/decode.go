// Package decode turns JSON payloads from the portal API into typed records.
package decode

import (
	"encoding/json"
	"fmt"
)

// DecodeError reports a payload that does not match the requested type.
type DecodeError struct {
	Type string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode unmarshals data into a T. Any structural or type mismatch fails the
// whole decode and the zero value is returned; nothing is partially filled.
func Decode[T any](data []byte) (T, error) {
	var zero T
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, &DecodeError{Type: fmt.Sprintf("%T", zero), Err: err}
	}
	return out, nil
}
