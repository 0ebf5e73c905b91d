package decode

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestDecode_Valid(t *testing.T) {
	out, err := Decode[[]record]([]byte(`[{"id":1,"name":"A"},{"id":2,"name":"B","extra":true}]`))
	require.NoError(t, err)
	assert.Equal(t, []record{{1, "A"}, {2, "B"}}, out)
}

// TestDecode_SingleBadFieldFailsWhole verifies there is no partial decode
func TestDecode_SingleBadFieldFailsWhole(t *testing.T) {
	out, err := Decode[[]record]([]byte(`[{"id":1,"name":"A"},{"id":"two","name":"B"}]`))
	require.Error(t, err)
	assert.Nil(t, out, "should not return partially decoded items")

	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, "[]decode.record", decodeErr.Type)
	assert.Contains(t, err.Error(), "failed to decode")
}

func TestDecode_Malformed(t *testing.T) {
	out, err := Decode[record]([]byte(`{"id":`))
	require.Error(t, err)
	assert.Equal(t, record{}, out)
}

func TestDecode_ShapeMismatch(t *testing.T) {
	_, err := Decode[[]record]([]byte(`{"id":1}`))
	var decodeErr *DecodeError
	assert.True(t, errors.As(err, &decodeErr))
}
