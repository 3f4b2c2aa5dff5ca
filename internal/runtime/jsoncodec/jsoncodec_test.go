package jsoncodec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestMarshalAndUnmarshal(t *testing.T) {
	in := testPayload{ID: 42, Name: "pipeflow"}
	data, err := Marshal(in)
	require.NoError(t, err)

	var out testPayload
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestMarshalSortsMapKeys(t *testing.T) {
	data, err := Marshal(map[string]int{"zeta": 1, "alpha": 2, "mid": 3})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"mid":3,"zeta":1}`, string(data))
}

func TestMarshalIndent(t *testing.T) {
	data, err := MarshalIndent(testPayload{ID: 1}, "", "  ")
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"id\"")
}

func TestDecodeStrictRejectsUnknownFields(t *testing.T) {
	var out testPayload
	err := DecodeStrict(strings.NewReader(`{"id":1,"name":"a","extra":true}`), &out)
	assert.Error(t, err)

	require.NoError(t, DecodeStrict(strings.NewReader(`{"id":3,"name":"b"}`), &out))
	assert.Equal(t, testPayload{ID: 3, Name: "b"}, out)
}
