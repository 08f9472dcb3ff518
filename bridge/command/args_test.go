package command

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgsFromPayload(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		expKind Kind
		expArgs []string
	}{
		{
			name:    "scalar is a single argument",
			payload: `1`,
			expKind: KindSingle,
			expArgs: []string{`1`},
		},
		{
			name:    "null is a single null argument",
			payload: `null`,
			expKind: KindSingle,
			expArgs: []string{`null`},
		},
		{
			name:    "empty payload is a single null argument",
			payload: ``,
			expKind: KindSingle,
			expArgs: []string{`null`},
		},
		{
			name:    "object is a single argument",
			payload: ` {"a": 1} `,
			expKind: KindSingle,
			expArgs: []string{`{"a": 1}`},
		},
		{
			name:    "array is spread as positional arguments",
			payload: `[1, "two", {"three": 3}]`,
			expKind: KindPositional,
			expArgs: []string{`1`, `"two"`, `{"three": 3}`},
		},
		{
			name:    "empty array has no arguments",
			payload: `[]`,
			expKind: KindPositional,
			expArgs: []string{},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			args, err := ArgsFromPayload(json.RawMessage(c.payload))
			require.NoError(t, err)
			assert.Equal(t, c.expKind, args.Kind())
			require.Equal(t, len(c.expArgs), args.Len())
			for i, exp := range c.expArgs {
				assert.JSONEq(t, exp, string(args.At(i)))
			}
		})
	}
}

func TestArgsFromPayloadInvalidArray(t *testing.T) {
	_, err := ArgsFromPayload(json.RawMessage(`[1,`))
	require.Error(t, err)
}

func TestArgsAtOutOfRange(t *testing.T) {
	args := Positional(nil)
	assert.Equal(t, "null", string(args.At(3)))

	var n int
	require.NoError(t, args.Decode(0, &n))
	assert.Equal(t, 0, n)
}

func TestArgsRaw(t *testing.T) {
	assert.Equal(t, `"x"`, string(Single(json.RawMessage(`"x"`)).Raw()))
	assert.Equal(t, `[1,2]`, string(Positional([]json.RawMessage{json.RawMessage("1"), json.RawMessage("2")}).Raw()))
}
