package command

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLookup(t *testing.T) {
	handlers := map[string]Handler{
		"ping": Nullary(func(ctx context.Context) (string, error) { return "pong", nil }),
		"nil":  nil,
	}
	r := NewRegistry(handlers)

	// mutating the source map must not leak into the registry
	handlers["late"] = Echo

	_, ok := r.Lookup("ping")
	assert.True(t, ok)
	_, ok = r.Lookup("nil")
	assert.False(t, ok)
	_, ok = r.Lookup("late")
	assert.False(t, ok)
	assert.Equal(t, []string{"ping"}, r.Names())
	assert.Equal(t, 1, r.Len())
}

func TestNilRegistry(t *testing.T) {
	var r *Registry
	_, ok := r.Lookup("anything")
	assert.False(t, ok)
	assert.Empty(t, r.Names())
	assert.Equal(t, 0, r.Len())
}

func TestFunc(t *testing.T) {
	inc := Func(func(ctx context.Context, x int) (int, error) { return x + 1, nil })

	res, err := inc(context.Background(), Single(json.RawMessage(`41`)))
	require.NoError(t, err)
	assert.Equal(t, 42, res)

	// a positional list passes its first element
	res, err = inc(context.Background(), Positional([]json.RawMessage{json.RawMessage(`1`), json.RawMessage(`100`)}))
	require.NoError(t, err)
	assert.Equal(t, 2, res)

	_, err = inc(context.Background(), Single(json.RawMessage(`"nope"`)))
	require.Error(t, err)
}

func TestFuncPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	h := Func(func(ctx context.Context, s string) (string, error) { return "", boom })
	_, err := h(context.Background(), Single(json.RawMessage(`"x"`)))
	require.ErrorIs(t, err, boom)
}

func TestVariadicAndEcho(t *testing.T) {
	args, err := ArgsFromPayload(json.RawMessage(`[1,2,3]`))
	require.NoError(t, err)

	count := Variadic(func(ctx context.Context, vs ...json.RawMessage) (int, error) { return len(vs), nil })
	res, err := count(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, 3, res)

	res, err = Echo(context.Background(), args)
	require.NoError(t, err)
	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Equal(t, `[1,2,3]`, string(b))
}
