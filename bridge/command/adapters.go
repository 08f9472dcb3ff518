package command

import (
	"context"
	"encoding/json"
)

// Func adapts a function of one typed argument into a Handler.
// The first argument is decoded into T; with no arguments, or a null argument, f receives the zero value of T.
func Func[T, R any](f func(ctx context.Context, arg T) (R, error)) Handler {
	return func(ctx context.Context, args Args) (any, error) {
		var arg T
		if err := args.Decode(0, &arg); err != nil {
			return nil, err
		}
		return f(ctx, arg)
	}
}

// Nullary adapts a function that takes no arguments into a Handler. Any arguments sent are ignored.
func Nullary[R any](f func(ctx context.Context) (R, error)) Handler {
	return func(ctx context.Context, args Args) (any, error) {
		return f(ctx)
	}
}

// Variadic adapts a function over all of the raw arguments into a Handler.
func Variadic[R any](f func(ctx context.Context, args ...json.RawMessage) (R, error)) Handler {
	return func(ctx context.Context, args Args) (any, error) {
		return f(ctx, args.Values()...)
	}
}

// Echo returns its arguments re-collected into a list.
func Echo(ctx context.Context, args Args) (any, error) {
	return args.Values(), nil
}
