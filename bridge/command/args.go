package command

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind describes how the arguments of a command were encoded in the request payload.
type Kind int

const (
	// KindSingle means the payload was a single non-array value, passed as the only argument.
	KindSingle Kind = iota
	// KindPositional means the payload was an array, spread as positional arguments.
	KindPositional
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindPositional:
		return "positional"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

var null = json.RawMessage("null")

// Args holds the arguments of one command invocation as raw JSON values.
type Args struct {
	kind   Kind
	values []json.RawMessage
}

// Single returns Args carrying exactly one argument.
// A nil value is treated as JSON null.
func Single(v json.RawMessage) Args {
	if len(v) == 0 {
		v = null
	}
	return Args{kind: KindSingle, values: []json.RawMessage{v}}
}

// Positional returns Args carrying an ordered list of arguments.
func Positional(vs []json.RawMessage) Args {
	values := make([]json.RawMessage, len(vs))
	copy(values, vs)
	return Args{kind: KindPositional, values: values}
}

// ArgsFromPayload resolves a request payload into Args.
// Arrays become positional arguments, everything else a single argument.
func ArgsFromPayload(payload json.RawMessage) (Args, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return Single(nil), nil
	}
	if trimmed[0] != '[' {
		return Single(trimmed), nil
	}
	var values []json.RawMessage
	if err := json.Unmarshal(trimmed, &values); err != nil {
		return Args{}, fmt.Errorf("decoding positional arguments: %w", err)
	}
	return Positional(values), nil
}

func (a Args) Kind() Kind { return a.kind }

// Len returns the number of arguments.
func (a Args) Len() int { return len(a.values) }

// At returns the i'th argument, or JSON null if there is no such argument.
func (a Args) At(i int) json.RawMessage {
	if i < 0 || i >= len(a.values) {
		return null
	}
	return a.values[i]
}

// Decode unmarshals the i'th argument into v.
// A missing argument decodes as JSON null, which leaves v untouched.
func (a Args) Decode(i int, v any) error {
	if err := json.Unmarshal(a.At(i), v); err != nil {
		return fmt.Errorf("decoding argument %d: %w", i, err)
	}
	return nil
}

// Values returns a copy of all arguments.
func (a Args) Values() []json.RawMessage {
	values := make([]json.RawMessage, len(a.values))
	copy(values, a.values)
	return values
}

// Raw re-encodes the arguments as they appeared in the payload.
func (a Args) Raw() json.RawMessage {
	if a.kind == KindSingle {
		return a.At(0)
	}
	b, err := json.Marshal(a.values)
	if err != nil {
		// the values were decoded from valid JSON, so they always re-encode
		panic(fmt.Sprintf("re-encoding positional arguments: %s", err))
	}
	return b
}
