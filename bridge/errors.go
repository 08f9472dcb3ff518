package bridge

import (
	"fmt"
)

// ProtocolError is reported when a received message is not a JSON object of commands.
type ProtocolError struct {
	SessionID string
	Input     string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("'%s' is invalid", e.Input)
}

// DispatchError is reported when a handler fails while processing a command.
type DispatchError struct {
	SessionID string
	Command   string
	Err       error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("command %q failed: %s", e.Command, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// TransportError is returned when the bridge's socket cannot be bound, listened on, or released.
type TransportError struct {
	Op   string
	Path string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteError is returned by a Client when the bridge answers with an error envelope.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("bridge error: %s", e.Message)
}
