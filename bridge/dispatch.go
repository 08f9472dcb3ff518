package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/guseggert/captainhook/bridge/command"
	"golang.org/x/sync/errgroup"
)

// process parses a complete message, dispatches its commands and composes the response line.
// For a malformed message it returns the error envelope along with the protocol error, which the caller reports
// after the envelope was written.
func (b *Bridge) process(ctx context.Context, sessionID, msg string) ([]byte, *ProtocolError) {
	req, protoErr := parseRequest(msg)
	if protoErr != nil {
		protoErr.SessionID = sessionID
		b.metrics.message(outcomeMalformed)
		return errorResponse(protoErr.Error()), protoErr
	}
	b.metrics.message(outcomeOK)

	results := b.dispatch(ctx, sessionID, req)
	resp, err := composeResponse(results)
	if err != nil {
		// every slot was encoded individually, so this only fails on a broken encoder
		b.errorHandler(fmt.Errorf("session %s: %w", sessionID, err))
		return errorResponse(err.Error()), nil
	}
	return resp, nil
}

// dispatch runs every command of a request concurrently and waits for all of them.
// Each command yields an encoded result, and a failing command never prevents the others from completing.
func (b *Bridge) dispatch(ctx context.Context, sessionID string, req map[string]json.RawMessage) map[string]json.RawMessage {
	var (
		resultsMut sync.Mutex
		results    = make(map[string]json.RawMessage, len(req))
		group      errgroup.Group
	)
	if b.dispatchLimit > 0 {
		group.SetLimit(b.dispatchLimit)
	}
	for name, payload := range req {
		name, payload := name, payload
		group.Go(func() error {
			res := b.invoke(ctx, sessionID, name, payload)
			resultsMut.Lock()
			results[name] = res
			resultsMut.Unlock()
			return nil
		})
	}
	_ = group.Wait()
	return results
}

// invoke runs the handler of one command and encodes its result.
func (b *Bridge) invoke(ctx context.Context, sessionID, name string, payload json.RawMessage) (res json.RawMessage) {
	handler, ok := b.registry.Lookup(name)
	if !ok {
		b.log.Debugw("no handler for command", "Session", sessionID, "Command", name)
		b.metrics.command(name, outcomeUnregistered, 0)
		return null
	}

	start := time.Now()
	fail := func(err error) json.RawMessage {
		b.metrics.command(name, outcomeError, time.Since(start))
		b.errorHandler(&DispatchError{SessionID: sessionID, Command: name, Err: err})
		return slotError(err)
	}
	defer func() {
		if r := recover(); r != nil {
			res = fail(fmt.Errorf("handler panicked: %v", r))
		}
	}()

	args, err := command.ArgsFromPayload(payload)
	if err != nil {
		return fail(err)
	}
	result, err := handler(ctx, args)
	if err != nil {
		return fail(err)
	}
	if result == nil {
		res = null
	} else if res, err = marshal(result); err != nil {
		return fail(fmt.Errorf("encoding result: %w", err))
	}
	b.metrics.command(name, outcomeOK, time.Since(start))
	return res
}

func slotError(err error) json.RawMessage {
	b, mErr := marshal(errEnvelope{Err: errBody{Message: err.Error()}})
	if mErr != nil {
		panic(fmt.Sprintf("encoding error envelope: %s", mErr))
	}
	return b
}
