package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
)

var null = json.RawMessage("null")

type errEnvelope struct {
	Err errBody `json:"err"`
}

type errBody struct {
	Message string `json:"message"`
}

// parseRequest decodes a complete message into its command payloads.
// Anything that is not a JSON object is a protocol error. The error's input is the decoded value for a
// JSON string, and the raw message otherwise.
func parseRequest(msg string) (map[string]json.RawMessage, *ProtocolError) {
	var v json.RawMessage
	if err := json.Unmarshal([]byte(msg), &v); err != nil {
		return nil, &ProtocolError{Input: msg}
	}
	v = bytes.TrimSpace(v)
	switch v[0] {
	case '{':
	case '"':
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return nil, &ProtocolError{Input: s}
		}
		return nil, &ProtocolError{Input: msg}
	default:
		return nil, &ProtocolError{Input: msg}
	}
	var req map[string]json.RawMessage
	if err := json.Unmarshal(v, &req); err != nil {
		return nil, &ProtocolError{Input: msg}
	}
	return req, nil
}

// composeResponse builds the response for a request from its per-command results.
// A request with exactly one command is answered with that command's result on its own.
func composeResponse(results map[string]json.RawMessage) ([]byte, error) {
	if len(results) == 1 {
		for _, res := range results {
			return encodeLine(res)
		}
	}
	return encodeLine(results)
}

func errorResponse(message string) []byte {
	b, err := encodeLine(errEnvelope{Err: errBody{Message: message}})
	if err != nil {
		// a struct of strings always encodes
		panic(fmt.Sprintf("encoding error envelope: %s", err))
	}
	return b
}

// marshal encodes v as JSON without escaping HTML characters, since peers read the text verbatim.
func marshal(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func encodeLine(v any) ([]byte, error) {
	b, err := marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding response: %w", err)
	}
	return append(b, Terminator...), nil
}

// decodeError returns the message of an error envelope, if raw is one.
func decodeError(raw json.RawMessage) (string, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || len(fields) != 1 {
		return "", false
	}
	errRaw, ok := fields["err"]
	if !ok {
		return "", false
	}
	var body struct {
		Message *string `json:"message"`
	}
	if err := json.Unmarshal(errRaw, &body); err != nil || body.Message == nil {
		return "", false
	}
	return *body.Message, true
}
