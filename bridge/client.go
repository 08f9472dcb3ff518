package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Client is a connection to a bridge. It sends one request at a time and waits for its response,
// the same way the filter-repo callback script does.
// A Client is goroutine-safe, concurrent calls are serialized.
type Client struct {
	Logger *zap.SugaredLogger

	path   string
	conn   net.Conn
	reader *bufio.Reader

	m sync.Mutex
}

type ClientOption func(c *Client)

func WithClientLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		c.Logger = l.Named("bridge_client").Sugar()
	}
}

// Dial connects to the bridge socket at path.
func Dial(ctx context.Context, path string, opts ...ClientOption) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("dialing bridge %s: %w", path, err)
	}
	c := &Client{
		Logger: zap.NewNop().Sugar(),
		path:   path,
		conn:   conn,
		reader: bufio.NewReader(conn),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Send writes msg followed by the terminator, and returns the raw response without its terminator.
// msg is sent as-is, so it need not be valid JSON.
func (c *Client) Send(ctx context.Context, msg string) (json.RawMessage, error) {
	c.m.Lock()
	defer c.m.Unlock()

	if err := c.conn.SetDeadline(time.Time{}); err != nil {
		return nil, fmt.Errorf("clearing deadline: %w", err)
	}

	stop := context.AfterFunc(ctx, func() {
		// unblock the pending read or write
		c.conn.SetDeadline(time.Now())
	})
	defer stop()

	c.Logger.Debugw("sending request", "Path", c.path, "Bytes", len(msg))
	if _, err := c.conn.Write([]byte(msg + Terminator)); err != nil {
		return nil, c.ctxErr(ctx, fmt.Errorf("writing request: %w", err))
	}

	var resp strings.Builder
	for {
		line, err := c.reader.ReadString('\n')
		resp.WriteString(line)
		if err != nil {
			return nil, c.ctxErr(ctx, fmt.Errorf("reading response: %w", err))
		}
		if strings.HasSuffix(resp.String(), Terminator) {
			break
		}
	}
	raw := strings.TrimSuffix(resp.String(), Terminator)
	c.Logger.Debugw("got response", "Path", c.path, "Bytes", len(raw))
	return json.RawMessage(raw), nil
}

func (c *Client) ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %s", ctx.Err(), err)
	}
	return err
}

// Call invokes a single command. A slice payload is sent as positional arguments.
// If the bridge answers with an error envelope, a *RemoteError is returned.
func (c *Client) Call(ctx context.Context, name string, payload any) (json.RawMessage, error) {
	req, err := json.Marshal(map[string]any{name: payload})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	resp, err := c.Send(ctx, string(req))
	if err != nil {
		return nil, err
	}
	if msg, ok := decodeError(resp); ok {
		return nil, &RemoteError{Message: msg}
	}
	return resp, nil
}

// CallMany invokes several commands in one request, and returns the result of each.
// Failed commands carry their error envelope as their result.
func (c *Client) CallMany(ctx context.Context, commands map[string]any) (map[string]json.RawMessage, error) {
	req, err := json.Marshal(commands)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	resp, err := c.Send(ctx, string(req))
	if err != nil {
		return nil, err
	}
	if len(commands) == 1 {
		for name := range commands {
			return map[string]json.RawMessage{name: resp}, nil
		}
	}
	if msg, ok := decodeError(resp); ok {
		if _, named := commands["err"]; !named {
			return nil, &RemoteError{Message: msg}
		}
	}
	var results map[string]json.RawMessage
	if err := json.Unmarshal(resp, &results); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return results, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
