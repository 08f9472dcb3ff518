package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/guseggert/captainhook/bridge/command"
	"github.com/guseggert/captainhook/bridge/signals"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultName is the bridge name that the filter-repo callback script connects to.
const DefaultName = "captain_hook"

const readBufferSize = 32768

// Bridge serves a command registry on a Unix socket.
// Connect and Close may be called any number of times, in any order, and from any goroutine.
type Bridge struct {
	log *zap.SugaredLogger

	name     string
	tempDir  string
	registry *command.Registry

	notifier      signals.Notifier
	errorHandler  func(error)
	metrics       *Metrics
	idleTimeout   time.Duration
	maxBufferSize int
	dispatchLimit int

	// lifecycleMut serializes Connect and Close.
	lifecycleMut sync.Mutex
	listener     net.Listener
	sigCh        chan os.Signal
	done         chan struct{}
	ctx          context.Context
	cancel       context.CancelFunc

	// wg tracks the accept loop and every connection goroutine.
	wg sync.WaitGroup

	connsMut sync.Mutex
	conns    map[net.Conn]struct{}
	closing  bool
}

type Option func(b *Bridge)

func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) {
		b.log = l.Named("bridge").Sugar()
	}
}

func WithLogLevel(l zapcore.Level) Option {
	return func(b *Bridge) {
		b.log = b.log.WithOptions(zap.IncreaseLevel(l))
	}
}

// WithTempDir overrides the directory the socket is created in, which defaults to os.TempDir().
func WithTempDir(dir string) Option {
	return func(b *Bridge) {
		b.tempDir = dir
	}
}

// WithNotifier sets the source of termination signals. While connected, any signal it delivers closes the bridge.
// Defaults to signals.OS{}.
func WithNotifier(n signals.Notifier) Option {
	return func(b *Bridge) {
		b.notifier = n
	}
}

// WithErrorHandler sets the function that protocol and dispatch errors are reported to.
// It may be called concurrently from different connections.
// By default errors are logged.
func WithErrorHandler(f func(error)) Option {
	return func(b *Bridge) {
		b.errorHandler = f
	}
}

func WithMetrics(m *Metrics) Option {
	return func(b *Bridge) {
		b.metrics = m
	}
}

// WithIdleTimeout closes connections that send nothing for d.
// By default connections never time out.
func WithIdleTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		b.idleTimeout = d
	}
}

// WithMaxBufferSize limits the size of one unterminated message. A connection that exceeds it is sent an
// error envelope and closed.
// By default there is no limit.
func WithMaxBufferSize(n int) Option {
	return func(b *Bridge) {
		b.maxBufferSize = n
	}
}

// WithDispatchLimit limits how many commands of one message run at the same time.
// By default they all run at once.
func WithDispatchLimit(n int) Option {
	return func(b *Bridge) {
		b.dispatchLimit = n
	}
}

// NewBridge constructs a bridge that serves registry on the socket derived from name.
func NewBridge(name string, registry *command.Registry, opts ...Option) (*Bridge, error) {
	if name == "" {
		return nil, errors.New("bridge name must not be empty")
	}
	if filepath.Base(name) != name {
		return nil, fmt.Errorf("bridge name %q must not contain a path separator", name)
	}
	if registry == nil {
		registry = command.NewRegistry(nil)
	}
	b := &Bridge{
		log:      zap.NewNop().Sugar(),
		name:     name,
		tempDir:  os.TempDir(),
		registry: registry,
		notifier: signals.OS{},
	}
	for _, o := range opts {
		o(b)
	}
	if b.errorHandler == nil {
		b.errorHandler = func(err error) {
			b.log.Errorw("bridge error", "Error", err)
		}
	}
	return b, nil
}

func (b *Bridge) Name() string { return b.name }

// Path returns the filesystem path of the bridge's socket.
func (b *Bridge) Path() string {
	return filepath.Join(b.tempDir, b.name+".sock")
}

// Connected reports whether the bridge is currently listening.
func (b *Bridge) Connected() bool {
	b.lifecycleMut.Lock()
	defer b.lifecycleMut.Unlock()
	return b.listener != nil
}

// Done returns a channel that is closed when the most recent connection of the bridge is closed, either by Close
// or by a termination signal. After the bridge is closed it keeps returning that closed channel until the next
// Connect. It returns nil if the bridge was never connected.
func (b *Bridge) Done() <-chan struct{} {
	b.lifecycleMut.Lock()
	defer b.lifecycleMut.Unlock()
	return b.done
}

// Connect binds the socket and starts serving connections. It returns once the socket is listening.
// If another listener already owns the socket path, the bind error is returned as a *TransportError.
// A socket file left behind by a process that no longer listens on it is replaced.
func (b *Bridge) Connect(ctx context.Context) error {
	b.lifecycleMut.Lock()
	defer b.lifecycleMut.Unlock()

	if b.listener != nil {
		return fmt.Errorf("bridge %q is already connected", b.name)
	}

	path := b.Path()
	if err := removeStaleSocket(ctx, path); err != nil {
		return &TransportError{Op: "remove stale socket", Path: path, Err: err}
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "unix", path)
	if err != nil {
		return &TransportError{Op: "listen", Path: path, Err: err}
	}

	b.listener = listener
	b.done = make(chan struct{})
	b.ctx, b.cancel = context.WithCancel(context.Background())
	b.connsMut.Lock()
	b.conns = map[net.Conn]struct{}{}
	b.closing = false
	b.connsMut.Unlock()

	b.sigCh = make(chan os.Signal, 1)
	b.notifier.Notify(b.sigCh)
	go b.watchSignals(b.sigCh, b.done)

	b.wg.Add(1)
	go b.acceptLoop(listener)

	b.log.Infow("bridge listening", "Path", path, "Commands", b.registry.Names())
	return nil
}

// Close stops accepting connections, closes the open ones, waits for their goroutines to finish,
// and removes the socket file. It is a no-op if the bridge is not connected.
func (b *Bridge) Close() error {
	b.lifecycleMut.Lock()
	defer b.lifecycleMut.Unlock()
	return b.closeLocked()
}

// closeIfCurrent closes the bridge only if it is still in the connection cycle that done belongs to.
func (b *Bridge) closeIfCurrent(done <-chan struct{}) error {
	b.lifecycleMut.Lock()
	defer b.lifecycleMut.Unlock()
	if b.done != done {
		return nil
	}
	return b.closeLocked()
}

func (b *Bridge) closeLocked() error {
	if b.listener == nil {
		return nil
	}

	b.notifier.Stop(b.sigCh)
	close(b.done)
	b.cancel()

	closeErr := b.listener.Close()

	b.connsMut.Lock()
	b.closing = true
	for conn := range b.conns {
		conn.Close()
	}
	b.connsMut.Unlock()

	b.wg.Wait()
	b.listener = nil

	path := b.Path()
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &TransportError{Op: "remove", Path: path, Err: err}
	}
	if closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
		return &TransportError{Op: "close", Path: path, Err: closeErr}
	}

	b.log.Infow("bridge closed", "Path", path)
	return nil
}

// CloseOnPanic closes the bridge if the calling goroutine is panicking, then continues panicking.
// It must be deferred directly:
//
//	defer b.CloseOnPanic()
func (b *Bridge) CloseOnPanic() {
	if r := recover(); r != nil {
		if err := b.Close(); err != nil {
			b.log.Errorw("closing bridge after panic", "Error", err)
		}
		panic(r)
	}
}

// MustConnect calls Connect and panics on error.
func (b *Bridge) MustConnect(ctx context.Context) {
	if err := b.Connect(ctx); err != nil {
		panic(err)
	}
}

// MustClose calls Close and panics on error.
func (b *Bridge) MustClose() {
	if err := b.Close(); err != nil {
		panic(err)
	}
}

func (b *Bridge) watchSignals(sigCh <-chan os.Signal, done <-chan struct{}) {
	select {
	case <-done:
	case sig := <-sigCh:
		b.log.Infow("received termination signal, closing bridge", "Signal", sig)
		if err := b.closeIfCurrent(done); err != nil {
			b.log.Errorw("closing bridge on signal", "Signal", sig, "Error", err)
		}
	}
}

func (b *Bridge) acceptLoop(listener net.Listener) {
	defer b.wg.Done()
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			b.log.Errorw("accept failed", "Error", err)
			continue
		}
		if !b.track(conn) {
			conn.Close()
			return
		}
		go b.handleConn(conn)
	}
}

// track registers a connection so that Close can interrupt it.
// It returns false if the bridge is closing.
func (b *Bridge) track(conn net.Conn) bool {
	b.connsMut.Lock()
	defer b.connsMut.Unlock()
	if b.closing {
		return false
	}
	b.conns[conn] = struct{}{}
	b.wg.Add(1)
	return true
}

func (b *Bridge) untrack(conn net.Conn) {
	b.connsMut.Lock()
	defer b.connsMut.Unlock()
	delete(b.conns, conn)
}

func (b *Bridge) handleConn(conn net.Conn) {
	defer b.wg.Done()
	defer b.untrack(conn)
	defer conn.Close()

	sess := NewSession(b.maxBufferSize)
	log := b.log.Named("bridge_session").With("Session", sess.ID)
	log.Debug("accepted connection")
	b.metrics.sessionOpened()
	defer b.metrics.sessionClosed()

	buf := make([]byte, readBufferSize)
	for {
		if b.idleTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(b.idleTimeout))
		}
		n, err := conn.Read(buf)
		if n > 0 {
			messages, feedErr := sess.Feed(string(buf[:n]))
			for _, msg := range messages {
				if !b.handleMessage(conn, sess, msg) {
					return
				}
			}
			if feedErr != nil {
				log.Debugw("closing connection", "Error", feedErr)
				b.write(conn, errorResponse(fmt.Sprintf("%s of %d bytes", feedErr, b.maxBufferSize)))
				return
			}
		}
		if err != nil {
			var netErr net.Error
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
				log.Debugw("connection closed", "Buffered", sess.Buffered())
			case errors.As(err, &netErr) && netErr.Timeout():
				log.Debugw("connection idle, closing", "Timeout", b.idleTimeout, "Buffered", sess.Buffered())
			default:
				log.Debugw("read failed", "Error", err)
			}
			return
		}
	}
}

// handleMessage answers one complete message. It returns false if the response could not be written.
func (b *Bridge) handleMessage(conn net.Conn, sess *Session, msg string) bool {
	resp, protoErr := b.process(b.ctx, sess.ID, msg)
	ok := b.write(conn, resp)
	if protoErr != nil {
		b.errorHandler(protoErr)
	}
	return ok
}

func (b *Bridge) write(conn net.Conn, resp []byte) bool {
	if _, err := conn.Write(resp); err != nil {
		b.log.Debugw("failed to write response", "Error", err)
		return false
	}
	return true
}

// removeStaleSocket removes a socket file at path that nothing is listening on.
// A live socket is left alone so that binding it fails.
func removeStaleSocket(ctx context.Context, path string) error {
	fi, err := os.Lstat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if fi.Mode()&os.ModeSocket == 0 {
		return nil
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err == nil {
		conn.Close()
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
