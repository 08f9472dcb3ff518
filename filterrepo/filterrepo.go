// Package filterrepo rewrites git history with git filter-repo, answering its callbacks from Go.
//
// Each callback run starts a bridge, points filter-repo's Python callback at it through
// callbacks.py, and closes the bridge once filter-repo exits.
package filterrepo

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/guseggert/captainhook/bridge"
	"github.com/guseggert/captainhook/bridge/command"
	"github.com/guseggert/captainhook/git"
	"github.com/guseggert/captainhook/pip"
	"github.com/guseggert/captainhook/shell"
	"go.uber.org/zap"
)

//go:embed callbacks.py
var callbacksScript []byte

// SocketEnv names the environment variable that tells callbacks.py where the bridge listens.
const SocketEnv = "CAPTAIN_HOOK_SOCKET"

const (
	packageName      = "git-filter-repo"
	notInstalledHint = "is not a git command"
	scriptName       = "callbacks"
)

// OriginAlias is the name origin is renamed to while history is rewritten with PreserveOrigin.
func OriginAlias() string {
	return fmt.Sprintf("%016x", xxhash.Sum64String("origin"))
}

type FilterRepo struct {
	log    *zap.SugaredLogger
	logger *zap.Logger

	git *git.Git
	pip *pip.Pip

	pipe           bool
	preserveOrigin bool
	force          bool
	dryRun         bool
	bridgeName     string
	tempDir        string
	bridgeOpts     []bridge.Option
}

type Option func(f *FilterRepo)

func WithLogger(l *zap.Logger) Option {
	return func(f *FilterRepo) {
		f.logger = l
	}
}

// WithPipe copies the output of git and pip to stdout. Defaults to true.
func WithPipe(pipe bool) Option {
	return func(f *FilterRepo) {
		f.pipe = pipe
	}
}

// WithPreserveOrigin keeps the origin remote, which filter-repo otherwise removes.
func WithPreserveOrigin(preserve bool) Option {
	return func(f *FilterRepo) {
		f.preserveOrigin = preserve
	}
}

// WithForce passes --force to filter-repo on callback runs, so that it rewrites repos that are not fresh clones.
// Defaults to true.
func WithForce(force bool) Option {
	return func(f *FilterRepo) {
		f.force = force
	}
}

// WithDryRun logs the commands that would run instead of running them.
func WithDryRun(dryRun bool) Option {
	return func(f *FilterRepo) {
		f.dryRun = dryRun
	}
}

func WithBridgeName(name string) Option {
	return func(f *FilterRepo) {
		f.bridgeName = name
	}
}

// WithTempDir sets where the bridge socket and the callback script are created.
func WithTempDir(dir string) Option {
	return func(f *FilterRepo) {
		f.tempDir = dir
	}
}

// WithBridgeOptions are applied to every bridge this starts.
func WithBridgeOptions(opts ...bridge.Option) Option {
	return func(f *FilterRepo) {
		f.bridgeOpts = append(f.bridgeOpts, opts...)
	}
}

// New returns a FilterRepo operating on the repository in dir.
func New(dir string, opts ...Option) *FilterRepo {
	f := &FilterRepo{
		logger:     zap.NewNop(),
		pipe:       true,
		force:      true,
		bridgeName: bridge.DefaultName,
	}
	for _, o := range opts {
		o(f)
	}
	f.log = f.logger.Named("filterrepo").Sugar()
	f.git = git.New(dir, f.logger)
	f.pip = pip.New(dir, f.logger)
	return f
}

func (f *FilterRepo) run() shell.RunOptions {
	return shell.RunOptions{Pipe: f.pipe, DryRun: f.dryRun}
}

// Installed reports whether git filter-repo is available.
func (f *FilterRepo) Installed(ctx context.Context) (bool, error) {
	run := f.run()
	run.DryRun = false
	_, err := f.git.FilterRepo(ctx, git.FilterRepoOptions{Help: true}, run)
	if err == nil {
		return true, nil
	}
	var exitErr *shell.ExitError
	if errors.As(err, &exitErr) && strings.Contains(exitErr.Stderr, notInstalledHint) {
		return false, nil
	}
	return false, err
}

// Ensure installs git filter-repo for the current user if it is missing.
func (f *FilterRepo) Ensure(ctx context.Context) error {
	installed, err := f.Installed(ctx)
	if err != nil {
		return fmt.Errorf("checking for %s: %w", packageName, err)
	}
	if installed {
		return nil
	}
	f.log.Infof("installing %s", packageName)
	_, err = f.pip.Install(ctx, packageName, pip.InstallOptions{User: true, Run: f.run()})
	if err != nil {
		return fmt.Errorf("installing %s: %w", packageName, err)
	}
	return nil
}

// Help returns filter-repo's usage text.
func (f *FilterRepo) Help(ctx context.Context, opts git.FilterRepoOptions) (string, error) {
	opts.Help = true
	res, err := f.git.FilterRepo(ctx, opts, f.run())
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}

func (f *FilterRepo) HasRemote(ctx context.Context, remote string) (bool, error) {
	run := f.run()
	run.DryRun = false
	remotes, err := f.git.Remotes(ctx, run)
	if err != nil {
		return false, err
	}
	for _, r := range remotes {
		if r == remote {
			return true, nil
		}
	}
	return false, nil
}

// Callback runs filter-repo with a callback of the given kind answered by handler.
// Callbacks set in opts are replaced.
func (f *FilterRepo) Callback(ctx context.Context, kind git.CallbackKind, opts git.FilterRepoOptions, handler command.Handler) (res *shell.Result, err error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown callback kind %q", kind)
	}
	if handler == nil {
		return nil, errors.New("callback handler is nil")
	}
	if !f.dryRun {
		if err := f.Ensure(ctx); err != nil {
			return nil, err
		}
	}

	scriptPath, err := f.writeScript()
	if err != nil {
		return nil, err
	}
	defer os.Remove(scriptPath)

	registry := command.NewRegistry(map[string]command.Handler{kind.CommandName(): handler})
	bridgeOpts := append([]bridge.Option{bridge.WithLogger(f.logger)}, f.bridgeOpts...)
	if f.tempDir != "" {
		bridgeOpts = append(bridgeOpts, bridge.WithTempDir(f.tempDir))
	}
	b, err := bridge.NewBridge(f.bridgeName, registry, bridgeOpts...)
	if err != nil {
		return nil, err
	}
	if err := b.Connect(ctx); err != nil {
		return nil, fmt.Errorf("starting bridge: %w", err)
	}
	defer func() {
		if closeErr := b.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("closing bridge: %w", closeErr))
		}
	}()

	if f.preserveOrigin {
		restore, hideErr := f.hideOrigin(ctx)
		if hideErr != nil {
			return nil, hideErr
		}
		defer func() {
			if restoreErr := restore(); restoreErr != nil {
				err = errors.Join(err, restoreErr)
			}
		}()
	}

	opts.Force = opts.Force || f.force
	opts.Callbacks = map[git.CallbackKind]string{
		kind: fmt.Sprintf("return %s.callback('%s', %s)", scriptName, kind, kind),
	}
	opts.ImportScripts = append(opts.ImportScripts, git.Script{Name: scriptName, Path: scriptPath})

	run := f.run()
	run.Env = append(run.Env, SocketEnv+"="+b.Path())
	f.log.Debugw("running filter-repo", "Callback", kind, "Socket", b.Path())
	return f.git.FilterRepo(ctx, opts, run)
}

func (f *FilterRepo) writeScript() (string, error) {
	file, err := os.CreateTemp(f.tempDir, "captain_hook_callbacks-*.py")
	if err != nil {
		return "", fmt.Errorf("creating callback script: %w", err)
	}
	defer file.Close()
	if _, err := file.Write(callbacksScript); err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("writing callback script: %w", err)
	}
	return file.Name(), nil
}

// hideOrigin renames origin out of filter-repo's reach and returns a func that renames it back.
// If there is no origin remote it does nothing.
func (f *FilterRepo) hideOrigin(ctx context.Context) (func() error, error) {
	noop := func() error { return nil }
	if f.dryRun {
		return noop, nil
	}
	hasOrigin, err := f.HasRemote(ctx, "origin")
	if err != nil {
		return nil, fmt.Errorf("looking up origin: %w", err)
	}
	if !hasOrigin {
		return noop, nil
	}
	alias := OriginAlias()
	if _, err := f.git.Remote(ctx, f.run(), "rename", "origin", alias); err != nil {
		return nil, fmt.Errorf("renaming origin: %w", err)
	}
	return func() error {
		// not bound to ctx, which may already be done
		if _, err := f.git.Remote(context.Background(), f.run(), "rename", alias, "origin"); err != nil {
			return fmt.Errorf("restoring origin: %w", err)
		}
		return nil
	}, nil
}
