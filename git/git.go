// Package git wraps the git command-line tool.
package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/guseggert/captainhook/shell"
	"go.uber.org/zap"
)

// CallbackKind names one of the callbacks that git filter-repo accepts.
type CallbackKind string

const (
	Blob     CallbackKind = "blob"
	Commit   CallbackKind = "commit"
	Email    CallbackKind = "email"
	Filename CallbackKind = "filename"
	Message  CallbackKind = "message"
	Name     CallbackKind = "name"
	Refname  CallbackKind = "refname"
	Reset    CallbackKind = "reset"
	Tag      CallbackKind = "tag"
)

// CallbackKinds lists every kind, in the order their flags are composed.
var CallbackKinds = []CallbackKind{Blob, Commit, Email, Filename, Message, Name, Refname, Reset, Tag}

// Flag returns the filter-repo flag for the callback, e.g. --commit-callback.
func (k CallbackKind) Flag() string { return "--" + string(k) + "-callback" }

// CommandName returns the name the callback is registered under on a bridge, e.g. commitCallback.
func (k CallbackKind) CommandName() string { return string(k) + "Callback" }

func (k CallbackKind) Valid() bool {
	for _, kind := range CallbackKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Script is a Python module that is loaded before a callback body runs, bound to Name.
type Script struct {
	Name string
	Path string
}

// FilterRepoOptions are the git filter-repo flags this package knows how to compose.
type FilterRepoOptions struct {
	Debug       bool
	DryRun      bool
	Force       bool
	Help        bool
	InvertPaths bool
	Partial     bool
	Paths       []string
	PathsGlob   []string
	PathsRegex  []string
	Refs        []string

	// Callbacks maps a callback kind to the Python body passed to filter-repo.
	Callbacks map[CallbackKind]string
	// ImportScripts are loaded at the start of every callback body.
	ImportScripts []Script
}

// Args composes the filter-repo arguments, not including the filter-repo subcommand itself.
func (o FilterRepoOptions) Args() []string {
	var args []string
	if o.Debug {
		args = append(args, "--debug")
	}
	if o.DryRun {
		args = append(args, "--dry-run")
	}
	if o.InvertPaths {
		args = append(args, "--invert-paths")
	}
	if o.Partial {
		args = append(args, "--partial")
	}
	for _, p := range o.Paths {
		args = append(args, "--path", p)
	}
	for _, p := range o.PathsRegex {
		args = append(args, "--path-regex", p)
	}
	for _, p := range o.PathsGlob {
		args = append(args, "--path-glob", p)
	}
	for _, kind := range CallbackKinds {
		// -h sits between the callbacks, where filter-repo's own help lists it
		if kind == Message && o.Help {
			args = append(args, "-h")
		}
		if kind == Reset && len(o.Refs) > 0 {
			args = append(args, "--refs")
			args = append(args, o.Refs...)
		}
		body, ok := o.Callbacks[kind]
		if !ok {
			continue
		}
		args = append(args, kind.Flag(), RenderCallback(body, o.ImportScripts))
	}
	if o.Force {
		args = append(args, "--force")
	}
	return args
}

// RenderCallback prefixes a callback body with the code that loads scripts.
// Each script is loaded once per filter-repo process and cached in sys.modules.
func RenderCallback(body string, scripts []Script) string {
	if len(scripts) == 0 {
		return body
	}
	var b strings.Builder
	b.WriteString("import sys\n")
	b.WriteString("from importlib import util\n")
	for _, s := range scripts {
		module := pyQuote("captain_hook_" + s.Name)
		fmt.Fprintf(&b, "if %s not in sys.modules:\n", module)
		fmt.Fprintf(&b, "  _spec = util.spec_from_file_location(%s, %s)\n", module, pyQuote(s.Path))
		fmt.Fprintf(&b, "  sys.modules[%s] = util.module_from_spec(_spec)\n", module)
		fmt.Fprintf(&b, "  _spec.loader.exec_module(sys.modules[%s])\n", module)
		fmt.Fprintf(&b, "%s = sys.modules[%s]\n", s.Name, module)
	}
	b.WriteString(body)
	return b.String()
}

func pyQuote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`)
	return "'" + r.Replace(s) + "'"
}

// Git runs git commands in one repository.
type Git struct {
	runner *shell.Runner
}

func New(dir string, log *zap.Logger) *Git {
	return &Git{runner: shell.NewRunner("git", dir, log)}
}

func (g *Git) Dir() string { return g.runner.Dir }

func (g *Git) Run(ctx context.Context, args []string, opts shell.RunOptions) (*shell.Result, error) {
	return g.runner.Run(ctx, args, opts)
}

// FilterRepo runs git filter-repo. Extra args are placed before the composed flags.
func (g *Git) FilterRepo(ctx context.Context, opts FilterRepoOptions, run shell.RunOptions, args ...string) (*shell.Result, error) {
	fullArgs := append([]string{"filter-repo"}, args...)
	fullArgs = append(fullArgs, opts.Args()...)
	return g.Run(ctx, fullArgs, run)
}

// Remote runs git remote with args.
func (g *Git) Remote(ctx context.Context, run shell.RunOptions, args ...string) (*shell.Result, error) {
	return g.Run(ctx, append([]string{"remote"}, args...), run)
}

// Remotes returns the names of the configured remotes.
func (g *Git) Remotes(ctx context.Context, run shell.RunOptions) ([]string, error) {
	res, err := g.Remote(ctx, run, "-v")
	if err != nil {
		return nil, fmt.Errorf("listing remotes: %w", err)
	}
	seen := map[string]bool{}
	var names []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 || seen[fields[0]] {
			continue
		}
		seen[fields[0]] = true
		names = append(names, fields[0])
	}
	return names, nil
}
