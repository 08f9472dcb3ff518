// Package shell runs external command-line tools on behalf of the host process.
package shell

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// RunOptions control a single invocation.
type RunOptions struct {
	// Dir is the working directory. Defaults to the runner's Dir.
	Dir string
	// Env is appended to the environment of the current process.
	Env []string
	// Pipe copies the command's stdout to the runner's Stdout while it is being captured.
	Pipe bool
	// DryRun skips execution and only returns the composed command line.
	DryRun bool
	// Stdin is fed to the command's standard input.
	Stdin io.Reader
}

// Result is the outcome of a successful invocation.
type Result struct {
	// CommandLine is the composed command line, quoted for a POSIX shell.
	CommandLine string
	// Stdout is the captured standard output with the trailing newline removed.
	Stdout string
	// Value is Stdout decoded as JSON if it is valid JSON, and Stdout itself otherwise.
	Value any
	DryRun bool
}

// ExitError is returned when a command exits with a non-zero code.
type ExitError struct {
	CommandLine string
	ExitCode    int
	Stderr      string
	Err         error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("command %q exited with code %d", e.CommandLine, e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *ExitError) Unwrap() error { return e.Err }

// Runner invokes one binary, such as git or pip.
type Runner struct {
	Bin string
	Dir string
	Log *zap.SugaredLogger

	// Stdout receives piped output. Defaults to os.Stdout.
	Stdout io.Writer
}

// NewRunner returns a runner for bin that runs in dir.
func NewRunner(bin, dir string, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		Bin: bin,
		Dir: dir,
		Log: log.Named(bin).Sugar(),
	}
}

// CommandLine composes the command line for args.
func (r *Runner) CommandLine(args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, Quote(r.Bin))
	for _, a := range args {
		parts = append(parts, Quote(a))
	}
	return strings.Join(parts, " ")
}

// Run runs the binary with args and captures its output.
// The process is killed if ctx is done before it exits.
func (r *Runner) Run(ctx context.Context, args []string, opts RunOptions) (*Result, error) {
	commandLine := r.CommandLine(args)
	if opts.DryRun {
		r.Log.Info(commandLine)
		return &Result{CommandLine: commandLine, Stdout: commandLine, Value: commandLine, DryRun: true}, nil
	}

	cmd := exec.CommandContext(ctx, r.Bin, args...)
	cmd.Dir = r.Dir
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	cmd.Stdin = opts.Stdin

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if opts.Pipe {
		pipeTo := r.Stdout
		if pipeTo == nil {
			pipeTo = os.Stdout
		}
		cmd.Stdout = io.MultiWriter(stdout, pipeTo)
	}

	r.Log.Debugw("running command", "CommandLine", commandLine, "Dir", cmd.Dir)
	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &ExitError{
				CommandLine: commandLine,
				ExitCode:    exitErr.ExitCode(),
				Stderr:      stderr.String(),
				Err:         err,
			}
		}
		return nil, fmt.Errorf("running %q: %w", commandLine, err)
	}

	out := strings.TrimSuffix(stdout.String(), "\n")
	out = strings.TrimSuffix(out, "\r")
	return &Result{CommandLine: commandLine, Stdout: out, Value: parseOutput(out)}, nil
}

func parseOutput(out string) any {
	var v any
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		return out
	}
	return v
}

// Quote quotes s for a POSIX shell if it contains anything but safe characters.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, c := range s {
		if !isSafe(c) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func isSafe(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.ContainsRune("-_./=:,+@%", c)
}
