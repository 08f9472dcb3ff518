package filterrepo

import (
	"context"

	"github.com/guseggert/captainhook/bridge/command"
	"github.com/guseggert/captainhook/git"
	"github.com/guseggert/captainhook/shell"
)

// StringFunc rewrites one of the string values filter-repo hands to name, email, message, refname and filename callbacks.
type StringFunc = func(ctx context.Context, s string) (string, error)

func (f *FilterRepo) stringCallback(ctx context.Context, kind git.CallbackKind, fn StringFunc, opts git.FilterRepoOptions) (*shell.Result, error) {
	return f.Callback(ctx, kind, opts, command.Func(fn))
}

func (f *FilterRepo) NameCallback(ctx context.Context, fn StringFunc, opts git.FilterRepoOptions) (*shell.Result, error) {
	return f.stringCallback(ctx, git.Name, fn, opts)
}

func (f *FilterRepo) EmailCallback(ctx context.Context, fn StringFunc, opts git.FilterRepoOptions) (*shell.Result, error) {
	return f.stringCallback(ctx, git.Email, fn, opts)
}

func (f *FilterRepo) MessageCallback(ctx context.Context, fn StringFunc, opts git.FilterRepoOptions) (*shell.Result, error) {
	return f.stringCallback(ctx, git.Message, fn, opts)
}

func (f *FilterRepo) RefnameCallback(ctx context.Context, fn StringFunc, opts git.FilterRepoOptions) (*shell.Result, error) {
	return f.stringCallback(ctx, git.Refname, fn, opts)
}

// FilenameCallback rewrites file paths. Returning an empty path removes the file from the commit.
func (f *FilterRepo) FilenameCallback(ctx context.Context, fn StringFunc, opts git.FilterRepoOptions) (*shell.Result, error) {
	return f.Callback(ctx, git.Filename, opts, filenameHandler(fn))
}

func filenameHandler(fn StringFunc) command.Handler {
	return command.Func(func(ctx context.Context, filename string) (*string, error) {
		renamed, err := fn(ctx, filename)
		if err != nil || renamed == "" {
			return nil, err
		}
		return &renamed, nil
	})
}

func (f *FilterRepo) BlobCallback(ctx context.Context, fn func(ctx context.Context, blob Blob) (Blob, error), opts git.FilterRepoOptions) (*shell.Result, error) {
	return f.Callback(ctx, git.Blob, opts, command.Func(fn))
}

func (f *FilterRepo) CommitCallback(ctx context.Context, fn func(ctx context.Context, commit Commit) (Commit, error), opts git.FilterRepoOptions) (*shell.Result, error) {
	return f.Callback(ctx, git.Commit, opts, CommitHandler(fn))
}

func (f *FilterRepo) TagCallback(ctx context.Context, fn func(ctx context.Context, tag Tag) (Tag, error), opts git.FilterRepoOptions) (*shell.Result, error) {
	return f.Callback(ctx, git.Tag, opts, command.Func(fn))
}

func (f *FilterRepo) ResetCallback(ctx context.Context, fn func(ctx context.Context, reset Reset) (Reset, error), opts git.FilterRepoOptions) (*shell.Result, error) {
	return f.Callback(ctx, git.Reset, opts, command.Func(fn))
}

// CommitHandler adapts fn into a bridge handler that speaks PythonCommit on the wire.
func CommitHandler(fn func(ctx context.Context, commit Commit) (Commit, error)) command.Handler {
	return command.Func(func(ctx context.Context, pc PythonCommit) (PythonCommit, error) {
		c, err := pc.Commit()
		if err != nil {
			return PythonCommit{}, err
		}
		c, err = fn(ctx, c)
		if err != nil {
			return PythonCommit{}, err
		}
		return c.PythonCommit(), nil
	})
}
