// Package pip wraps the Python package installer.
package pip

import (
	"context"

	"github.com/guseggert/captainhook/shell"
	"go.uber.org/zap"
)

type InstallOptions struct {
	// User installs into the user site directory.
	User bool
	Run  shell.RunOptions
}

type Pip struct {
	runner *shell.Runner
}

func New(dir string, log *zap.Logger) *Pip {
	return &Pip{runner: shell.NewRunner("pip", dir, log)}
}

func (p *Pip) Install(ctx context.Context, pkg string, opts InstallOptions) (*shell.Result, error) {
	args := []string{"install"}
	if opts.User {
		args = append(args, "--user")
	}
	args = append(args, pkg)
	return p.runner.Run(ctx, args, opts.Run)
}
