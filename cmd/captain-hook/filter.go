package main

import (
	"fmt"
	"os"

	"github.com/guseggert/captainhook/filterrepo"
	"github.com/guseggert/captainhook/git"
	"github.com/guseggert/captainhook/internal/files"
	"github.com/guseggert/captainhook/internal/rewrite"
	"github.com/urfave/cli/v2"
)

func filterCommand() *cli.Command {
	return &cli.Command{
		Name:  "filter",
		Usage: "rewrite the history of a repository with the rules in a YAML file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "repo",
				Usage: "The repository to rewrite. Defaults to the repository containing the working directory.",
			},
			&cli.StringFlag{
				Name:     "rules",
				Usage:    "The YAML rules file.",
				Required: true,
				EnvVars:  []string{"CAPTAIN_HOOK_RULES"},
			},
			&cli.BoolFlag{
				Name:  "preserve-origin",
				Usage: "Keep the origin remote, which filter-repo removes otherwise.",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Log the commands instead of running them.",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Rewrite even if the repository is not a fresh clone.",
				Value: true,
			},
			&cli.StringSliceFlag{
				Name:  "path",
				Usage: "Only keep these paths. May be repeated.",
			},
			&cli.StringSliceFlag{
				Name:  "refs",
				Usage: "Only rewrite these refs. May be repeated.",
			},
		},
		Action: func(ctx *cli.Context) error {
			logger, err := newLogger(ctx)
			if err != nil {
				return err
			}
			defer logger.Sync()

			rules, err := rewrite.Load(ctx.String("rules"))
			if err != nil {
				return err
			}
			if rules.Empty() {
				return fmt.Errorf("%s has no rules", ctx.String("rules"))
			}

			repo := ctx.String("repo")
			if repo == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				repo, err = files.RepoRoot(wd)
				if err != nil {
					return fmt.Errorf("finding repository: %w", err)
				}
			}

			f := filterrepo.New(
				repo,
				filterrepo.WithLogger(logger),
				filterrepo.WithBridgeName(ctx.String("name")),
				filterrepo.WithTempDir(ctx.String("temp-dir")),
				filterrepo.WithPreserveOrigin(ctx.Bool("preserve-origin")),
				filterrepo.WithDryRun(ctx.Bool("dry-run")),
				filterrepo.WithForce(ctx.Bool("force")),
			)
			_, err = f.CommitCallback(ctx.Context, rules.Commit, git.FilterRepoOptions{
				Paths: ctx.StringSlice("path"),
				Refs:  ctx.StringSlice("refs"),
			})
			if err != nil {
				return fmt.Errorf("rewriting %s: %w", repo, err)
			}
			return nil
		},
	}
}
