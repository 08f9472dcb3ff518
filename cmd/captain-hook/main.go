package main

import (
	"fmt"
	"log"
	"os"

	"github.com/guseggert/captainhook/bridge"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "captain-hook",
		Usage: "answer git filter-repo callbacks from Go over a local socket",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Minimum log level. One of [debug,info,warn,error].",
				Value:   "info",
				EnvVars: []string{"CAPTAIN_HOOK_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "name",
				Usage:   "The bridge name. The socket is created at <temp-dir>/<name>.sock.",
				Value:   bridge.DefaultName,
				EnvVars: []string{"CAPTAIN_HOOK_NAME"},
			},
			&cli.StringFlag{
				Name:    "temp-dir",
				Usage:   "The directory the socket is created in. Defaults to the system temp dir.",
				Value:   os.TempDir(),
				EnvVars: []string{"CAPTAIN_HOOK_TEMP_DIR"},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			callCommand(),
			filterCommand(),
		},
	}
}

func newLogger(ctx *cli.Context) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(ctx.String("log-level"))
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

func socketPath(ctx *cli.Context) (string, error) {
	b, err := bridge.NewBridge(ctx.String("name"), nil, bridge.WithTempDir(ctx.String("temp-dir")))
	if err != nil {
		return "", err
	}
	return b.Path(), nil
}
