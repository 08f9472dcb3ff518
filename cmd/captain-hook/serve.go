package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/guseggert/captainhook/bridge"
	"github.com/guseggert/captainhook/bridge/command"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
)

func serveRegistry() *command.Registry {
	return command.NewRegistry(map[string]command.Handler{
		"ping": command.Nullary(func(ctx context.Context) (string, error) { return "pong", nil }),
		"echo": command.Echo,
	})
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run a bridge with the ping and echo commands until a termination signal arrives",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "The address to serve Prometheus metrics on. Disabled when empty.",
				EnvVars: []string{"CAPTAIN_HOOK_METRICS_ADDR"},
			},
			&cli.DurationFlag{
				Name:  "idle-timeout",
				Usage: "Close connections that send nothing for this long. Disabled when zero.",
			},
			&cli.IntFlag{
				Name:  "max-buffer-size",
				Usage: "The most bytes buffered for one unterminated message. Unlimited when zero.",
			},
			&cli.IntFlag{
				Name:  "dispatch-limit",
				Usage: "The most commands of one message run at once. Unlimited when zero.",
			},
		},
		Action: func(ctx *cli.Context) error {
			logger, err := newLogger(ctx)
			if err != nil {
				return err
			}
			defer logger.Sync()
			log := logger.Sugar()

			promReg := prometheus.NewRegistry()
			promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			registry := serveRegistry()
			b, err := bridge.NewBridge(
				ctx.String("name"),
				registry,
				bridge.WithLogger(logger),
				bridge.WithTempDir(ctx.String("temp-dir")),
				bridge.WithMetrics(bridge.NewMetrics(promReg)),
				bridge.WithIdleTimeout(ctx.Duration("idle-timeout")),
				bridge.WithMaxBufferSize(ctx.Int("max-buffer-size")),
				bridge.WithDispatchLimit(ctx.Int("dispatch-limit")),
			)
			if err != nil {
				return fmt.Errorf("building bridge: %w", err)
			}
			if err := b.Connect(ctx.Context); err != nil {
				return err
			}
			done := b.Done()
			defer b.Close()
			defer b.CloseOnPanic()

			if addr := ctx.String("metrics-addr"); addr != "" {
				listener, err := net.Listen("tcp", addr)
				if err != nil {
					return fmt.Errorf("listening on metrics address: %w", err)
				}
				server := &http.Server{Handler: newRouter(promReg, registry, b)}
				defer server.Close()
				go func() {
					err := server.Serve(listener)
					if err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Errorw("metrics server failed", "Error", err)
					}
				}()
				log.Infow("serving metrics", "Addr", listener.Addr().String())
			}

			select {
			case <-done:
				log.Info("bridge closed")
			case <-ctx.Context.Done():
				log.Info("shutting down")
			}
			return nil
		},
	}
}
