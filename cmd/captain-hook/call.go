package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/guseggert/captainhook/bridge"
	"github.com/urfave/cli/v2"
)

func callCommand() *cli.Command {
	return &cli.Command{
		Name:      "call",
		Usage:     "call a command on a running bridge and print the result",
		ArgsUsage: "<command> [payload]",
		Description: "The payload is sent as JSON if it parses as JSON, and as a string otherwise. " +
			"An array payload is spread into positional arguments.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "raw",
				Usage: "Send the first argument verbatim as the whole message.",
			},
		},
		Action: func(ctx *cli.Context) error {
			if ctx.NArg() < 1 || ctx.NArg() > 2 {
				return cli.ShowSubcommandHelp(ctx)
			}
			logger, err := newLogger(ctx)
			if err != nil {
				return err
			}
			defer logger.Sync()

			path, err := socketPath(ctx)
			if err != nil {
				return err
			}
			client, err := bridge.Dial(ctx.Context, path, bridge.WithClientLogger(logger))
			if err != nil {
				return err
			}
			defer client.Close()

			var resp json.RawMessage
			if ctx.Bool("raw") {
				resp, err = client.Send(ctx.Context, ctx.Args().First())
			} else {
				resp, err = client.Call(ctx.Context, ctx.Args().First(), payload(ctx.Args().Get(1)))
			}
			var remoteErr *bridge.RemoteError
			if errors.As(err, &remoteErr) {
				return cli.Exit(remoteErr.Error(), 1)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(ctx.App.Writer, string(resp))
			return err
		},
	}
}

func payload(arg string) any {
	if arg == "" {
		return nil
	}
	if json.Valid([]byte(arg)) {
		return json.RawMessage(arg)
	}
	return arg
}
