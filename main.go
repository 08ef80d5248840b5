package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/smazurov/framebridge/cmd"
	"github.com/smazurov/framebridge/internal/config"
	"github.com/smazurov/framebridge/internal/logging"
	"github.com/smazurov/framebridge/internal/video/cv"
	"github.com/smazurov/framebridge/internal/version"
)

func main() {
	app := &cmd.App{Backend: cv.Backend}

	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *cmd.Options) {
		// Load configuration automatically
		if err := config.LoadConfig(opts, cli.Root()); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		logging.Initialize(opts.LoggingConfig())
		slog.Debug("Configuration loaded", "config", opts.Config, "channel", opts.ChannelName)
		app.Options = opts

		// Without a subcommand there is nothing to run.
		hooks.OnStart(func() {
			_ = cli.Root().Help()
		})
	})

	root := cli.Root()
	root.Use = "framebridge"
	root.Short = "Share camera frames between processes through shared memory"
	root.Version = version.String()

	root.AddCommand(cmd.CreateCaptureCmd(app))
	root.AddCommand(cmd.CreateTrackCmd(app))
	root.AddCommand(cmd.CreateDevicesCmd(app))

	cli.Run()
}
