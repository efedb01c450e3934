package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"
)

// Version is the application version, set at build time.
var Version = "dev"

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "safechain"
	app.Usage = "Catalog and share files on the Neo blockchain"
	app.Version = Version
	app.ErrWriter = os.Stderr
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "Path to the YAML configuration file",
			Value: "config.yml",
		},
		cli.BoolFlag{
			Name:  "debug, d",
			Usage: "Enable debug logging",
		},
	}
	app.Commands = []cli.Command{
		filesCommand(),
		accessCommand(),
		sharedCommand(),
		deployCommand(),
		demoCommand(),
	}

	return app
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app := newApp()
	app.Metadata = map[string]any{ctxKey: ctx}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		cancel()
		os.Exit(1)
	}
}
