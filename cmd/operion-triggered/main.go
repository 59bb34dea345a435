package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:                  "operion-triggered",
		EnableShellCompletion: true,
		Usage:                 "Run triggered channels whose workflows start on demand and stop when their work is done",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			runCommand(),
			triggerCommand(),
			validateCommand(),
			historyCommand(),
			componentsCommand(),
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "config",
		Aliases:  []string{"c"},
		Usage:    "Path to the channels configuration file",
		Required: true,
		Sources:  cli.EnvVars("OPERION_TRIGGERED_CONFIG"),
	}
}
