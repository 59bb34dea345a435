package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/operion-triggered/pkg/config"
	"github.com/dukex/operion-triggered/pkg/consumers/remote"
	"github.com/dukex/operion-triggered/pkg/host"
	"github.com/dukex/operion-triggered/pkg/log"
	"github.com/dukex/operion-triggered/pkg/management"
	"github.com/dukex/operion-triggered/pkg/registry"
)

var (
	ErrUniqueIDRequired = errors.New("the unique id of the remote trigger is required")
	ErrNoHistory        = errors.New("no cycle history configured")
	ErrChannelRequired  = errors.New("the channel id is required")
)

func triggerCommand() *cli.Command {
	return &cli.Command{
		Name:      "trigger",
		Usage:     "Invoke the remote trigger of a running channel",
		ArgsUsage: "<unique-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "management-url",
				Usage:   "Base URL of the management server",
				Value:   "http://localhost:9990",
				Sources: cli.EnvVars("MANAGEMENT_URL"),
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the cycle to finish",
				Value: 5 * time.Minute,
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			uid := command.Args().First()
			if uid == "" {
				return ErrUniqueIDRequired
			}

			client := management.NewClient(command.String("management-url"), command.Duration("timeout"))

			err := client.Invoke(ctx, remote.ObjectName(uid), remote.TriggerOperation)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(command.Root().Writer, "cycle of %s completed\n", uid)

			return nil
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Load the configuration and build every channel without starting them",
		Flags: []cli.Flag{configFlag()},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))
			logger := log.WithModule("validate")

			cfg, err := config.Load(command.String("config"))
			if err != nil {
				return err
			}

			cfg.Persistence.URL = ""

			h, err := host.New(ctx, cfg, host.Options{Logger: logger})
			if err != nil {
				return err
			}

			if err := h.Close(ctx); err != nil {
				logger.WarnContext(ctx, "Failed to release validation resources", "error", err)
			}

			for _, ch := range cfg.Channels {
				_, _ = fmt.Fprintf(command.Root().Writer, "%s: %d workflow(s), trigger %s\n",
					ch.ID, len(ch.Workflows), ch.Trigger.Consumer.Type)
			}

			return nil
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "List the recorded cycles of a channel",
		ArgsUsage: "<channel-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Configuration file naming the history location",
				Sources: cli.EnvVars("OPERION_TRIGGERED_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Cycle history location, overrides the configuration",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of cycles to list",
				Value: 20,
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))
			logger := log.WithModule("history")

			channelID := command.Args().First()
			if channelID == "" {
				return ErrChannelRequired
			}

			databaseURL := command.String("database-url")
			if databaseURL == "" && command.String("config") != "" {
				cfg, err := config.Load(command.String("config"))
				if err != nil {
					return err
				}

				databaseURL = cfg.Persistence.URL
			}

			history, err := host.NewPersistence(ctx, logger, databaseURL)
			if err != nil {
				return err
			}

			if history == nil {
				return ErrNoHistory
			}

			defer func() {
				_ = history.Close(ctx)
			}()

			records, err := history.Cycles(ctx, channelID, int(command.Int("limit")))
			if err != nil {
				return err
			}

			for _, r := range records {
				line := fmt.Sprintf("%s\t%s\t%s\t%s\t%s", r.StartedAt.Format(time.RFC3339), r.ChannelID, r.ID, r.Outcome, r.Duration())
				if r.Error != "" {
					line += "\t" + r.Error
				}

				_, _ = fmt.Fprintln(command.Root().Writer, line)
			}

			return nil
		},
	}
}

func componentsCommand() *cli.Command {
	return &cli.Command{
		Name:  "components",
		Usage: "List the registered component types",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "plugins-path",
				Usage:   "Directory containing component plugins",
				Sources: cli.EnvVars("PLUGINS_PATH"),
			},
		},
		Action: func(_ context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			reg := registry.NewDefault(log.WithModule("components"))

			if path := command.String("plugins-path"); path != "" {
				if err := reg.LoadPlugins(path); err != nil {
					return err
				}
			}

			for _, c := range reg.Components() {
				_, _ = fmt.Fprintf(command.Root().Writer, "%-9s %-12s %s\n", c.Kind, c.ID, c.Description)
			}

			return nil
		},
	}
}
