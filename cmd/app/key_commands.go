package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/fieldvault/fieldvault/cmd/app/commands"
	"github.com/fieldvault/fieldvault/internal/app"
	"github.com/fieldvault/fieldvault/internal/config"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "provision-key",
			Usage: "Provision the wrapped data key for an entity ahead of its first request",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "entity-key",
					Aliases:  []string{"e"},
					Required: true,
					Usage:    "Entity identifier to provision (e.g., user-42)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				keyResolver, err := container.KeyResolver()
				if err != nil {
					return err
				}

				repository, err := container.EntityKeyRepository()
				if err != nil {
					return err
				}

				return commands.RunProvisionKey(
					ctx,
					keyResolver,
					repository,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("entity-key"),
				)
			},
		},
		{
			Name:  "rekey-key",
			Usage: "Replace an entity's wrapped data key with a freshly provisioned one",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "entity-key",
					Aliases:  []string{"e"},
					Required: true,
					Usage:    "Entity identifier to re-key (e.g., user-42)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				txManager, err := container.TxManager()
				if err != nil {
					return err
				}

				keyResolver, err := container.KeyResolver()
				if err != nil {
					return err
				}

				repository, err := container.EntityKeyRepository()
				if err != nil {
					return err
				}

				return commands.RunRekeyKey(
					ctx,
					txManager,
					keyResolver,
					repository,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("entity-key"),
				)
			},
		},
	}
}
