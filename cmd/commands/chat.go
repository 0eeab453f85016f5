package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/agentflow/clients/tui"
	"github.com/dohr-michael/agentflow/render"
	"github.com/dohr-michael/agentflow/stream"
	"github.com/dohr-michael/agentflow/stream/sse"
)

// NewChatCommand returns the chat subcommand: the TUI against a gateway over
// SSE.
func NewChatCommand() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Launch the TUI against a running gateway",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "url",
				Usage: "Gateway base URL (default from config)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			baseURL := cmd.String("url")
			if baseURL == "" {
				baseURL = fmt.Sprintf("http://%s:%d", cfg.Gateway.Host, cfg.Gateway.Port)
			}
			client := sse.NewClient(baseURL, nil)

			store, closeStore, err := newStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			agent := func(ctx context.Context, taskID, message string) (stream.Stream, error) {
				return client.Chat(ctx, message, taskID)
			}

			return tui.Run(ctx, store, render.NewRegistry(), agent)
		},
	}
}
