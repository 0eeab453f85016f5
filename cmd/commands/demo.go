package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/agentflow/clients/tui"
	"github.com/dohr-michael/agentflow/render"
	"github.com/dohr-michael/agentflow/stream"
	"github.com/dohr-michael/agentflow/stream/fake"
)

// NewDemoCommand returns the demo subcommand: the TUI against the built-in
// fake agent, no gateway needed.
func NewDemoCommand() *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "Launch the TUI against the built-in fake agent",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			store, closeStore, err := newStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			interval := time.Duration(cfg.Agent.TokenIntervalMs) * time.Millisecond
			agent := func(ctx context.Context, _, message string) (stream.Stream, error) {
				return fake.AssistantChat(ctx, demoReply(message), fake.Options{Interval: interval}), nil
			}

			return tui.Run(ctx, store, render.NewRegistry(), agent)
		},
	}
}

func demoReply(message string) string {
	return fmt.Sprintf(
		"You said: *%s*\n\nI looked that up and here is what I found:\n\n- this is a **simulated** agent\n- every token is streamed\n- tool calls show up above this message",
		message)
}
