package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"fleetd/pkg/bus"
)

func newEventsCommand() *cobra.Command {
	var (
		subject string
		durable string
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail fleet events from the event bus",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger, err := setup(ctx)
			if err != nil {
				return err
			}
			if cfg.NATSURL == "" {
				return errors.New("NATS_URL is required")
			}

			b, err := bus.New(cfg.NATSURL)
			if err != nil {
				return err
			}
			defer b.Close()

			sub, err := b.Subscribe(ctx, subject, durable, func(_ context.Context, subj string, data []byte) error {
				logger.Info().Str("subject", subj).RawJSON("event", data).Msg("fleet event")
				return nil
			})
			if err != nil {
				return err
			}
			defer sub.Close()

			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", bus.SubjectPrefix+">", "Subject filter")
	cmd.Flags().StringVar(&durable, "durable", "", "Durable consumer name; empty starts from new events")
	return cmd
}
