package main

import (
	"errors"

	"github.com/spf13/cobra"
)

func newAgentCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "agent",
		Short: "Report this worker node to the command center until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger, err := setup(ctx)
			if err != nil {
				return err
			}

			hb := startHeartbeat(ctx, cfg.Node, logger)
			if hb == nil {
				return errors.New("heartbeat is not configured")
			}
			<-ctx.Done()
			hb.Stop()
			logger.Info().Msg("heartbeat stopped")
			return nil
		},
	}
}
