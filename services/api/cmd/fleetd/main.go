package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"fleetd/internal/config"
	"fleetd/internal/version"
	"fleetd/pkg/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           version.Name,
		Short:         "VM fleet registry, snapshot provisioning, and node heartbeat",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newAgentCommand())
	cmd.AddCommand(newEventsCommand())
	return cmd
}

// setup loads .env and the environment, then installs the process logger.
func setup(ctx context.Context) (config.Config, zerolog.Logger, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(ctx)
	if err != nil {
		return config.Config{}, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}

	logger := telemetry.NewLogger(os.Stderr, cfg.Level(), cfg.LogFormat, version.Name)
	log.Logger = logger
	return cfg, logger, nil
}
