package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fleetd/internal/config"
	"fleetd/internal/version"
	"fleetd/pkg/bus"
	"fleetd/pkg/telemetry"
	"fleetd/services/agents/heartbeat"
	"fleetd/services/api"
	"fleetd/services/fleet"
	"fleetd/services/provisioner"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the fleet API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger, err := setup(ctx)
			if err != nil {
				return err
			}
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	shutdownTracing, traced, err := telemetry.Init(ctx, version.Name, cfg.OTLPEndpoint, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown otel")
		}
	}()

	var publisher api.Publisher
	if cfg.NATSURL != "" {
		b, err := bus.New(cfg.NATSURL)
		if err != nil {
			// Events are advisory; the API runs without them.
			logger.Warn().Err(err).Msg("connect event bus; publication disabled")
		} else {
			defer b.Close()
			publisher = b
		}
	}

	sessions := fleet.NewSessionRegistry(nil)
	nodes := fleet.NewNodePingRegistry(nil, fleet.DefaultPingCapacity)

	cli, err := provisioner.NewLightsailCLI(cfg.Lightsail.CLIPath, provisioner.NewExecRunner(logger))
	if err != nil {
		return err
	}
	orchestrator, err := provisioner.New(cli, sessions, provisioner.Options{
		Defaults: provisioner.Defaults{
			Region:               cfg.Lightsail.Region,
			AvailabilityZone:     cfg.Lightsail.AvailabilityZone,
			InstanceSnapshotName: cfg.Lightsail.SnapshotName,
			BundleID:             cfg.Lightsail.BundleID,
			KeyPairName:          cfg.Lightsail.KeyPairName,
			IPAddressType:        cfg.Lightsail.IPAddressType,
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	a, err := api.New(api.Options{
		Sessions:       sessions,
		Nodes:          nodes,
		Cloner:         orchestrator,
		Publisher:      publisher,
		AllowedIPs:     cfg.AllowedIPs,
		AllowedOrigins: cfg.AllowedOrigins,
		HeartbeatKey:   cfg.Node.HeartbeatKey,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	if cfg.Node.Mode {
		if hb := startHeartbeat(ctx, cfg.Node, logger); hb != nil {
			defer hb.Stop()
		}
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.Routes(traced),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("version", version.Version).Msg("starting fleetd")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Clone requests may still be polling; give them their full budget.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown server")
	}
	return nil
}

// startHeartbeat returns nil when heartbeat is skipped.
func startHeartbeat(ctx context.Context, node config.NodeConfig, logger zerolog.Logger) *heartbeat.Client {
	hb, err := heartbeat.New(heartbeat.Config{
		BaseURL:  node.CommandURL,
		Key:      node.HeartbeatKey,
		NodeID:   node.ID,
		Interval: node.HeartbeatInterval,
	}, heartbeat.Options{Logger: logger})
	if err != nil {
		logger.Warn().Err(err).Msg("heartbeat disabled")
		return nil
	}
	if err := hb.Start(ctx); err != nil {
		logger.Warn().Err(err).Msg("heartbeat disabled")
		return nil
	}
	return hb
}
