package config

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
)

// Config holds runtime configuration for fleetd.
type Config struct {
	Addr           string   `env:"FLEET_ADDR,default=:8080"`
	AllowedIPs     string   `env:"FLEET_ALLOWED_IPS"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"`
	NATSURL        string   `env:"NATS_URL"`
	OTLPEndpoint   string   `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	LogLevel       string   `env:"LOG_LEVEL,default=info"`
	LogFormat      string   `env:"LOG_FORMAT,default=console"`

	Lightsail LightsailConfig `env:", prefix=LIGHTSAIL_"`
	Node      NodeConfig
}

// LightsailConfig carries the process-wide clone defaults and the provider CLI location.
type LightsailConfig struct {
	CLIPath          string `env:"CLI_PATH,default=aws"`
	Region           string `env:"DEFAULT_REGION"`
	AvailabilityZone string `env:"DEFAULT_AVAILABILITY_ZONE"`
	SnapshotName     string `env:"DEFAULT_SNAPSHOT_NAME"`
	BundleID         string `env:"DEFAULT_BUNDLE_ID"`
	KeyPairName      string `env:"DEFAULT_KEY_PAIR_NAME"`
	IPAddressType    string `env:"DEFAULT_IP_ADDRESS_TYPE"`
}

// NodeConfig controls the worker-node heartbeat. HeartbeatKey is shared by
// the sending agent and the receiving API.
type NodeConfig struct {
	Mode              bool          `env:"NODE_MODE,default=false"`
	HeartbeatKey      string        `env:"NODE_HEARTBEAT_KEY"`
	CommandURL        string        `env:"COMMAND_CENTER_URL"`
	ID                string        `env:"NODE_ID"`
	HeartbeatInterval time.Duration `env:"NODE_HEARTBEAT_INTERVAL,default=1s"`
}

// Load returns a Config populated from environment variables.
func Load(ctx context.Context) (Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return Config{}, err
	}

	cfg.AllowedIPs = strings.TrimSpace(cfg.AllowedIPs)
	cfg.Node.HeartbeatKey = strings.TrimSpace(cfg.Node.HeartbeatKey)
	cfg.Node.CommandURL = strings.TrimSpace(cfg.Node.CommandURL)
	if strings.TrimSpace(cfg.Node.ID) == "" {
		if host, err := os.Hostname(); err == nil {
			cfg.Node.ID = host
		}
	}
	return cfg, nil
}

// Level parses LogLevel, falling back to info on unknown values.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(c.LogLevel)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
