package config

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"NODE_ID": "node-a",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Empty(t, cfg.AllowedIPs)
	assert.Equal(t, "aws", cfg.Lightsail.CLIPath)
	assert.False(t, cfg.Node.Mode)
	assert.Equal(t, time.Second, cfg.Node.HeartbeatInterval)
	assert.Equal(t, "node-a", cfg.Node.ID)
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"FLEET_ADDR":                          ":9000",
		"FLEET_ALLOWED_IPS":                   " 10.0.0.1,10.0.0.2 ",
		"LIGHTSAIL_DEFAULT_REGION":            "us-east-1",
		"LIGHTSAIL_DEFAULT_AVAILABILITY_ZONE": "us-east-1a",
		"LIGHTSAIL_DEFAULT_SNAPSHOT_NAME":     "golden",
		"LIGHTSAIL_DEFAULT_BUNDLE_ID":         "small_3_0",
		"LIGHTSAIL_CLI_PATH":                  "/usr/local/bin/aws",
		"NODE_MODE":                           "true",
		"NODE_HEARTBEAT_KEY":                  " secret ",
		"COMMAND_CENTER_URL":                  "https://command.example.com",
		"NODE_HEARTBEAT_INTERVAL":             "250ms",
		"LOG_LEVEL":                           "DEBUG",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "10.0.0.1,10.0.0.2", cfg.AllowedIPs)
	assert.Equal(t, "us-east-1", cfg.Lightsail.Region)
	assert.Equal(t, "us-east-1a", cfg.Lightsail.AvailabilityZone)
	assert.Equal(t, "golden", cfg.Lightsail.SnapshotName)
	assert.Equal(t, "small_3_0", cfg.Lightsail.BundleID)
	assert.Equal(t, "/usr/local/bin/aws", cfg.Lightsail.CLIPath)
	assert.True(t, cfg.Node.Mode)
	assert.Equal(t, "secret", cfg.Node.HeartbeatKey)
	assert.Equal(t, "https://command.example.com", cfg.Node.CommandURL)
	assert.Equal(t, 250*time.Millisecond, cfg.Node.HeartbeatInterval)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"NODE_HEARTBEAT_INTERVAL": "soon",
	}))
	require.Error(t, err)
}
