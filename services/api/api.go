package api

import (
	"context"
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"fleetd/services/fleet"
	"fleetd/services/provisioner"
)

const (
	sessionRegisteredSubject = "fleet.sessions.registered"
	instanceClonedSubject    = "fleet.instances.cloned"
	nodeDiscoveredSubject    = "fleet.nodes.discovered"

	// SessionHeader carries the caller's correlation id.
	SessionHeader = "X-Session-Id"
	// NodeKeyHeader carries the shared heartbeat key.
	NodeKeyHeader = "X-Node-Key"
)

// Cloner provisions an instance from a snapshot and registers it.
type Cloner interface {
	Clone(ctx context.Context, in provisioner.CloneRequest, ownerSessionID string) (provisioner.Result, error)
}

// Publisher emits fleet events. A nil Publisher disables publication.
type Publisher interface {
	Publish(ctx context.Context, subject string, v any) error
}

// Options carries the dependencies of the HTTP layer.
type Options struct {
	Sessions  *fleet.SessionRegistry
	Nodes     *fleet.NodePingRegistry
	Cloner    Cloner
	Publisher Publisher

	AllowedIPs     string
	AllowedOrigins []string
	HeartbeatKey   string

	// Registerer and Gatherer default to the prometheus globals.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	Logger     zerolog.Logger
}

// API serves the fleet-control and heartbeat endpoints.
type API struct {
	sessions  *fleet.SessionRegistry
	nodes     *fleet.NodePingRegistry
	cloner    Cloner
	publisher Publisher

	gate           *AccessGate
	allowedOrigins []string
	heartbeatKey   []byte

	gatherer prometheus.Gatherer
	metrics  *metrics
	logger   zerolog.Logger
}

// New validates the options and builds the API.
func New(opts Options) (*API, error) {
	if opts.Sessions == nil {
		return nil, errors.New("session registry is required")
	}
	if opts.Nodes == nil {
		return nil, errors.New("node ping registry is required")
	}
	if opts.Cloner == nil {
		return nil, errors.New("cloner is required")
	}
	if opts.Registerer == nil {
		opts.Registerer = prometheus.DefaultRegisterer
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	logger := opts.Logger.With().Str("component", "api").Logger()
	m := newMetrics(opts.Registerer, opts.Nodes)

	gate := NewAccessGate(opts.AllowedIPs, logger, m.accessDenied)
	if gate.Empty() {
		logger.Warn().Msg("FLEET_ALLOWED_IPS is empty; fleet endpoints will deny every caller")
	}

	key := strings.TrimSpace(opts.HeartbeatKey)
	if key == "" {
		logger.Warn().Msg("NODE_HEARTBEAT_KEY is empty; heartbeats will be rejected")
	}

	return &API{
		sessions:       opts.Sessions,
		nodes:          opts.Nodes,
		cloner:         opts.Cloner,
		publisher:      opts.Publisher,
		gate:           gate,
		allowedOrigins: opts.AllowedOrigins,
		heartbeatKey:   []byte(key),
		gatherer:       opts.Gatherer,
		metrics:        m,
		logger:         logger,
	}, nil
}
