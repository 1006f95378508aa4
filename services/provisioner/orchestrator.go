package provisioner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"k8s.io/utils/clock"

	"fleetd/pkg/retry"
	"fleetd/services/fleet"
)

const (
	DefaultPollAttempts = 12
	DefaultPollDelay    = 5 * time.Second
)

// Stage names the steps a clone request moves through.
type Stage string

const (
	StageReceived   Stage = "received"
	StageValidating Stage = "validating"
	StageInvoking   Stage = "invoking"
	StagePolling    Stage = "polling"
	StageRegistered Stage = "registered"
	StageFailed     Stage = "failed"
)

// ErrAddressUnconfirmed means the instance was created but no public address
// appeared within the poll budget.
var ErrAddressUnconfirmed = errors.New("instance created but its address is not yet confirmed")

// UnconfirmedError wraps ErrAddressUnconfirmed with the instance name.
type UnconfirmedError struct {
	Name     string
	Attempts int
}

func (e *UnconfirmedError) Error() string {
	return fmt.Sprintf("instance %s: %v after %d polls", e.Name, ErrAddressUnconfirmed, e.Attempts)
}

func (e *UnconfirmedError) Unwrap() error { return ErrAddressUnconfirmed }

// Registrar records a provisioned machine.
type Registrar interface {
	AddVM(ipAddress, machineStatus, ownerSessionID, vmType string) (fleet.VMSession, error)
}

// Instance is the provider-side identity of a cloned machine.
type Instance struct {
	Name      string `json:"name"`
	IPAddress string `json:"ipAddress,omitempty"`
}

// Result is returned by a successful clone.
type Result struct {
	Session  fleet.VMSession
	Instance Instance
}

// Options tune an Orchestrator. Zero values use the package defaults.
type Options struct {
	Defaults     Defaults
	PollAttempts int
	PollDelay    time.Duration
	Clock        clock.Clock
	Logger       zerolog.Logger
}

// Orchestrator clones instances from snapshots and registers them once their
// address is known. Each Clone call is independent; concurrent calls for the
// same instance name are not serialized.
type Orchestrator struct {
	provider Provider
	registry Registrar
	defaults Defaults
	poll     retry.Policy
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// New builds an Orchestrator bound to the provided dependencies.
func New(provider Provider, registry Registrar, opts Options) (*Orchestrator, error) {
	if provider == nil {
		return nil, errors.New("provider is required")
	}
	if registry == nil {
		return nil, errors.New("registry is required")
	}
	if opts.PollAttempts <= 0 {
		opts.PollAttempts = DefaultPollAttempts
	}
	if opts.PollDelay <= 0 {
		opts.PollDelay = DefaultPollDelay
	}

	return &Orchestrator{
		provider: provider,
		registry: registry,
		defaults: opts.Defaults,
		poll: retry.Policy{
			MaxAttempts: opts.PollAttempts,
			Delay:       opts.PollDelay,
			DelayFirst:  true,
			Clock:       opts.Clock,
		},
		logger: opts.Logger.With().Str("component", "provisioner").Logger(),
		tracer: otel.Tracer("fleetd/provisioner"),
	}, nil
}

// Clone runs one request to completion. Errors are *MissingFieldError when
// validation fails, *UnconfirmedError when the instance exists without a
// confirmed address (Result.Instance.Name is still set), and anything else
// for provider or registry failures. The create call is never retried.
func (o *Orchestrator) Clone(ctx context.Context, in CloneRequest, ownerSessionID string) (Result, error) {
	ctx, span := o.tracer.Start(ctx, "provisioner.clone")
	defer span.End()

	log := o.logger.With().Str("instance", in.InstanceName).Logger()
	stage := func(s Stage) {
		span.AddEvent(string(s))
		log.Debug().Str("stage", string(s)).Msg("clone stage")
	}
	fail := func(err error) (Result, error) {
		stage(StageFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	stage(StageReceived)
	stage(StageValidating)
	req, err := in.Resolve(o.defaults)
	if err != nil {
		return fail(err)
	}
	span.SetAttributes(
		attribute.String("lightsail.region", req.Region),
		attribute.String("lightsail.instance", req.InstanceName),
		attribute.String("lightsail.snapshot", req.InstanceSnapshotName),
	)

	// Once invoked, the instance exists whether or not the caller is still
	// waiting, so creation and polling run to their own bounds.
	ctx = context.WithoutCancel(ctx)

	stage(StageInvoking)
	if err := o.provider.CreateFromSnapshot(ctx, req); err != nil {
		log.Error().Err(err).Msg("create instance from snapshot failed")
		return fail(err)
	}
	log.Info().Str("snapshot", req.InstanceSnapshotName).Str("region", req.Region).Msg("instance creation accepted")

	stage(StagePolling)
	ip, attempts, err := o.awaitAddress(ctx, req)
	if err != nil {
		return fail(err)
	}
	if ip == "" {
		err := &UnconfirmedError{Name: req.InstanceName, Attempts: attempts}
		log.Warn().Int("attempts", attempts).Msg("instance address not confirmed")
		stage(StageFailed)
		span.SetStatus(codes.Error, err.Error())
		return Result{Instance: Instance{Name: req.InstanceName}}, err
	}

	session, err := o.registry.AddVM(ip, string(fleet.StatusRunning), ownerSessionID, "")
	if err != nil {
		return fail(fmt.Errorf("register session: %w", err))
	}
	stage(StageRegistered)
	log.Info().Str("ip", ip).Str("session_id", session.SessionID).Int("attempts", attempts).Msg("instance registered")

	return Result{
		Session:  session,
		Instance: Instance{Name: req.InstanceName, IPAddress: ip},
	}, nil
}

func (o *Orchestrator) awaitAddress(ctx context.Context, req CloneRequest) (string, int, error) {
	ctx, span := o.tracer.Start(ctx, "provisioner.poll_address")
	defer span.End()

	var ip string
	attempts, err := retry.Poll(ctx, o.poll, func(ctx context.Context, attempt int) (bool, error) {
		addr, err := o.provider.InstanceAddress(ctx, req.Region, req.InstanceName)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return false, ctxErr
			}
			o.logger.Warn().Err(err).Str("instance", req.InstanceName).Int("attempt", attempt).Msg("poll instance address")
			return false, nil
		}
		if !fleet.IsValidIPv4(addr) {
			return false, nil
		}
		ip = addr
		return true, nil
	})
	span.SetAttributes(attribute.Int("poll.attempts", attempts))
	if errors.Is(err, retry.ErrExhausted) {
		return "", attempts, nil
	}
	if err != nil {
		return "", attempts, err
	}
	return ip, attempts, nil
}
