package provisioner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultCommandTimeout bounds every provider CLI invocation.
	DefaultCommandTimeout = 120 * time.Second
	// DefaultMaxOutput caps captured stdout and stderr, each.
	DefaultMaxOutput = 1 << 20
)

// CommandRunner executes an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// CommandError carries the diagnostic output of a failed invocation.
type CommandError struct {
	Command  string
	Output   string
	TimedOut bool
	Err      error
}

func (e *CommandError) Error() string {
	switch {
	case e.TimedOut && e.Output != "":
		return fmt.Sprintf("%s timed out: %s", e.Command, e.Output)
	case e.TimedOut:
		return fmt.Sprintf("%s timed out", e.Command)
	case e.Output != "":
		return e.Output
	default:
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
}

func (e *CommandError) Unwrap() error { return e.Err }

// ExecRunner runs commands with a hard timeout and bounded output capture.
type ExecRunner struct {
	Timeout   time.Duration
	MaxOutput int
	Logger    zerolog.Logger
}

var _ CommandRunner = (*ExecRunner)(nil)

// NewExecRunner returns an ExecRunner using the default limits.
func NewExecRunner(logger zerolog.Logger) *ExecRunner {
	return &ExecRunner{
		Timeout:   DefaultCommandTimeout,
		MaxOutput: DefaultMaxOutput,
		Logger:    logger,
	}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	limit := r.MaxOutput
	if limit <= 0 {
		limit = DefaultMaxOutput
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	label := describe(name, args)
	stdout := &limitedBuffer{limit: limit}
	stderr := &limitedBuffer{limit: limit}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = 5 * time.Second

	start := time.Now()
	r.Logger.Debug().Str("command", label).Msg("running command")
	err := cmd.Run()
	r.Logger.Debug().Str("command", label).Dur("took", time.Since(start)).Err(err).Msg("command finished")

	if err != nil {
		output := strings.TrimSpace(stderr.String())
		if output == "" {
			output = strings.TrimSpace(stdout.String())
		}
		return stdout.Bytes(), &CommandError{
			Command:  label,
			Output:   output,
			TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded),
			Err:      err,
		}
	}
	if stdout.truncated {
		return nil, &CommandError{Command: label, Err: fmt.Errorf("output exceeded %d bytes", limit)}
	}
	return stdout.Bytes(), nil
}

func describe(name string, args []string) string {
	parts := []string{name}
	for _, a := range args {
		if strings.HasPrefix(a, "--") {
			break
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// limitedBuffer keeps the first limit bytes written and discards the rest
// so a chatty child process cannot grow memory without bound.
type limitedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	room := b.limit - b.buf.Len()
	if room <= 0 {
		b.truncated = b.truncated || len(p) > 0
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *limitedBuffer) Bytes() []byte  { return b.buf.Bytes() }
func (b *limitedBuffer) String() string { return b.buf.String() }
