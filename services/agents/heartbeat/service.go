package heartbeat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"k8s.io/utils/clock"
)

const (
	// Path is the command-center endpoint heartbeats are posted to.
	Path = "/v1/nodes/heartbeat"
	// KeyHeader carries the shared node key.
	KeyHeader = "X-Node-Key"

	DefaultInterval = time.Second
	sendTimeout     = 5 * time.Second
	maxErrorBody    = 512
)

var (
	// ErrNotConfigured means the key or the command-center URL is missing.
	ErrNotConfigured = errors.New("heartbeat key and command center url are required")
	// ErrInsecureEndpoint means the command-center URL does not use https.
	ErrInsecureEndpoint = errors.New("command center url must use https")
	errAlreadyStarted   = errors.New("heartbeat already started")
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config identifies the node and the command center it reports to.
type Config struct {
	BaseURL  string
	Key      string
	NodeID   string
	Hostname string
	Interval time.Duration
}

// Options carries the client's collaborators. Zero values use real HTTP,
// wall time, and a disabled logger.
type Options struct {
	Doer   Doer
	Clock  clock.WithTicker
	Logger zerolog.Logger
}

// Client posts a liveness report to the command center on a fixed interval.
// Sends are fire-and-forget; failures are logged and never stop the loop.
type Client struct {
	endpoint string
	key      string
	payload  []byte
	interval time.Duration

	doer   Doer
	clock  clock.WithTicker
	logger zerolog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	pending sync.WaitGroup
}

// New validates cfg and returns a stopped Client. It returns ErrNotConfigured
// or ErrInsecureEndpoint when heartbeat must be skipped.
func New(cfg Config, opts Options) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	key := strings.TrimSpace(cfg.Key)
	if base == "" || key == "" {
		return nil, ErrNotConfigured
	}
	if err := ensureHTTPS(base); err != nil {
		return nil, err
	}

	if cfg.Hostname == "" {
		cfg.Hostname, _ = os.Hostname()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if opts.Doer == nil {
		opts.Doer = &http.Client{Timeout: sendTimeout}
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}

	payload, err := json.Marshal(map[string]string{
		"hostname": cfg.Hostname,
		"nodeId":   cfg.NodeID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	return &Client{
		endpoint: strings.TrimRight(base, "/") + Path,
		key:      key,
		payload:  payload,
		interval: cfg.Interval,
		doer:     opts.Doer,
		clock:    opts.Clock,
		logger:   opts.Logger.With().Str("component", "heartbeat").Logger(),
	}, nil
}

// Start sends one heartbeat immediately and then one per interval until ctx
// is cancelled or Stop is called.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return errAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	ticker := c.clock.NewTicker(c.interval)
	go c.run(ctx, ticker)

	c.logger.Info().Str("endpoint", c.endpoint).Dur("interval", c.interval).Msg("heartbeat started")
	return nil
}

// Stop ends the loop and waits for in-flight sends to finish.
func (c *Client) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	c.pending.Wait()
}

func (c *Client) run(ctx context.Context, ticker clock.Ticker) {
	defer close(c.done)
	defer ticker.Stop()

	c.fire(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			c.fire(ctx)
		}
	}
}

// fire sends without waiting; overlapping sends are allowed.
func (c *Client) fire(ctx context.Context) {
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		if err := c.send(ctx); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Warn().Err(err).Msg("heartbeat failed")
		}
	}()
}

func (c *Client) send(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(c.payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(KeyHeader, c.key)

	resp, err := c.doer.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("post heartbeat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("post heartbeat unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func ensureHTTPS(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse command center url: %w", err)
	}
	if parsed.Scheme != "https" || parsed.Host == "" {
		return fmt.Errorf("%w: %s", ErrInsecureEndpoint, raw)
	}
	return nil
}
