package daemon

import (
	"context"
	"encoding/json"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
)

// State of the daemon subprocess as the client sees it.
type State int

const (
	StateNotStarted State = iota
	StateStarting
	StateReady
	StateBusy
	StateShuttingDown
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateBusy:
		return "busy"
	case StateShuttingDown:
		return "shutting-down"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// CompileError is a source error reported by the daemon. It is
// distinguished from transport errors, which mean the daemon itself is
// unhealthy.
type CompileError struct {
	Message    string
	Kind       string
	Diagnostic string
}

func (e *CompileError) Error() string { return e.Message }

// Client owns a daemon subprocess: lazy start, ready handshake, serialized
// requests, and kill-on-failure so a wedged process is never reused and
// never orphaned.
type Client struct {
	path string
	args []string

	startTimeout   time.Duration
	requestTimeout time.Duration

	mu     sync.Mutex
	state  State
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

// ClientOption configures a Client.
type ClientOption func(*Client)

func WithStartTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.startTimeout = d }
}

func WithRequestTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.requestTimeout = d }
}

// NewClient prepares a client for the daemon binary at path. The process
// starts on the first request.
func NewClient(path string, args []string, opts ...ClientOption) *Client {
	c := &Client{
		path:           path,
		args:           args,
		state:          StateNotStarted,
		startTimeout:   10 * time.Second,
		requestTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State reports the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Compile sends one request, starting the daemon first if needed.
// Requests are serialized; the daemon handles one at a time.
func (c *Client) Compile(ctx context.Context, req Request) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureStartedLocked(ctx); err != nil {
		return nil, err
	}
	if !c.aliveLocked() {
		c.failLocked()
		return nil, errors.New("daemon process exited unexpectedly")
	}

	c.state = StateBusy
	resp, err := c.roundTripLocked(ctx, req)
	if err != nil {
		// A source error is a normal response; the daemon stays healthy
		// and ready for the next request. Only transport failures poison
		// the process.
		var cerr *CompileError
		if errors.As(err, &cerr) {
			c.state = StateReady
			return nil, err
		}
		c.failLocked()
		return nil, err
	}
	c.state = StateReady
	return resp, nil
}

func (c *Client) ensureStartedLocked(ctx context.Context) error {
	switch c.state {
	case StateReady:
		return nil
	case StateNotStarted, StateStopped, StateFailed:
	default:
		return errors.Errorf("daemon client in state %s", c.state)
	}

	log := zerolog.Ctx(ctx)
	c.state = StateStarting
	log.Debug().Str("path", c.path).Msg("starting daemon")

	cmd := exec.Command(c.path, c.args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		c.state = StateFailed
		return errors.Errorf("opening daemon stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		c.state = StateFailed
		return errors.Errorf("opening daemon stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		c.state = StateFailed
		return errors.Errorf("starting daemon: %w", err)
	}
	c.cmd = cmd
	c.stdin = stdin
	c.stdout = stdout

	payload, err := c.readFrameTimeout(ctx, c.startTimeout)
	if err != nil {
		c.failLocked()
		return errors.Errorf("waiting for daemon ready: %w", err)
	}
	var ready struct {
		Ready bool `json:"ready"`
	}
	if jerr := json.Unmarshal(payload, &ready); jerr != nil || !ready.Ready {
		c.failLocked()
		return errors.New("daemon sent malformed ready handshake")
	}

	c.state = StateReady
	log.Debug().Msg("daemon ready")
	return nil
}

func (c *Client) roundTripLocked(ctx context.Context, req Request) (*Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Errorf("encoding request: %w", err)
	}
	if err := WriteFrame(c.stdin, payload); err != nil {
		return nil, errors.Errorf("sending request: %w", err)
	}

	raw, err := c.readFrameTimeout(ctx, c.requestTimeout)
	if err != nil {
		return nil, errors.Errorf("reading response: %w", err)
	}

	var probe ErrorResponse
	if jerr := json.Unmarshal(raw, &probe); jerr == nil && probe.Error != "" {
		return nil, &CompileError{
			Message:    probe.Error,
			Kind:       probe.Kind,
			Diagnostic: probe.Diagnostic,
		}
	}

	var resp Response
	if jerr := json.Unmarshal(raw, &resp); jerr != nil {
		return nil, errors.Errorf("decoding response: %w", jerr)
	}
	return &resp, nil
}

// readFrameTimeout reads one frame, killing the process if the deadline
// passes so the blocked read unwinds.
func (c *Client) readFrameTimeout(ctx context.Context, timeout time.Duration) ([]byte, error) {
	type frame struct {
		payload []byte
		err     error
	}
	done := make(chan frame, 1)
	go func() {
		payload, err := ReadFrame(c.stdout)
		done <- frame{payload, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case f := <-done:
		return f.payload, f.err
	case <-timer.C:
		c.killLocked()
		return nil, errors.New("daemon response timed out")
	case <-ctx.Done():
		c.killLocked()
		return nil, ctx.Err()
	}
}

func (c *Client) aliveLocked() bool {
	return c.cmd != nil && c.cmd.ProcessState == nil
}

func (c *Client) failLocked() {
	c.killLocked()
	c.state = StateFailed
}

func (c *Client) killLocked() {
	if c.cmd == nil {
		return
	}
	if c.stdin != nil {
		_ = c.stdin.Close()
	}
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	// Wait may only be called once per process; drop the handle so Close
	// does not reap it again.
	_ = c.cmd.Wait()
	c.cmd = nil
	c.stdin = nil
	c.stdout = nil
}

// Close shuts the daemon down by closing its input and reaping it.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cmd == nil {
		c.state = StateStopped
		return nil
	}
	c.state = StateShuttingDown

	var errs error
	if c.stdin != nil {
		errs = multierr.Append(errs, c.stdin.Close())
	}

	waited := make(chan error, 1)
	go func() { waited <- c.cmd.Wait() }()
	select {
	case err := <-waited:
		errs = multierr.Append(errs, err)
	case <-time.After(3 * time.Second):
		if c.cmd.Process != nil {
			errs = multierr.Append(errs, c.cmd.Process.Kill())
		}
		errs = multierr.Append(errs, <-waited)
	}

	c.cmd = nil
	c.state = StateStopped
	return errs
}
