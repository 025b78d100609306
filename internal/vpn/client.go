package vpn

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultBinary is the openvpn3 CLI binary resolved via PATH.
	DefaultBinary = "openvpn3"

	// SessionPathPrefix is the D-Bus path prefix of openvpn3 sessions.
	SessionPathPrefix = "/net/openvpn/v3/sessions/"

	// TunnelInterface is the interface openvpn3 creates for the tunnel.
	TunnelInterface = "tun0"

	// startSettleDelay is how long Start waits after launching
	// session-start before listing sessions to find the new handle.
	startSettleDelay = 3 * time.Second
)

// StartResult carries the raw listing produced during Start together
// with the handle extracted (or synthesized) from it.
type StartResult struct {
	// Output is the raw sessions-list text captured after the settle
	// delay. The caller scans it for early authentication prompts.
	Output string
	// Handle names the new session. Provisional when it could not be
	// confirmed from the listing.
	Handle Handle
}

// Client issues lifecycle commands to the openvpn3 CLI. It performs no
// retries and holds no connection state; the supervisor decides whether
// and when to re-poll.
type Client struct {
	binary string
	runner CommandRunner
	settle time.Duration
}

// NewClient creates a Client for the given openvpn3 binary path.
// An empty path selects the default PATH lookup.
func NewClient(binary string) *Client {
	return NewClientWithRunner(binary, NewExecRunner())
}

// NewClientWithRunner creates a Client with a custom command runner.
// This is primarily used for testing.
func NewClientWithRunner(binary string, runner CommandRunner) *Client {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Client{
		binary: binary,
		runner: runner,
		settle: startSettleDelay,
	}
}

// Start launches a session for the given config, waits for the session
// to settle, then lists sessions to discover the new handle.
//
// When no handle can be parsed from the listing, a placeholder path is
// synthesized from a random UUID rather than failing outright: the
// connection may still be progressing even though it could not be
// confirmed textually. The returned handle is marked Provisional so
// callers can treat it accordingly.
func (c *Client) Start(ctx context.Context, configPath string) (*StartResult, error) {
	// openvpn3 talks to its D-Bus service; no privilege escalation needed.
	if err := c.runner.StartDetached(ctx, c.binary, "session-start", "--config", configPath); err != nil {
		return nil, err
	}

	select {
	case <-time.After(c.settle):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	listing, err := c.runner.Run(ctx, c.binary, "sessions-list")
	if err != nil {
		return nil, err
	}

	handle := Handle{}
	if path, ok := ExtractSessionPath(listing); ok {
		handle.Path = path
	} else {
		handle.Path = SessionPathPrefix + uuid.New().String()
		handle.Provisional = true
	}

	return &StartResult{Output: listing, Handle: handle}, nil
}

// Stop disconnects the session, by session path when a handle is held
// and by config path otherwise. Returns a human-readable confirmation.
func (c *Client) Stop(ctx context.Context, handle Handle, configPath string) (string, error) {
	var args []string
	if !handle.IsZero() {
		args = []string{"session-manage", "--session-path", handle.Path, "--disconnect"}
	} else {
		args = []string{"session-manage", "--config", configPath, "--disconnect"}
	}

	if _, err := c.runner.Run(ctx, c.binary, args...); err != nil {
		return "", err
	}
	return "VPN disconnected.", nil
}

// PollStatus lists the current sessions and returns the raw text.
// The second return value is false only on invocation failure (binary
// missing, permission denied); an empty listing with no active session
// is a valid result for the caller to interpret.
func (c *Client) PollStatus(ctx context.Context) (string, bool) {
	output, err := c.runner.Run(ctx, c.binary, "sessions-list")
	if err != nil {
		return "", false
	}
	return output, true
}

// FetchStats retrieves the cumulative byte counters for the session.
// Absent on invocation failure or when the output lacks either counter.
func (c *Client) FetchStats(ctx context.Context, handle Handle) (bytesIn, bytesOut uint64, ok bool) {
	output, err := c.runner.Run(ctx, c.binary, "session-stats", "--session-path", handle.Path)
	if err != nil {
		return 0, 0, false
	}
	return ParseStats(output)
}

// SubmitCredentials feeds a challenge/2FA code to the session's
// authentication prompt via stdin.
func (c *Client) SubmitCredentials(ctx context.Context, handle Handle, code string) (string, error) {
	return c.runner.RunWithInput(ctx, code+"\n", c.binary, "session-auth", "--session-path", handle.Path)
}

// TunnelIP reports the IPv4 address assigned to the tunnel interface.
func (c *Client) TunnelIP(ctx context.Context) (string, bool) {
	output, err := c.runner.Run(ctx, "ip", "addr", "show", TunnelInterface)
	if err != nil {
		return "", false
	}
	return ExtractIPv4(output)
}

// ListSessions returns the raw sessions-list output for display. Unlike
// PollStatus, invocation failures are folded into the returned text so
// the session viewer always has something to show.
func (c *Client) ListSessions(ctx context.Context) string {
	output, err := c.runner.Run(ctx, c.binary, "sessions-list")
	if err != nil {
		return err.Error()
	}
	return output
}
