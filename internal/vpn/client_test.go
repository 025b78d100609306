package vpn

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient returns a Client over the mock runner with the start
// settle delay removed.
func newTestClient(runner *mockRunner) *Client {
	c := NewClientWithRunner("openvpn3", runner)
	c.settle = 0
	return c
}

func TestClient_Start_ConfirmedHandle(t *testing.T) {
	runner := newMockRunner()
	runner.run = func(name string, args ...string) (string, error) {
		return sampleListing, nil
	}
	c := newTestClient(runner)

	result, err := c.Start(context.Background(), "/home/alice/office.ovpn")
	require.NoError(t, err)

	assert.Equal(t, "/net/openvpn/v3/sessions/5f4dcc3bs98f1sab43sbc12s29af4ca6dcf8", result.Handle.Path)
	assert.False(t, result.Handle.Provisional)
	assert.Equal(t, sampleListing, result.Output)

	calls := runner.callLines()
	require.Len(t, calls, 2)
	assert.Equal(t, "openvpn3 session-start --config /home/alice/office.ovpn", calls[0])
	assert.Equal(t, "openvpn3 sessions-list", calls[1])
}

func TestClient_Start_SynthesizesProvisionalHandle(t *testing.T) {
	runner := newMockRunner()
	runner.run = func(name string, args ...string) (string, error) {
		return "No sessions available\n", nil
	}
	c := newTestClient(runner)

	result, err := c.Start(context.Background(), "/home/alice/office.ovpn")
	require.NoError(t, err)

	assert.True(t, result.Handle.Provisional)
	require.True(t, strings.HasPrefix(result.Handle.Path, SessionPathPrefix))

	// The synthesized suffix is a random UUID.
	_, err = uuid.Parse(strings.TrimPrefix(result.Handle.Path, SessionPathPrefix))
	assert.NoError(t, err)
}

func TestClient_Start_LaunchFailure(t *testing.T) {
	runner := newMockRunner()
	runner.startDetached = func(name string, args ...string) error {
		return errors.New("failed to execute openvpn3: not found")
	}
	c := newTestClient(runner)

	_, err := c.Start(context.Background(), "/home/alice/office.ovpn")
	assert.Error(t, err)
	assert.Len(t, runner.callLines(), 1)
}

func TestClient_Start_ListFailure(t *testing.T) {
	runner := newMockRunner()
	runner.run = func(name string, args ...string) (string, error) {
		return "", errors.New("openvpn3: dbus unavailable")
	}
	c := newTestClient(runner)

	_, err := c.Start(context.Background(), "/home/alice/office.ovpn")
	assert.Error(t, err)
}

func TestClient_Stop_ByHandle(t *testing.T) {
	runner := newMockRunner()
	c := newTestClient(runner)
	handle := Handle{Path: SessionPathPrefix + "abc"}

	msg, err := c.Stop(context.Background(), handle, "/home/alice/office.ovpn")
	require.NoError(t, err)
	assert.Equal(t, "VPN disconnected.", msg)

	calls := runner.callLines()
	require.Len(t, calls, 1)
	assert.Equal(t, "openvpn3 session-manage --session-path /net/openvpn/v3/sessions/abc --disconnect", calls[0])
}

func TestClient_Stop_FallsBackToConfig(t *testing.T) {
	runner := newMockRunner()
	c := newTestClient(runner)

	_, err := c.Stop(context.Background(), Handle{}, "/home/alice/office.ovpn")
	require.NoError(t, err)

	calls := runner.callLines()
	require.Len(t, calls, 1)
	assert.Equal(t, "openvpn3 session-manage --config /home/alice/office.ovpn --disconnect", calls[0])
}

func TestClient_Stop_SurfacesReason(t *testing.T) {
	runner := newMockRunner()
	runner.run = func(name string, args ...string) (string, error) {
		return "", errors.New("openvpn3: session not found")
	}
	c := newTestClient(runner)

	_, err := c.Stop(context.Background(), Handle{Path: SessionPathPrefix + "gone"}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session not found")
}

func TestClient_PollStatus(t *testing.T) {
	runner := newMockRunner()
	runner.run = func(name string, args ...string) (string, error) {
		return "No sessions available\n", nil
	}
	c := newTestClient(runner)

	output, ok := c.PollStatus(context.Background())
	require.True(t, ok)
	// "No active session" is a valid poll result, not a failure.
	assert.Equal(t, "No sessions available\n", output)
}

func TestClient_PollStatus_InvocationFailure(t *testing.T) {
	runner := newMockRunner()
	runner.run = func(name string, args ...string) (string, error) {
		return "", errors.New("openvpn3: command not found")
	}
	c := newTestClient(runner)

	_, ok := c.PollStatus(context.Background())
	assert.False(t, ok)
}

func TestClient_FetchStats(t *testing.T) {
	runner := newMockRunner()
	runner.run = func(name string, args ...string) (string, error) {
		return "BYTES_IN.................1000\nBYTES_OUT................2000\n", nil
	}
	c := newTestClient(runner)

	in, out, ok := c.FetchStats(context.Background(), Handle{Path: SessionPathPrefix + "abc"})
	require.True(t, ok)
	assert.Equal(t, uint64(1000), in)
	assert.Equal(t, uint64(2000), out)

	calls := runner.callLines()
	require.Len(t, calls, 1)
	assert.Equal(t, "openvpn3 session-stats --session-path /net/openvpn/v3/sessions/abc", calls[0])
}

func TestClient_FetchStats_AbsentOnFailure(t *testing.T) {
	runner := newMockRunner()
	runner.run = func(name string, args ...string) (string, error) {
		return "", errors.New("openvpn3: no such session")
	}
	c := newTestClient(runner)

	_, _, ok := c.FetchStats(context.Background(), Handle{Path: SessionPathPrefix + "abc"})
	assert.False(t, ok)
}

func TestClient_SubmitCredentials(t *testing.T) {
	runner := newMockRunner()
	runner.runWithInput = func(input, name string, args ...string) (string, error) {
		return "Authentication accepted\n", nil
	}
	c := newTestClient(runner)

	output, err := c.SubmitCredentials(context.Background(), Handle{Path: SessionPathPrefix + "abc"}, "123456")
	require.NoError(t, err)
	assert.Equal(t, "Authentication accepted\n", output)

	require.Len(t, runner.inputs, 1)
	assert.Equal(t, "123456\n", runner.inputs[0])

	calls := runner.callLines()
	assert.Equal(t, "openvpn3 session-auth --session-path /net/openvpn/v3/sessions/abc", calls[0])
}

func TestClient_TunnelIP(t *testing.T) {
	runner := newMockRunner()
	runner.run = func(name string, args ...string) (string, error) {
		return "    inet 10.8.0.14/24 scope global tun0\n", nil
	}
	c := newTestClient(runner)

	ip, ok := c.TunnelIP(context.Background())
	require.True(t, ok)
	assert.Equal(t, "10.8.0.14", ip)

	calls := runner.callLines()
	require.Len(t, calls, 1)
	assert.Equal(t, "ip addr show tun0", calls[0])
}

func TestClient_ListSessions_FoldsErrorIntoText(t *testing.T) {
	runner := newMockRunner()
	runner.run = func(name string, args ...string) (string, error) {
		return "", errors.New("openvpn3: dbus unavailable")
	}
	c := newTestClient(runner)

	output := c.ListSessions(context.Background())
	assert.Contains(t, output, "dbus unavailable")
}

func TestNewClient_DefaultBinary(t *testing.T) {
	c := NewClientWithRunner("", newMockRunner())
	assert.Equal(t, DefaultBinary, c.binary)
}
