package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fonzi/openvpn3-gui/internal/config"
	"github.com/fonzi/openvpn3-gui/internal/supervisor"
	"github.com/fonzi/openvpn3-gui/internal/tray"
	"github.com/fonzi/openvpn3-gui/internal/vpn"
)

type stubRunner struct {
	output string
}

func (s *stubRunner) Run(_ context.Context, _ string, _ ...string) (string, error) {
	return s.output, nil
}

func (s *stubRunner) RunWithInput(_ context.Context, _, _ string, _ ...string) (string, error) {
	return s.output, nil
}

func (s *stubRunner) StartDetached(_ context.Context, _ string, _ ...string) error {
	return nil
}

func newTestApp(t *testing.T) (*App, *strings.Builder) {
	t.Helper()

	dir := t.TempDir()
	paths := &config.Paths{
		ConfigDir:  dir,
		ConfigFile: filepath.Join(dir, "config.json"),
		RecentFile: filepath.Join(dir, "recent"),
	}
	cfgMgr, err := config.NewManagerWithPaths(paths)
	require.NoError(t, err)

	client := vpn.NewClientWithRunner("openvpn3", &stubRunner{})
	out := &strings.Builder{}

	a := &App{
		cfgMgr:    cfgMgr,
		recent:    config.NewRecentList(paths.RecentFile),
		client:    client,
		sup:       supervisor.New(supervisor.Options{Client: client}),
		tray:      tray.New(),
		out:       out,
		lastState: vpn.StateDisconnected,
	}
	return a, out
}

func TestDispatchConfigSelectsAndPersists(t *testing.T) {
	a, _ := newTestApp(t)

	a.dispatch(context.Background(), "config /tmp/work.ovpn")

	assert.Equal(t, []string{"/tmp/work.ovpn"}, a.recent.Entries())
	assert.Equal(t, "/tmp/work.ovpn", a.cfgMgr.GetConfig().LastConfigPath)
}

func TestDispatchConfigWithoutArg(t *testing.T) {
	a, out := newTestApp(t)

	a.dispatch(context.Background(), "config")

	assert.Contains(t, out.String(), "usage: config <path>")
	assert.Empty(t, a.recent.Entries())
}

func TestDispatchRecentListsEntries(t *testing.T) {
	a, out := newTestApp(t)
	require.NoError(t, a.recent.Add("/tmp/a.ovpn"))
	require.NoError(t, a.recent.Add("/tmp/b.ovpn"))

	a.dispatch(context.Background(), "recent")

	assert.Contains(t, out.String(), "1. /tmp/b.ovpn")
	assert.Contains(t, out.String(), "2. /tmp/a.ovpn")
}

func TestDispatchStatusShowsState(t *testing.T) {
	a, out := newTestApp(t)

	a.dispatch(context.Background(), "status")

	assert.Contains(t, out.String(), "state:     disconnected")
}

func TestDispatchUnknownCommand(t *testing.T) {
	a, out := newTestApp(t)

	a.dispatch(context.Background(), "frobnicate")

	assert.Contains(t, out.String(), `unknown command "frobnicate"`)
}

func TestDispatchGraphTogglePersists(t *testing.T) {
	a, _ := newTestApp(t)

	a.dispatch(context.Background(), "graph off")
	assert.False(t, a.cfgMgr.GetConfig().ShowGraph)

	a.dispatch(context.Background(), "graph on")
	assert.True(t, a.cfgMgr.GetConfig().ShowGraph)
}

func TestDispatchAutoReconnectPersists(t *testing.T) {
	a, _ := newTestApp(t)

	a.dispatch(context.Background(), "autoreconnect on")
	assert.True(t, a.cfgMgr.GetConfig().AutoReconnect)
}

func TestSaveReportWritesFile(t *testing.T) {
	a, _ := newTestApp(t)
	path := filepath.Join(t.TempDir(), "report.txt")

	require.NoError(t, a.SaveReport(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "OpenVPN3 Session Report")
	assert.Contains(t, string(data), "Config: -")
}

func TestSaveLogsWritesFile(t *testing.T) {
	a, _ := newTestApp(t)
	path := filepath.Join(t.TempDir(), "logs.txt")

	require.NoError(t, a.SaveLogs(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Application started.")
}
