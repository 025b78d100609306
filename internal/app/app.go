// Package app wires the supervision engine, configuration, system tray
// and console control surface into a runnable application.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fonzi/openvpn3-gui/internal/config"
	"github.com/fonzi/openvpn3-gui/internal/fileutil"
	"github.com/fonzi/openvpn3-gui/internal/keyring"
	"github.com/fonzi/openvpn3-gui/internal/publicip"
	"github.com/fonzi/openvpn3-gui/internal/supervisor"
	"github.com/fonzi/openvpn3-gui/internal/tray"
	"github.com/fonzi/openvpn3-gui/internal/vpn"
)

// App owns the long-lived pieces of openvpn3-gui and their lifecycles.
type App struct {
	cfgMgr *config.Manager
	recent *config.RecentList
	client *vpn.Client
	sup    *supervisor.Supervisor
	tray   *tray.Icon

	out io.Writer

	mu        sync.Mutex
	lastState vpn.ConnectionState
	lastPath  string

	cancel context.CancelFunc
}

// New builds the application from persisted configuration.
func New(out io.Writer) (*App, error) {
	cfgMgr, err := config.NewManager()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	cfg := cfgMgr.GetConfig()

	binary := cfg.OpenVPN3Path
	if binary == "" {
		binary = vpn.DefaultBinary
	}
	client := vpn.NewClient(binary)

	pingTarget := cfg.PingTarget
	if pingTarget == "" {
		pingTarget = vpn.DefaultPingTarget
	}
	runner := vpn.NewExecRunner()

	var secrets keyring.Store
	if cfg.RememberChallengeSecret {
		secrets = keyring.NewSystemKeyring()
	}

	sup := supervisor.New(supervisor.Options{
		Client:   client,
		PublicIP: publicip.NewFetcher(),
		Latency: func(ctx context.Context) (int, bool) {
			return vpn.PingLatency(ctx, runner, pingTarget)
		},
		Secrets:        secrets,
		RememberSecret: cfg.RememberChallengeSecret,
		ShowGraph:      cfg.ShowGraph,
		AutoReconnect:  cfg.AutoReconnect,
	})

	a := &App{
		cfgMgr: cfgMgr,
		recent: config.NewRecentList(cfgMgr.GetRecentFile()),
		client: client,
		sup:    sup,
		tray:   tray.New(),
		out:    out,
		lastState: vpn.StateDisconnected,
	}
	sup.OnSnapshot(a.pushToTray)

	if cfg.LastConfigPath != "" {
		sup.SelectConfig(cfg.LastConfigPath)
	}
	return a, nil
}

// Run starts the supervisor loop and the console reader, then blocks in
// the tray event loop until Quit. The tray must run on the calling
// goroutine.
func (a *App) Run(ctx context.Context, input io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	defer cancel()

	if err := a.tray.OnToggle(a.sup.ToggleConnection); err != nil {
		return err
	}
	if err := a.tray.OnSaveReport(func() {
		if err := a.SaveReport(""); err != nil {
			slog.Error("Failed to save report", "error", err)
		}
	}); err != nil {
		return err
	}
	if err := a.tray.OnQuit(a.Quit); err != nil {
		return err
	}

	go a.sup.Run(ctx)
	go a.consoleLoop(ctx, input)

	return a.tray.Run()
}

// Quit tears the application down. Safe to call from any goroutine.
func (a *App) Quit() {
	if a.cancel != nil {
		a.cancel()
	}
	a.tray.Quit()
}

// pushToTray mirrors supervisor snapshots into the tray; runs on the
// supervisor loop, so it only forwards deltas.
func (a *App) pushToTray(snap supervisor.Snapshot) {
	a.mu.Lock()
	stateChanged := snap.State != a.lastState
	pathChanged := snap.ConfigPath != a.lastPath
	a.lastState = snap.State
	a.lastPath = snap.ConfigPath
	a.mu.Unlock()

	if stateChanged {
		a.tray.SetState(snap.State)
	}
	if pathChanged {
		a.tray.SetConfigPath(snap.ConfigPath)
	}
	if snap.State.IsConnected() {
		a.tray.SetRates(snap.RateIn, snap.RateOut)
	}
}

// SelectConfig makes path the active VPN config and records it in both
// the persisted settings and the recent list.
func (a *App) SelectConfig(path string) {
	a.sup.SelectConfig(path)
	if err := a.recent.Add(path); err != nil {
		slog.Warn("Failed to update recent configs", "error", err)
	}
	if err := a.cfgMgr.UpdateField(func(cfg *config.Config) {
		cfg.LastConfigPath = path
	}); err != nil {
		slog.Warn("Failed to persist last config path", "error", err)
	}
}

// SaveReport writes a session report. An empty path picks a timestamped
// file name in the working directory.
func (a *App) SaveReport(path string) error {
	if path == "" {
		path = fmt.Sprintf("openvpn3-report-%s.txt", time.Now().Format("20060102-150405"))
	}
	if err := fileutil.AtomicWrite(path, []byte(a.sup.Report()), 0o600); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	slog.Info("Session report saved", "path", path)
	return nil
}

// SaveLogs writes the activity log. An empty path picks a timestamped
// file name in the working directory.
func (a *App) SaveLogs(path string) error {
	if path == "" {
		path = fmt.Sprintf("openvpn3-logs-%s.txt", time.Now().Format("20060102-150405"))
	}
	data := strings.Join(a.sup.Snapshot().Logs, "\n") + "\n"
	if err := fileutil.AtomicWrite(path, []byte(data), 0o600); err != nil {
		return fmt.Errorf("writing logs: %w", err)
	}
	slog.Info("Activity log saved", "path", path)
	return nil
}
