package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/fonzi/openvpn3-gui/internal/config"
	"github.com/fonzi/openvpn3-gui/internal/stats"
	"github.com/fonzi/openvpn3-gui/internal/vpn"
)

// consoleLoop reads control commands line by line. It is the interim
// control surface standing in for a full settings window.
func (a *App) consoleLoop(ctx context.Context, input io.Reader) {
	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		a.dispatch(ctx, scanner.Text())
	}
}

func (a *App) dispatch(ctx context.Context, line string) {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "":
	case "toggle", "connect", "disconnect":
		a.sup.ToggleConnection()
	case "config":
		if arg == "" {
			a.printf("usage: config <path>\n")
			return
		}
		a.SelectConfig(arg)
	case "recent":
		for i, entry := range a.recent.Entries() {
			a.printf("%2d. %s\n", i+1, entry)
		}
	case "code":
		a.sup.SetInputCode(arg)
	case "submit":
		a.sup.SubmitCode()
	case "status":
		a.printStatus()
	case "logs":
		for _, l := range a.sup.Snapshot().Logs {
			a.printf("%s\n", l)
		}
	case "sessions":
		a.printf("%s\n", a.client.ListSessions(ctx))
	case "report":
		if err := a.SaveReport(arg); err != nil {
			a.printf("error: %v\n", err)
		}
	case "save-logs":
		if err := a.SaveLogs(arg); err != nil {
			a.printf("error: %v\n", err)
		}
	case "graph":
		on := arg == "on"
		a.sup.ToggleGraph(on)
		a.persist(func(cfg *config.Config) { cfg.ShowGraph = on })
	case "autoreconnect":
		on := arg == "on"
		a.sup.ToggleAutoReconnect(on)
		a.persist(func(cfg *config.Config) { cfg.AutoReconnect = on })
	case "quit", "exit":
		a.Quit()
	case "help":
		a.printHelp()
	default:
		a.printf("unknown command %q (try: help)\n", cmd)
	}
}

func (a *App) persist(mutate func(cfg *config.Config)) {
	if err := a.cfgMgr.UpdateField(mutate); err != nil {
		slog.Warn("Failed to persist setting", "error", err)
	}
}

func (a *App) printStatus() {
	snap := a.sup.Snapshot()

	a.printf("state:     %s\n", snap.State)
	if snap.ConfigPath != "" {
		a.printf("config:    %s\n", snap.ConfigPath)
	}
	if !snap.Handle.IsZero() {
		a.printf("session:   %s\n", snap.Handle.Path)
	}
	if snap.AskingChallenge {
		a.printf("2FA challenge pending - use: code <value>, then: submit\n")
	}
	if snap.State == vpn.StateConnected {
		a.printf("in:        %s (%s)\n", stats.FormatBytes(snap.BytesIn), stats.FormatRate(float64(snap.RateIn)))
		a.printf("out:       %s (%s)\n", stats.FormatBytes(snap.BytesOut), stats.FormatRate(float64(snap.RateOut)))
		if snap.TunnelIP != "" {
			a.printf("tunnel ip: %s\n", snap.TunnelIP)
		}
	}
	if snap.PublicIP != "" {
		a.printf("public ip: %s\n", snap.PublicIP)
	}
	if snap.LatencyKnown {
		a.printf("latency:   %d ms\n", snap.LatencyMS)
	}
}

func (a *App) printHelp() {
	a.printf(`commands:
  config <path>        select a VPN config file
  connect | disconnect toggle the VPN session
  code <value>         set the pending 2FA/challenge response
  submit               submit the challenge response
  status               show connection status and telemetry
  recent               list recently used configs
  sessions             show raw openvpn3 session listing
  logs                 print the activity log
  report [path]        save a session report
  save-logs [path]     save the activity log
  graph on|off         toggle traffic graph visibility
  autoreconnect on|off toggle the auto-reconnect preference
  quit                 exit
`)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
