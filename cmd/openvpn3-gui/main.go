// Package main provides the entry point for openvpn3-gui, a tray-based
// supervision client for OpenVPN 3 on Linux, wrapping the openvpn3 CLI.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/fonzi/openvpn3-gui/internal/app"
	"github.com/fonzi/openvpn3-gui/internal/logging"
)

func main() {
	logging.SetupFromEnv()

	a, err := app.New(os.Stdout)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := a.Run(context.Background(), os.Stdin); err != nil {
		slog.Error("Application error", "error", err)
		os.Exit(1)
	}
}
