// Package tray provides the system tray status icon and menu for
// openvpn3-gui.
package tray

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"fyne.io/systray"

	"github.com/fonzi/openvpn3-gui/internal/stats"
	"github.com/fonzi/openvpn3-gui/internal/vpn"
)

var (
	// ErrAlreadyRunning is returned when attempting to modify callbacks after Run() has been called.
	ErrAlreadyRunning = errors.New("cannot modify callbacks after Icon.Run() is called")
	// ErrRunTwice is returned when Run() is called more than once.
	ErrRunTwice = errors.New("Icon.Run() called twice")
	// ErrMissingCallbacks is returned when Run() is called without all required callbacks set.
	ErrMissingCallbacks = errors.New("all callbacks (OnToggle, OnSaveReport, OnQuit) must be set before calling Run()")
)

// Icon manages the system tray icon and menu. Display state is pushed
// in from the supervision loop through SetState, SetConfigPath and
// SetRates; menu clicks flow out through the registered callbacks.
type Icon struct {
	mu sync.RWMutex

	state      vpn.ConnectionState
	configPath string

	menuStatus      *systray.MenuItem
	menuTrafficRate *systray.MenuItem
	menuToggle      *systray.MenuItem
	menuReport      *systray.MenuItem
	menuQuit        *systray.MenuItem

	// Callbacks - must be set before Run() is called
	onToggle     func()
	onSaveReport func()
	onQuit       func()

	done chan struct{}

	running   bool
	closeOnce sync.Once
}

// New creates a system tray icon manager.
func New() *Icon {
	return &Icon{
		state: vpn.StateDisconnected,
		done:  make(chan struct{}),
	}
}

// OnToggle registers a callback for the Connect/Disconnect menu item.
// Must be called before Run(). Returns ErrAlreadyRunning if called after Run().
func (t *Icon) OnToggle(callback func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return ErrAlreadyRunning
	}
	t.onToggle = callback
	return nil
}

// OnSaveReport registers a callback for the Save Report menu item.
// Must be called before Run(). Returns ErrAlreadyRunning if called after Run().
func (t *Icon) OnSaveReport(callback func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return ErrAlreadyRunning
	}
	t.onSaveReport = callback
	return nil
}

// OnQuit registers a callback for the Quit menu item.
// Must be called before Run(). Returns ErrAlreadyRunning if called after Run().
func (t *Icon) OnQuit(callback func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return ErrAlreadyRunning
	}
	t.onQuit = callback
	return nil
}

// SetState updates the tray icon and menu based on connection state.
func (t *Icon) SetState(state vpn.ConnectionState) {
	t.mu.Lock()
	t.state = state
	t.mu.Unlock()
	t.updateIcon()
	t.updateMenu()
}

// SetConfigPath sets the active VPN config for display in the tray.
func (t *Icon) SetConfigPath(path string) {
	t.mu.Lock()
	t.configPath = path
	t.mu.Unlock()
	t.updateMenu()
}

// SetRates updates the traffic rate line in the tray menu.
func (t *Icon) SetRates(rateIn, rateOut float32) {
	if t.menuTrafficRate == nil {
		return
	}
	t.menuTrafficRate.SetTitle(fmt.Sprintf("↓ %s  ↑ %s",
		stats.FormatRate(float64(rateIn)),
		stats.FormatRate(float64(rateOut))))
}

// Run starts the system tray icon. This should be called in a goroutine
// as it blocks until the tray is closed. All callbacks must be
// registered before calling Run().
func (t *Icon) Run() error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return ErrRunTwice
	}
	if t.onToggle == nil || t.onSaveReport == nil || t.onQuit == nil {
		t.mu.Unlock()
		return ErrMissingCallbacks
	}
	t.running = true
	t.mu.Unlock()

	systray.Run(t.onReady, t.onExit)
	return nil
}

// Quit closes the system tray icon and terminates the click handler
// goroutine. Safe to call multiple times.
func (t *Icon) Quit() {
	t.closeOnce.Do(func() {
		close(t.done)
		systray.Quit()
	})
}

func (t *Icon) onReady() {
	systray.SetIcon(iconDisconnectedPNG)
	systray.SetTitle("OpenVPN3")
	systray.SetTooltip("OpenVPN3 GUI - Disconnected")

	t.menuStatus = systray.AddMenuItem("Status: Disconnected", "Current connection status")
	t.menuStatus.Disable()

	t.menuTrafficRate = systray.AddMenuItem("", "Current traffic rates")
	t.menuTrafficRate.Disable()
	t.menuTrafficRate.Hide()

	systray.AddSeparator()

	t.menuToggle = systray.AddMenuItem("Connect", "Start or stop the VPN session")
	t.menuReport = systray.AddMenuItem("Save Report", "Write a session report to disk")

	systray.AddSeparator()

	t.menuQuit = systray.AddMenuItem("Quit", "Quit the application")

	go t.handleMenuClicks()

	slog.Info("System tray initialized")
}

func (t *Icon) onExit() {
	slog.Info("System tray closed")
}

func (t *Icon) handleMenuClicks() {
	for {
		select {
		case <-t.done:
			return
		case _, ok := <-t.menuToggle.ClickedCh:
			if !ok {
				return
			}
			if t.onToggle != nil {
				t.onToggle()
			}
		case _, ok := <-t.menuReport.ClickedCh:
			if !ok {
				return
			}
			if t.onSaveReport != nil {
				t.onSaveReport()
			}
		case _, ok := <-t.menuQuit.ClickedCh:
			if !ok {
				return
			}
			if t.onQuit != nil {
				t.onQuit()
			}
		}
	}
}

func (t *Icon) updateIcon() {
	if t.menuStatus == nil {
		return // Not initialized yet
	}

	t.mu.RLock()
	state := t.state
	configPath := t.configPath
	t.mu.RUnlock()

	var icon []byte
	var tooltip string

	switch state {
	case vpn.StateConnected:
		icon = iconConnectedPNG
		tooltip = "OpenVPN3 GUI - Connected"
		if configPath != "" {
			tooltip = fmt.Sprintf("OpenVPN3 GUI - Connected via %s", filepath.Base(configPath))
		}
	case vpn.StateConnecting:
		icon = iconConnectingPNG
		tooltip = "OpenVPN3 GUI - Connecting..."
	default:
		icon = iconDisconnectedPNG
		tooltip = "OpenVPN3 GUI - Disconnected"
	}

	systray.SetIcon(icon)
	systray.SetTooltip(tooltip)
}

func (t *Icon) updateMenu() {
	if t.menuStatus == nil {
		return // Not initialized yet
	}

	t.mu.RLock()
	state := t.state
	configPath := t.configPath
	t.mu.RUnlock()

	var statusText string
	switch state {
	case vpn.StateConnected:
		statusText = "Status: Connected"
	case vpn.StateConnecting:
		statusText = "Status: Connecting..."
	default:
		statusText = "Status: Disconnected"
	}
	t.menuStatus.SetTitle(statusText)

	if t.menuTrafficRate != nil {
		if state == vpn.StateConnected {
			t.menuTrafficRate.Show()
		} else {
			t.menuTrafficRate.Hide()
		}
	}

	if state.CanConnect() {
		if configPath != "" {
			t.menuToggle.SetTitle(fmt.Sprintf("Connect (%s)", filepath.Base(configPath)))
		} else {
			t.menuToggle.SetTitle("Connect")
		}
	} else {
		t.menuToggle.SetTitle("Disconnect")
	}
}
