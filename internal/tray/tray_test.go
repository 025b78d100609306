package tray

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fonzi/openvpn3-gui/internal/vpn"
)

func TestNewInitializesCorrectly(t *testing.T) {
	icon := New()

	assert.NotNil(t, icon)
	assert.Equal(t, vpn.StateDisconnected, icon.state)
	assert.NotNil(t, icon.done)
	assert.False(t, icon.running)
}

func TestIconsAreGenerated(t *testing.T) {
	assert.NotEmpty(t, iconDisconnectedPNG)
	assert.NotEmpty(t, iconConnectingPNG)
	assert.NotEmpty(t, iconConnectedPNG)

	// PNG magic bytes
	for _, icon := range [][]byte{iconDisconnectedPNG, iconConnectingPNG, iconConnectedPNG} {
		assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, icon[:4])
	}
}

func TestCallbackRegistration(t *testing.T) {
	icon := New()

	toggleCalled := false
	reportCalled := false
	quitCalled := false

	assert.NoError(t, icon.OnToggle(func() { toggleCalled = true }))
	assert.NoError(t, icon.OnSaveReport(func() { reportCalled = true }))
	assert.NoError(t, icon.OnQuit(func() { quitCalled = true }))

	icon.onToggle()
	icon.onSaveReport()
	icon.onQuit()

	assert.True(t, toggleCalled)
	assert.True(t, reportCalled)
	assert.True(t, quitCalled)
}

func TestCallbackErrorsAfterRunning(t *testing.T) {
	icon := New()

	// Simulate running state without calling Run(), which would block
	// waiting for a display.
	icon.mu.Lock()
	icon.running = true
	icon.mu.Unlock()

	assert.ErrorIs(t, icon.OnToggle(func() {}), ErrAlreadyRunning)
	assert.ErrorIs(t, icon.OnSaveReport(func() {}), ErrAlreadyRunning)
	assert.ErrorIs(t, icon.OnQuit(func() {}), ErrAlreadyRunning)
}

func TestRunErrorsIfCalledTwice(t *testing.T) {
	icon := New()

	icon.mu.Lock()
	icon.running = true
	icon.mu.Unlock()

	assert.ErrorIs(t, icon.Run(), ErrRunTwice)
}

func TestRunErrorsIfMissingCallbacks(t *testing.T) {
	icon := New()
	_ = icon.OnToggle(func() {})

	assert.ErrorIs(t, icon.Run(), ErrMissingCallbacks)
}

func TestSetState(t *testing.T) {
	icon := New()

	for _, state := range vpn.AllStates() {
		icon.SetState(state)

		icon.mu.RLock()
		assert.Equal(t, state, icon.state)
		icon.mu.RUnlock()
	}
}

func TestSetConfigPath(t *testing.T) {
	icon := New()
	icon.SetConfigPath("/home/user/work.ovpn")

	icon.mu.RLock()
	assert.Equal(t, "/home/user/work.ovpn", icon.configPath)
	icon.mu.RUnlock()
}

func TestQuitSafeToCallMultipleTimes(t *testing.T) {
	icon := New()

	assert.NotPanics(t, func() { icon.Quit() })
	assert.NotPanics(t, func() { icon.Quit() })

	select {
	case <-icon.done:
	default:
		t.Fatal("done channel should be closed after Quit()")
	}
}

func TestStateAccessConcurrency(t *testing.T) {
	icon := New()

	iterations := 1000
	if testing.Short() {
		iterations = 100
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				icon.SetState(vpn.StateConnecting)
				icon.SetState(vpn.StateConnected)
				icon.SetState(vpn.StateDisconnected)
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				icon.SetConfigPath("/tmp/a.ovpn")
				icon.SetConfigPath("/tmp/b.ovpn")
			}
		}()
	}
	wg.Wait()
}
