// Package vpn provides session supervision for the openvpn3 CLI.
package vpn

// ConnectionState represents the current state of the supervised VPN session.
type ConnectionState string

const (
	// StateDisconnected indicates no active VPN session.
	StateDisconnected ConnectionState = "disconnected"
	// StateConnecting indicates a session was started and is progressing
	// through authentication and tunnel establishment. Pending 2FA and
	// browser SSO are sub-conditions of this state, surfaced via the
	// auth-challenge flag rather than separate states.
	StateConnecting ConnectionState = "connecting"
	// StateConnected indicates the tunnel is established.
	StateConnected ConnectionState = "connected"
)

// IsConnected returns true if the state represents an established tunnel.
func (s ConnectionState) IsConnected() bool {
	return s == StateConnected
}

// IsActive returns true if a session exists, established or in progress.
func (s ConnectionState) IsActive() bool {
	return s == StateConnecting || s == StateConnected
}

// CanConnect returns true if a new session can be started from this state.
func (s ConnectionState) CanConnect() bool {
	return s == StateDisconnected
}

// validTransitions defines the allowed state transitions.
var validTransitions = map[ConnectionState][]ConnectionState{
	StateDisconnected: {
		StateConnecting,
	},
	StateConnecting: {
		StateConnected,
		StateDisconnected, // auth failure, start failure, or user stop
	},
	StateConnected: {
		StateDisconnected,
	},
}

// IsValidTransition checks if transitioning from one state to another is allowed.
func IsValidTransition(from, to ConnectionState) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// AllStates returns all possible connection states.
func AllStates() []ConnectionState {
	return []ConnectionState{
		StateDisconnected,
		StateConnecting,
		StateConnected,
	}
}

// Handle names an active openvpn3 session by its D-Bus session path.
//
// A handle is Provisional when it was synthesized because the session
// listing could not be parsed after start; the connection may still be
// progressing, but downstream logic must not treat the path as verified.
type Handle struct {
	Path        string
	Provisional bool
}

// IsZero returns true if no session handle is held.
func (h Handle) IsZero() bool {
	return h.Path == ""
}
