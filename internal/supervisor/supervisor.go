// Package supervisor implements the session supervision engine: a
// tick-driven state machine that reconstructs the lifecycle of an
// openvpn3 session from polled command output, and aggregates the
// telemetry derived from it.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fonzi/openvpn3-gui/internal/keyring"
	"github.com/fonzi/openvpn3-gui/internal/stats"
	"github.com/fonzi/openvpn3-gui/internal/vpn"
)

// DefaultTickInterval is the supervisory evaluation period.
const DefaultTickInterval = time.Second

// SessionClient issues lifecycle commands to the external VPN tool.
// Implemented by vpn.Client; abstracted for testing.
type SessionClient interface {
	Start(ctx context.Context, configPath string) (*vpn.StartResult, error)
	Stop(ctx context.Context, handle vpn.Handle, configPath string) (string, error)
	PollStatus(ctx context.Context) (string, bool)
	FetchStats(ctx context.Context, handle vpn.Handle) (bytesIn, bytesOut uint64, ok bool)
	SubmitCredentials(ctx context.Context, handle vpn.Handle, code string) (string, error)
	TunnelIP(ctx context.Context) (string, bool)
}

// Ensure vpn.Client satisfies the client contract.
var _ SessionClient = (*vpn.Client)(nil)

// IPFetcher looks up the machine's public IP address.
type IPFetcher interface {
	Fetch(ctx context.Context) (string, bool)
}

// LatencyFunc probes network latency, returning whole milliseconds.
type LatencyFunc func(ctx context.Context) (int, bool)

// Snapshot is the read-only view of supervisor state exposed to the
// presentation layer once per applied update.
type Snapshot struct {
	State           vpn.ConnectionState
	Handle          vpn.Handle
	ConfigPath      string
	AskingChallenge bool
	InputCode       string

	BytesIn    uint64
	BytesOut   uint64
	RateIn     float32
	RateOut    float32
	HistoryIn  []float32
	HistoryOut []float32

	ConnectionStart time.Time
	TunnelIP        string
	PublicIP        string
	LatencyMS       int
	LatencyKnown    bool

	ShowGraph     bool
	AutoReconnect bool
	Logs          []string
}

// Options configures a Supervisor.
type Options struct {
	Client   SessionClient
	PublicIP IPFetcher
	Latency  LatencyFunc

	// Secrets optionally remembers the last accepted challenge response
	// per config path. Nil disables the feature.
	Secrets        keyring.Store
	RememberSecret bool

	TickInterval time.Duration
	LogCapacity  int

	// Initial presentation preferences, persisted by the caller.
	ShowGraph     bool
	AutoReconnect bool
}

// Supervisor owns the connection state machine. All mutation happens on
// a single consumer path: external command completions and UI intents
// are funneled through one events channel and applied sequentially, so
// no two completions ever race on state. Reads go through Snapshot.
type Supervisor struct {
	client         SessionClient
	publicIP       IPFetcher
	latency        LatencyFunc
	secrets        keyring.Store
	rememberSecret bool
	tickInterval   time.Duration

	events chan event

	mu              sync.RWMutex
	state           vpn.ConnectionState
	handle          vpn.Handle
	configPath      string
	inputCode       string
	askingChallenge bool
	showGraph       bool
	autoReconnect   bool
	connectionStart time.Time
	tunnelIP        string
	publicIPAddr    string
	latencyMS       int
	latencyKnown    bool
	agg             *stats.Aggregator
	logs            *LogBuffer

	onSnapshot func(Snapshot)
}

// Events applied by the supervisor loop. Completions of polls issued
// for a particular session carry that session's handle so results that
// outlive the session can be discarded as stale.
type event interface{}

type (
	intentSelectConfig  struct{ path string }
	intentToggle        struct{}
	intentSetInputCode  struct{ code string }
	intentSubmitCode    struct{}
	intentToggleGraph   struct{ visible bool }
	intentToggleAutoRec struct{ enabled bool }

	startResult struct {
		result *vpn.StartResult
		err    error
	}
	stopResult struct {
		msg string
		err error
	}
	statusResult struct {
		handle vpn.Handle
		output string
		ok     bool
	}
	statsResult struct {
		handle   vpn.Handle
		bytesIn  uint64
		bytesOut uint64
		ok       bool
	}
	tunnelIPResult struct {
		handle vpn.Handle
		ip     string
		ok     bool
	}
	publicIPResult struct {
		ip string
		ok bool
	}
	latencyResult struct {
		ms int
		ok bool
	}
	authResult struct {
		code   string
		output string
		err    error
	}
)

// New creates a Supervisor. The zero tick interval selects
// DefaultTickInterval.
func New(opts Options) *Supervisor {
	interval := opts.TickInterval
	if interval <= 0 {
		interval = DefaultTickInterval
	}

	s := &Supervisor{
		client:         opts.Client,
		publicIP:       opts.PublicIP,
		latency:        opts.Latency,
		secrets:        opts.Secrets,
		rememberSecret: opts.RememberSecret,
		tickInterval:   interval,
		events:         make(chan event, 64),
		state:          vpn.StateDisconnected,
		showGraph:      opts.ShowGraph,
		autoReconnect:  opts.AutoReconnect,
		agg:            stats.NewAggregator(),
		logs:           NewLogBuffer(opts.LogCapacity),
	}
	s.logs.Append("Application started.")
	return s
}

// OnSnapshot registers a callback invoked after every applied update.
// Register before Run; the callback runs on the supervisor loop.
func (s *Supervisor) OnSnapshot(fn func(Snapshot)) {
	s.onSnapshot = fn
}

// Run drives the supervisor until the context is cancelled. Each tick
// dispatches the due external lookups as independent goroutines; their
// completions come back through the events channel and are applied here
// sequentially.
func (s *Supervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		case ev := <-s.events:
			s.handleEvent(ctx, ev)
		}
	}
}

// --- Intents (safe to call from any goroutine) ---

// SelectConfig chooses the VPN config used by the next connection.
func (s *Supervisor) SelectConfig(path string) { s.events <- intentSelectConfig{path} }

// ToggleConnection starts a session when disconnected and stops the
// active one otherwise.
func (s *Supervisor) ToggleConnection() { s.events <- intentToggle{} }

// SetInputCode updates the pending challenge-response buffer.
func (s *Supervisor) SetInputCode(code string) { s.events <- intentSetInputCode{code} }

// SubmitCode submits the buffered challenge response to the session.
func (s *Supervisor) SubmitCode() { s.events <- intentSubmitCode{} }

// ToggleGraph sets traffic graph visibility.
func (s *Supervisor) ToggleGraph(visible bool) { s.events <- intentToggleGraph{visible} }

// ToggleAutoReconnect stores the auto-reconnect preference. The flag is
// surfaced in snapshots but no reconnection logic consumes it yet.
func (s *Supervisor) ToggleAutoReconnect(enabled bool) { s.events <- intentToggleAutoRec{enabled} }

// Snapshot returns a copy of the current supervisor state.
func (s *Supervisor) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bytesIn, bytesOut := s.agg.Totals()
	rateIn, rateOut := s.agg.Rates()

	return Snapshot{
		State:           s.state,
		Handle:          s.handle,
		ConfigPath:      s.configPath,
		AskingChallenge: s.askingChallenge,
		InputCode:       s.inputCode,
		BytesIn:         bytesIn,
		BytesOut:        bytesOut,
		RateIn:          rateIn,
		RateOut:         rateOut,
		HistoryIn:       s.agg.HistoryIn(),
		HistoryOut:      s.agg.HistoryOut(),
		ConnectionStart: s.connectionStart,
		TunnelIP:        s.tunnelIP,
		PublicIP:        s.publicIPAddr,
		LatencyMS:       s.latencyMS,
		LatencyKnown:    s.latencyKnown,
		ShowGraph:       s.showGraph,
		AutoReconnect:   s.autoReconnect,
		Logs:            s.logs.Lines(),
	}
}

// Report renders the current session report.
func (s *Supervisor) Report() string {
	return BuildReport(s.Snapshot(), time.Now())
}

// --- Tick ---

// tick dispatches the lookups due this interval. Status is polled only
// while connecting; once connected, stats polling takes over and the
// listing is no longer evaluated for transitions, so a session silently
// dropped by the tool goes unnoticed here (deliberate; see DESIGN.md).
func (s *Supervisor) tick(ctx context.Context) {
	s.mu.RLock()
	state := s.state
	handle := s.handle
	tunnelKnown := s.tunnelIP != ""
	publicKnown := s.publicIPAddr != ""
	s.mu.RUnlock()

	if state == vpn.StateConnecting && !handle.IsZero() {
		go func() {
			output, ok := s.client.PollStatus(ctx)
			s.events <- statusResult{handle: handle, output: output, ok: ok}
		}()
	}

	if state == vpn.StateConnected && !handle.IsZero() {
		go func() {
			bytesIn, bytesOut, ok := s.client.FetchStats(ctx, handle)
			s.events <- statsResult{handle: handle, bytesIn: bytesIn, bytesOut: bytesOut, ok: ok}
		}()

		if !tunnelKnown {
			s.lookupTunnelIP(ctx, handle)
		}
	}

	if !publicKnown && s.publicIP != nil {
		s.lookupPublicIP(ctx)
	}

	if s.latency != nil {
		go func() {
			ms, ok := s.latency(ctx)
			s.events <- latencyResult{ms: ms, ok: ok}
		}()
	}

	s.notify()
}

func (s *Supervisor) lookupTunnelIP(ctx context.Context, handle vpn.Handle) {
	go func() {
		ip, ok := s.client.TunnelIP(ctx)
		s.events <- tunnelIPResult{handle: handle, ip: ip, ok: ok}
	}()
}

func (s *Supervisor) lookupPublicIP(ctx context.Context) {
	go func() {
		ip, ok := s.publicIP.Fetch(ctx)
		s.events <- publicIPResult{ip: ip, ok: ok}
	}()
}

// --- Event application (single consumer) ---

func (s *Supervisor) handleEvent(ctx context.Context, ev event) {
	switch ev := ev.(type) {
	case intentSelectConfig:
		s.applySelectConfig(ev.path)
	case intentToggle:
		s.applyToggle(ctx)
	case intentSetInputCode:
		s.mu.Lock()
		s.inputCode = ev.code
		s.mu.Unlock()
	case intentSubmitCode:
		s.applySubmitCode(ctx)
	case intentToggleGraph:
		s.mu.Lock()
		s.showGraph = ev.visible
		s.mu.Unlock()
	case intentToggleAutoRec:
		s.mu.Lock()
		s.autoReconnect = ev.enabled
		s.mu.Unlock()
	case startResult:
		s.applyStartResult(ev)
	case stopResult:
		s.applyStopResult(ev)
	case statusResult:
		s.applyStatusResult(ctx, ev)
	case statsResult:
		s.applyStatsResult(ev)
	case tunnelIPResult:
		s.applyTunnelIPResult(ev)
	case publicIPResult:
		if ev.ok {
			s.mu.Lock()
			s.publicIPAddr = ev.ip
			s.mu.Unlock()
		}
	case latencyResult:
		s.mu.Lock()
		s.latencyMS = ev.ms
		s.latencyKnown = ev.ok
		s.mu.Unlock()
	case authResult:
		s.applyAuthResult(ev)
	}

	s.notify()
}

func (s *Supervisor) applySelectConfig(path string) {
	s.mu.Lock()
	s.configPath = path
	s.mu.Unlock()
	s.log(fmt.Sprintf("Selected config: %s", path))
}

func (s *Supervisor) applyToggle(ctx context.Context) {
	s.mu.Lock()
	state := s.state
	configPath := s.configPath
	handle := s.handle
	s.mu.Unlock()

	switch state {
	case vpn.StateDisconnected:
		if configPath == "" {
			// Transition rejected: a start request needs a config path.
			s.log("No config selected.")
			return
		}
		s.mu.Lock()
		s.setState(vpn.StateConnecting)
		s.mu.Unlock()
		s.log(fmt.Sprintf("Starting VPN with %s", configPath))
		go func() {
			result, err := s.client.Start(ctx, configPath)
			s.events <- startResult{result: result, err: err}
		}()

	case vpn.StateConnecting, vpn.StateConnected:
		s.log("Disconnecting...")
		go func() {
			msg, err := s.client.Stop(ctx, handle, configPath)
			s.events <- stopResult{msg: msg, err: err}
		}()
	}
}

func (s *Supervisor) applyStartResult(ev startResult) {
	s.mu.Lock()
	if s.state != vpn.StateConnecting {
		// Torn down while the start was in flight; the session, if any,
		// will be cleaned up by the stop that caused the teardown.
		s.mu.Unlock()
		slog.Debug("Discarding stale start result", "state", s.state)
		return
	}
	s.mu.Unlock()

	if ev.err != nil {
		s.log(fmt.Sprintf("Failed to start: %v", ev.err))
		s.mu.Lock()
		s.setState(vpn.StateDisconnected)
		s.mu.Unlock()
		return
	}

	s.log("VPN session initiated. Waiting for authentication...")

	output := ev.result.Output
	if strings.Contains(output, "CHALLENGE") || strings.Contains(output, "password") ||
		strings.Contains(output, "Authentication") {
		s.raiseChallenge()
	}
	if strings.Contains(output, "AUTH_PENDING") || strings.Contains(output, "Web based authentication") ||
		strings.Contains(output, "awaiting external authentication") {
		s.log("Waiting for SSO authentication in browser...")
	}

	s.mu.Lock()
	s.handle = ev.result.Handle
	s.mu.Unlock()

	if ev.result.Handle.Provisional {
		s.log("Session handle not confirmed; using placeholder.")
	}
}

func (s *Supervisor) applyStopResult(ev stopResult) {
	if ev.err != nil {
		s.log(fmt.Sprintf("Error stopping: %v", ev.err))
	} else {
		s.log(ev.msg)
	}
	s.cleanupConnection()
}

// applyStatusResult advances the state machine from a polled listing.
// Evaluation happens only while connecting, and only for the session
// the poll was issued for.
func (s *Supervisor) applyStatusResult(ctx context.Context, ev statusResult) {
	s.mu.Lock()
	if s.state != vpn.StateConnecting || s.handle.Path != ev.handle.Path {
		s.mu.Unlock()
		return
	}
	handle := s.handle
	s.mu.Unlock()

	if !ev.ok {
		// Invocation failure: skip this tick's evaluation, retry next tick.
		return
	}

	for _, verdict := range vpn.EvaluateStatus(ev.output) {
		switch verdict {
		case vpn.VerdictConnected:
			s.log("VPN connected successfully.")
			s.mu.Lock()
			s.setState(vpn.StateConnected)
			s.connectionStart = time.Now()
			s.askingChallenge = false
			s.mu.Unlock()
			// The tunnel changes the outside view of this machine;
			// refresh both addresses right away.
			s.lookupTunnelIP(ctx, handle)
			if s.publicIP != nil {
				s.lookupPublicIP(ctx)
			}
			return

		case vpn.VerdictChallenge:
			s.raiseChallenge()

		case vpn.VerdictWebAuthPending:
			// Logged at most once per session.
			if !s.logs.Contains("SSO authentication") {
				s.log("Complete SSO authentication in your browser...")
			}

		case vpn.VerdictAuthFailed:
			s.log("Authentication failed.")
			s.mu.Lock()
			s.setState(vpn.StateDisconnected)
			s.handle = vpn.Handle{}
			s.askingChallenge = false
			s.mu.Unlock()
			return
		}
	}
}

func (s *Supervisor) applyStatsResult(ev statsResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != vpn.StateConnected || s.handle.Path != ev.handle.Path {
		return
	}
	if !ev.ok {
		// Stats-fetch failure does not force a disconnect; the listing
		// is the only authority on session death (see DESIGN.md).
		return
	}
	s.agg.Update(ev.bytesIn, ev.bytesOut)
}

func (s *Supervisor) applyTunnelIPResult(ev tunnelIPResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle.Path != ev.handle.Path {
		return
	}
	if ev.ok && ev.ip != "" {
		s.tunnelIP = ev.ip
	}
}

func (s *Supervisor) applySubmitCode(ctx context.Context) {
	s.mu.Lock()
	handle := s.handle
	code := s.inputCode
	s.mu.Unlock()

	if handle.IsZero() {
		return
	}

	s.log("Submitting challenge response...")
	go func() {
		output, err := s.client.SubmitCredentials(ctx, handle, code)
		s.events <- authResult{code: code, output: output, err: err}
	}()
}

func (s *Supervisor) applyAuthResult(ev authResult) {
	if ev.err != nil {
		s.log(fmt.Sprintf("Auth error: %v", ev.err))
		return
	}

	s.log(fmt.Sprintf("Auth result: %s", strings.TrimSpace(ev.output)))
	s.mu.Lock()
	s.inputCode = ""
	s.askingChallenge = false
	configPath := s.configPath
	s.mu.Unlock()

	if s.rememberSecret && s.secrets != nil && ev.code != "" {
		if err := s.secrets.Save(configPath, ev.code); err != nil {
			slog.Warn("Failed to remember challenge secret", "error", err)
		}
	}
}

// raiseChallenge sets the auth-challenge flag once and, when enabled,
// prefills the input buffer with the remembered secret for this config.
func (s *Supervisor) raiseChallenge() {
	s.mu.Lock()
	if s.askingChallenge {
		s.mu.Unlock()
		return
	}
	s.askingChallenge = true
	configPath := s.configPath
	prefill := s.inputCode == ""
	s.mu.Unlock()

	s.log("2FA/challenge required.")

	if !prefill || !s.rememberSecret || s.secrets == nil {
		return
	}
	secret, err := s.secrets.Get(configPath)
	if err != nil {
		if !errors.Is(err, keyring.ErrSecretNotFound) {
			slog.Warn("Failed to read remembered challenge secret", "error", err)
		}
		return
	}
	s.mu.Lock()
	s.inputCode = secret
	s.mu.Unlock()
	s.log("Restored remembered challenge secret.")
}

// cleanupConnection is the single teardown path, safe to run from any
// state and idempotent: every per-session field returns to its initial
// value. Rate history is left to decay (display-only).
func (s *Supervisor) cleanupConnection() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setState(vpn.StateDisconnected)
	s.handle = vpn.Handle{}
	s.connectionStart = time.Time{}
	s.tunnelIP = ""
	s.askingChallenge = false
	s.agg.Reset()
}

// setState transitions to a new state if allowed; callers hold s.mu.
func (s *Supervisor) setState(to vpn.ConnectionState) {
	if s.state == to {
		return
	}
	if !vpn.IsValidTransition(s.state, to) {
		slog.Warn("Invalid state transition", "from", s.state, "to", to)
		return
	}
	slog.Debug("Connection state changed", "from", s.state, "to", to)
	s.state = to
}

// log appends to the user-facing buffer and mirrors to slog.
func (s *Supervisor) log(msg string) {
	s.logs.Append(msg)
	slog.Info(msg)
}

func (s *Supervisor) notify() {
	if s.onSnapshot != nil {
		s.onSnapshot(s.Snapshot())
	}
}
