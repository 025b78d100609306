package vpn

import (
	"regexp"
	"strconv"
	"strings"
)

// Regex patterns for extracting facts from openvpn3 output. The CLI
// produces human-oriented text whose layout varies between versions, so
// each extractor tries a list of known shapes and treats no-match as a
// normal outcome.
var (
	// Matches a D-Bus session path anywhere in the text.
	sessionPathPattern = regexp.MustCompile(`/net/openvpn/v3/sessions/[a-zA-Z0-9_]+`)

	// Matches a labeled "Path:" line.
	sessionPathLinePattern = regexp.MustCompile(`(?m)^\s*Path:\s*(/net/openvpn/v3/sessions/[a-zA-Z0-9_]+)`)

	// Matches a bare session identifier (UUID with 's' group separators,
	// the form openvpn3 uses in session path components).
	sessionIDPattern = regexp.MustCompile(`[a-f0-9]{8}s[a-f0-9]{4}s[a-f0-9]{4}s[a-f0-9]{4}s[a-f0-9]{12}`)

	// session-stats counter fields, in decreasing order of likelihood.
	// openvpn3 pads field names with dots: "BYTES_IN.................1772584"
	bytesInPatterns = []*regexp.Regexp{
		regexp.MustCompile(`BYTES_IN[.\s]+(\d+)`),
		regexp.MustCompile(`BYTES_IN\s*:\s*(\d+)`),
		regexp.MustCompile(`bytes_in\s*:\s*(\d+)`),
		regexp.MustCompile(`RX bytes\s*:\s*(\d+)`),
	}
	bytesOutPatterns = []*regexp.Regexp{
		regexp.MustCompile(`BYTES_OUT[.\s]+(\d+)`),
		regexp.MustCompile(`BYTES_OUT\s*:\s*(\d+)`),
		regexp.MustCompile(`bytes_out\s*:\s*(\d+)`),
		regexp.MustCompile(`TX bytes\s*:\s*(\d+)`),
	}

	// Matches the first IPv4 address after an "inet" label in `ip addr` output.
	inetPattern = regexp.MustCompile(`inet\s+(\d+\.\d+\.\d+\.\d+)`)
)

// ExtractSessionPath extracts a session path from sessions-list output.
// Three shapes are tried in order: a direct D-Bus path token, a labeled
// "Path:" line, and a bare session identifier which is reformatted into
// the canonical path. The first match wins; conflicting matches later in
// the text are deliberately not reconciled.
func ExtractSessionPath(output string) (string, bool) {
	if m := sessionPathPattern.FindString(output); m != "" {
		return m, true
	}

	if m := sessionPathLinePattern.FindStringSubmatch(output); m != nil {
		return m[1], true
	}

	if m := sessionIDPattern.FindString(output); m != "" {
		return SessionPathPrefix + m, true
	}

	return "", false
}

// ParseStats extracts the cumulative BYTES_IN/BYTES_OUT counters from
// session-stats output. Each direction is matched independently against
// the known format variants, but a value is returned only when both
// counters are present: a half pair would corrupt rate derivation
// downstream, so partial data is treated as no data.
func ParseStats(output string) (bytesIn, bytesOut uint64, ok bool) {
	in, inOK := matchCounter(output, bytesInPatterns)
	out, outOK := matchCounter(output, bytesOutPatterns)
	if !inOK || !outOK {
		return 0, 0, false
	}
	return in, out, true
}

func matchCounter(output string, patterns []*regexp.Regexp) (uint64, bool) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(output)
		if m == nil {
			continue
		}
		val, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			continue
		}
		return val, true
	}
	return 0, false
}

// ExtractIPv4 extracts the first IPv4 address following an "inet" label
// from `ip addr show` output.
func ExtractIPv4(output string) (string, bool) {
	m := inetPattern.FindStringSubmatch(output)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// StatusVerdict classifies a sessions-list blob polled while a
// connection attempt is in progress.
type StatusVerdict int

const (
	// VerdictConnected indicates the session reports an established tunnel.
	VerdictConnected StatusVerdict = iota
	// VerdictChallenge indicates a 2FA/challenge code is being requested.
	VerdictChallenge
	// VerdictWebAuthPending indicates browser-based SSO is awaited.
	VerdictWebAuthPending
	// VerdictAuthFailed indicates authentication failed definitively.
	VerdictAuthFailed
)

// statusRules is the ordered keyword rule table evaluated against a
// lowercased sessions-list blob. Matching is substring-based because the
// listing carries no schema; precedence is success, then challenge, then
// SSO-pending, then failure.
var statusRules = []struct {
	verdict StatusVerdict
	match   func(s string) bool
}{
	{VerdictConnected, func(s string) bool {
		return strings.Contains(s, "client connected")
	}},
	{VerdictChallenge, func(s string) bool {
		return strings.Contains(s, "challenge") ||
			(strings.Contains(s, "enter") && strings.Contains(s, "token"))
	}},
	{VerdictWebAuthPending, func(s string) bool {
		return strings.Contains(s, "auth_pending") ||
			strings.Contains(s, "web based authentication") ||
			strings.Contains(s, "awaiting external authentication")
	}},
	{VerdictAuthFailed, func(s string) bool {
		return strings.Contains(s, "auth_failed") ||
			strings.Contains(s, "authentication failed")
	}},
}

// EvaluateStatus returns the verdicts matching a raw sessions-list blob,
// in precedence order. A connected verdict short-circuits: stale
// challenge or failure text left in the same listing is ignored once the
// success keyword is present. Otherwise every matching verdict is
// returned, since a blob can legitimately report both a pending
// challenge and an awaited SSO flow.
func EvaluateStatus(output string) []StatusVerdict {
	lower := strings.ToLower(output)

	var verdicts []StatusVerdict
	for _, rule := range statusRules {
		if !rule.match(lower) {
			continue
		}
		if rule.verdict == VerdictConnected {
			return []StatusVerdict{VerdictConnected}
		}
		verdicts = append(verdicts, rule.verdict)
	}
	return verdicts
}
