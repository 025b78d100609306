package supervisor

import (
	"fmt"
	"strings"
	"time"

	"github.com/fonzi/openvpn3-gui/internal/stats"
)

// reportLogExcerptLines is how many trailing log lines the report includes.
const reportLogExcerptLines = 20

// BuildReport renders a session report from a snapshot: fixed labeled
// fields followed by a trailing log excerpt. Writing the report to disk
// is the caller's concern.
func BuildReport(snap Snapshot, now time.Time) string {
	configPath := snap.ConfigPath
	if configPath == "" {
		configPath = "-"
	}

	duration := "-"
	if !snap.ConnectionStart.IsZero() {
		duration = stats.FormatDuration(now.Sub(snap.ConnectionStart))
	}

	tunnelIP := snap.TunnelIP
	if tunnelIP == "" {
		tunnelIP = "-"
	}
	publicIP := snap.PublicIP
	if publicIP == "" {
		publicIP = "-"
	}

	excerpt := snap.Logs
	if len(excerpt) > reportLogExcerptLines {
		excerpt = excerpt[len(excerpt)-reportLogExcerptLines:]
	}

	var b strings.Builder
	b.WriteString("OpenVPN3 Session Report\n")
	fmt.Fprintf(&b, "Config: %s\n", configPath)
	fmt.Fprintf(&b, "Duration: %s\n", duration)
	fmt.Fprintf(&b, "Tunnel IP: %s\n", tunnelIP)
	fmt.Fprintf(&b, "Public IP: %s\n", publicIP)
	fmt.Fprintf(&b, "Bytes In: %d\n", snap.BytesIn)
	fmt.Fprintf(&b, "Bytes Out: %d\n", snap.BytesOut)
	b.WriteString("Log Excerpt:\n")
	b.WriteString(strings.Join(excerpt, "\n"))
	b.WriteString("\n")
	return b.String()
}
