package vpn

import (
	"context"
	"math"
	"strconv"
	"strings"
)

// DefaultPingTarget is the well-known address probed for latency.
const DefaultPingTarget = "8.8.8.8"

// PingLatency sends a single echo request to the target and returns the
// round-trip time in whole milliseconds. Absent when the probe fails or
// its output carries no time field. The 1-second deadline bounds the
// probe well under the supervisor tick.
func PingLatency(ctx context.Context, runner CommandRunner, target string) (int, bool) {
	if target == "" {
		target = DefaultPingTarget
	}

	output, err := runner.Run(ctx, "ping", "-c", "1", "-w", "1", target)
	if err != nil {
		return 0, false
	}
	return parsePingTime(output)
}

// parsePingTime extracts the "time=<ms>" value from ping output.
func parsePingTime(output string) (int, bool) {
	for _, line := range strings.Split(output, "\n") {
		idx := strings.Index(line, "time=")
		if idx < 0 {
			continue
		}
		rest := line[idx+len("time="):]
		end := strings.IndexByte(rest, ' ')
		if end < 0 {
			continue
		}
		val, err := strconv.ParseFloat(rest[:end], 32)
		if err != nil {
			continue
		}
		return int(math.Round(val)), true
	}
	return 0, false
}
