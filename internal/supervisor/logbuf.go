package supervisor

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultLogCapacity bounds the user-facing log buffer.
const DefaultLogCapacity = 1000

// LogBuffer is a bounded, timestamped line buffer holding the
// user-facing activity log. When full, the oldest line is dropped.
// It is safe for concurrent use.
type LogBuffer struct {
	mu       sync.RWMutex
	lines    []string
	capacity int
	now      func() time.Time
}

// NewLogBuffer creates a LogBuffer with the given capacity.
// A non-positive capacity selects DefaultLogCapacity.
func NewLogBuffer(capacity int) *LogBuffer {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &LogBuffer{
		capacity: capacity,
		now:      time.Now,
	}
}

// Append adds a line prefixed with the current wall-clock time.
func (l *LogBuffer) Append(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	line := fmt.Sprintf("[%s] %s", l.now().Format("15:04:05"), msg)
	l.lines = append(l.lines, line)
	if len(l.lines) > l.capacity {
		l.lines = l.lines[1:]
	}
}

// Lines returns a copy of all buffered lines, oldest first.
func (l *LogBuffer) Lines() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

// Len returns the number of buffered lines.
func (l *LogBuffer) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.lines)
}

// Contains reports whether any buffered line contains the substring.
// Used to deduplicate notices that should be logged once per session.
func (l *LogBuffer) Contains(substr string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

// Tail returns the last n lines, oldest first.
func (l *LogBuffer) Tail(n int) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n > len(l.lines) {
		n = len(l.lines)
	}
	out := make([]string, n)
	copy(out, l.lines[len(l.lines)-n:])
	return out
}
