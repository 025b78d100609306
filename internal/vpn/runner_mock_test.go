package vpn

import (
	"context"
	"strings"
	"sync"
)

// mockRunner implements CommandRunner for testing. Behavior is
// configured through the run/runWithInput/startDetached hooks; every
// invocation is recorded for assertions.
type mockRunner struct {
	mu sync.Mutex

	calls  [][]string
	inputs []string

	run           func(name string, args ...string) (string, error)
	runWithInput  func(input, name string, args ...string) (string, error)
	startDetached func(name string, args ...string) error
}

func newMockRunner() *mockRunner {
	return &mockRunner{}
}

func (m *mockRunner) record(name string, args []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, append([]string{name}, args...))
}

// callLines returns each recorded invocation as a single space-joined line.
func (m *mockRunner) callLines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := make([]string, len(m.calls))
	for i, call := range m.calls {
		lines[i] = strings.Join(call, " ")
	}
	return lines
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	m.record(name, args)
	if m.run != nil {
		return m.run(name, args...)
	}
	return "", nil
}

func (m *mockRunner) RunWithInput(_ context.Context, input, name string, args ...string) (string, error) {
	m.record(name, args)
	m.mu.Lock()
	m.inputs = append(m.inputs, input)
	m.mu.Unlock()
	if m.runWithInput != nil {
		return m.runWithInput(input, name, args...)
	}
	return "", nil
}

func (m *mockRunner) StartDetached(_ context.Context, name string, args ...string) error {
	m.record(name, args)
	if m.startDetached != nil {
		return m.startDetached(name, args...)
	}
	return nil
}
