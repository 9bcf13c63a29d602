package infra

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// fakeRunner is a test double for CommandRunner. Tools listed in installed
// resolve through LookPath; every Run/Output call is recorded.
type fakeRunner struct {
	installed map[string]bool
	failures  map[string]error  // keyed by the full command line
	outputs   map[string][]byte // keyed by the full command line
	calls     []string
}

func newFakeRunner(tools ...string) *fakeRunner {
	r := &fakeRunner{
		installed: make(map[string]bool),
		failures:  make(map[string]error),
		outputs:   make(map[string][]byte),
	}
	for _, t := range tools {
		r.installed[t] = true
	}
	return r
}

func commandLine(name string, args ...string) string {
	return strings.TrimSpace(name + " " + strings.Join(args, " "))
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) error {
	line := commandLine(name, args...)
	r.calls = append(r.calls, line)
	return r.failures[line]
}

func (r *fakeRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	line := commandLine(name, args...)
	r.calls = append(r.calls, line)
	if err := r.failures[line]; err != nil {
		return nil, err
	}
	return r.outputs[line], nil
}

func (r *fakeRunner) LookPath(name string) (string, error) {
	if r.installed[name] {
		return "/usr/bin/" + name, nil
	}
	return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
}

// fail makes the given command line exit non-zero.
func (r *fakeRunner) fail(line string) {
	r.failures[line] = errors.New("exit status 1")
}

// mockProcessManager is a test double for domain.ProcessManager
type mockProcessManager struct {
	names map[int]string
}

func (m *mockProcessManager) FindByName(name string) ([]int, error) {
	var pids []int
	for pid, n := range m.names {
		if n == name {
			pids = append(pids, pid)
		}
	}
	return pids, nil
}

func (m *mockProcessManager) NameOf(pid int) (string, error) {
	if n, ok := m.names[pid]; ok {
		return n, nil
	}
	return "", fmt.Errorf("process %d not found", pid)
}
