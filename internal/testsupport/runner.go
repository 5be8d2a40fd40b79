package testsupport

import (
	"context"
	"strings"
	"sync"
)

// Call records one invocation captured by a CommandRecorder.
type Call struct {
	Name string
	Args []string
}

// CommandRecorder stands in for an external tool runner. Handler, when set,
// produces the output and error for each call.
type CommandRecorder struct {
	mu      sync.Mutex
	Calls   []Call
	Handler func(ctx context.Context, name string, args []string) ([]byte, error)
}

// Run satisfies services.CommandRunner.
func (r *CommandRecorder) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	r.Calls = append(r.Calls, Call{Name: name, Args: append([]string(nil), args...)})
	handler := r.Handler
	r.mu.Unlock()
	if handler == nil {
		return nil, nil
	}
	return handler(ctx, name, args)
}

// Joined returns each recorded call as a single space separated string.
func (r *CommandRecorder) Joined() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Calls))
	for _, call := range r.Calls {
		out = append(out, call.Name+" "+strings.Join(call.Args, " "))
	}
	return out
}
