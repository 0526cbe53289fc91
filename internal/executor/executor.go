package executor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vk/pyworks/internal/ctxlog"
	"github.com/vk/pyworks/internal/graph"
	"github.com/vk/pyworks/internal/layout"
	"github.com/vk/pyworks/internal/plan"
	"github.com/vk/pyworks/internal/registry"
	"github.com/vk/pyworks/internal/toposort"
)

// LaunchError reports that the interpreter process failed to start.
type LaunchError struct {
	Interpreter string
	Err         error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch interpreter %q: %v", e.Interpreter, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// Options configures one workflow run.
type Options struct {
	// Root is the project root; it becomes the child's working directory
	// and is prepended to its import path.
	Root string
	// Layout is the workflow description to run.
	Layout *layout.Layout
	// Interpreter is the path to a runnable interpreter for this project's
	// environment. Provisioning it is the caller's concern.
	Interpreter string
	// Registry is the discovered node catalog.
	Registry *registry.Registry
	// Env is extra environment for the child process, on top of the
	// parent's environment.
	Env map[string]string
	// Timeout, when non-zero, bounds the whole run. There is no per-node
	// timeout; a hung node otherwise blocks the run indefinitely.
	Timeout time.Duration
}

// Runner executes one workflow. A Runner is single-use: construct, start
// Run on a worker goroutine, drain Events until closed.
type Runner struct {
	opts   Options
	events chan Event

	mu      sync.Mutex
	state   State
	process *exec.Cmd
	stopped bool
}

// New creates a Runner for the given options.
func New(opts Options) *Runner {
	return &Runner{
		opts:   opts,
		events: make(chan Event, 64),
		state:  StateIdle,
	}
}

// Events returns the run's event stream. It is closed after the terminal
// event has been delivered. Events preserve child output order.
func (r *Runner) Events() <-chan Event {
	return r.events
}

// State returns the run's current phase.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Stop forcefully terminates an in-flight run. There is no graceful
// cancellation protocol: the child is killed and node-level state is left
// undefined.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	if r.process != nil && r.process.Process != nil {
		_ = r.process.Process.Kill()
	}
}

// Run executes the workflow: build, cycle check, sort, synthesize, launch.
// It is intended for a goroutine separate from the caller's control loop;
// progress arrives on Events. Run emits exactly one terminal event and
// closes the event channel before returning.
func (r *Runner) Run(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	defer close(r.events)

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	r.setState(StateBuilding)
	r.emit(StatusEvent{State: StateBuilding, Message: "Building execution graph..."})

	g, err := graph.Build(ctx, r.opts.Layout, r.opts.Registry)
	if err != nil {
		logger.Error("Graph build failed.", "error", err)
		r.finish(StateCompletedFailure, false, err.Error())
		return
	}

	order, err := toposort.Sort(g.Control, g.Vertices)
	if err != nil {
		var cerr *toposort.CycleError
		if errors.As(err, &cerr) {
			logger.Error("Cycle detected, execution canceled.", "remaining", cerr.Remaining)
			r.finish(StateCycleDetected, false, "Cycle detected in control-flow graph - execution canceled")
			return
		}
		r.finish(StateCompletedFailure, false, err.Error())
		return
	}
	r.setState(StateSorted)
	r.emit(StatusEvent{State: StateSorted, Message: fmt.Sprintf("Executing %d nodes...", len(order))})

	r.setState(StateSynthesizing)
	p, err := plan.Synthesize(order, g, r.opts.Root)
	if err != nil {
		logger.Error("Plan synthesis failed.", "error", err)
		r.finish(StateCompletedFailure, false, err.Error())
		return
	}

	success, err := r.launch(ctx, p.Script)
	if err != nil {
		var lerr *LaunchError
		if errors.As(err, &lerr) {
			logger.Error("Interpreter launch failed.", "error", err)
			r.finish(StateLaunchError, false, err.Error())
			return
		}
		r.finish(StateCompletedFailure, false, err.Error())
		return
	}

	if success {
		r.finish(StateCompletedSuccess, true, "Workflow completed successfully")
		return
	}
	r.finish(StateCompletedFailure, false, "Workflow failed - check the run output for errors")
}

// launch starts the interpreter on the synthesized script with the project
// root as working directory, scanning the combined output stream line by
// line. It reports whether the process exited with the success status.
func (r *Runner) launch(ctx context.Context, script string) (bool, error) {
	r.setState(StateLaunching)
	r.emit(StatusEvent{State: StateLaunching, Message: "Launching interpreter..."})

	cmd := exec.CommandContext(ctx, r.opts.Interpreter, "-u", "-c", script)
	cmd.Dir = r.opts.Root
	if len(r.opts.Env) > 0 {
		env := os.Environ()
		keys := make([]string, 0, len(r.opts.Env))
		for k := range r.opts.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			env = append(env, k+"="+r.opts.Env[k])
		}
		cmd.Env = env
	}

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		return false, &LaunchError{Interpreter: r.opts.Interpreter, Err: err}
	}

	r.mu.Lock()
	r.process = cmd
	alreadyStopped := r.stopped
	r.mu.Unlock()
	if alreadyStopped {
		_ = cmd.Process.Kill()
	}

	r.setState(StateRunning)
	r.emit(StatusEvent{State: StateRunning, Message: "Running workflow..."})

	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			r.emitLine(scanner.Text())
		}
	}()

	waitErr := cmd.Wait()
	pw.Close()
	<-done
	pr.Close()

	r.mu.Lock()
	r.process = nil
	r.mu.Unlock()

	if waitErr == nil {
		// Designated success status: no node recorded an error.
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		// Non-zero exit: at least one node failed, or the script itself
		// died. Diagnostics already went out on the output stream.
		return false, nil
	}
	return false, waitErr
}

// emitLine classifies one child output line. A line carrying the progress
// marker yields an active-node event; anything else, including a marker
// line missing its instance id, is passed through as plain output. Protocol
// errors never abort a run.
func (r *Runner) emitLine(line string) {
	if strings.HasPrefix(line, plan.MarkerPrefix) {
		rest := strings.TrimPrefix(line, plan.MarkerPrefix)
		if strings.HasPrefix(rest, ":") {
			if id := strings.TrimSpace(rest[1:]); id != "" {
				r.emit(ActiveNodeEvent{InstanceID: id})
				return
			}
		}
	}
	r.emit(OutputEvent{Line: line})
}

func (r *Runner) emit(ev Event) {
	r.events <- ev
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *Runner) finish(s State, success bool, message string) {
	r.setState(s)
	r.emit(FinishedEvent{State: s, Success: success, Message: message})
}
