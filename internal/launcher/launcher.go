// SPDX-License-Identifier: MPL-2.0

package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/modflow/modflow/internal/scriptgen"
)

// Launcher type constants.
const (
	TypeNative  Type = "native"
	TypeVirtual Type = "virtual"
)

var (
	// ErrLaunch is the sentinel error wrapped by LaunchError.
	ErrLaunch = errors.New("launch failure")
	// ErrUnknownLauncher is returned by Registry.Get for unregistered types.
	ErrUnknownLauncher = errors.New("unknown launcher")
)

type (
	// Type names a launcher implementation.
	Type string

	// Request describes one driver execution.
	Request struct {
		// Context cancels the driver. A nil Context means context.Background.
		Context context.Context
		// Driver is the driver script path.
		Driver string
		// Dir is the working directory; defaults to the driver's directory.
		Dir string
		// Timeout bounds the driver's wall-clock time; zero is unbounded.
		Timeout time.Duration
		// Env is added to the inherited process environment.
		Env []string
		// Stdout and Stderr receive driver output; nil discards it.
		Stdout io.Writer
		Stderr io.Writer
	}

	// Result is the outcome of one driver execution.
	Result struct {
		// ExitCode is the driver's exit status.
		ExitCode int
		// Error is set when the driver could not be run to completion.
		Error error
	}

	// Launcher executes driver scripts.
	Launcher interface {
		// Name returns the launcher type name.
		Name() string
		// Available reports whether the launcher can run on this host.
		Available() bool
		// Launch runs the driver and blocks until it exits.
		Launch(req *Request) *Result
	}

	// Registry maps launcher types to implementations.
	Registry struct {
		launchers map[Type]Launcher
	}

	// LaunchError reports a driver that failed, timed out or could not start.
	LaunchError struct {
		Launcher string
		Driver   string
		ExitCode int
		Err      error
	}
)

// Error implements the error interface for LaunchError.
func (e *LaunchError) Error() string {
	name := filepath.Base(e.Driver)
	if e.Err != nil {
		return fmt.Sprintf("%s launcher: %s: %v", e.Launcher, name, e.Err)
	}
	return fmt.Sprintf("%s launcher: %s exited with status %d", e.Launcher, name, e.ExitCode)
}

// Unwrap returns ErrLaunch for errors.Is() compatibility.
func (e *LaunchError) Unwrap() error { return ErrLaunch }

// Success returns true if the driver exited zero.
func (r *Result) Success() bool {
	return r.ExitCode == 0 && r.Error == nil
}

// Err converts an unsuccessful result into a *LaunchError.
func (r *Result) Err(l Launcher, driver string) error {
	if r.Success() {
		return nil
	}
	return &LaunchError{Launcher: l.Name(), Driver: driver, ExitCode: r.ExitCode, Err: r.Error}
}

// NewRequest builds a Request from the launch metadata in scriptDir.
func NewRequest(ctx context.Context, scriptDir string) (*Request, error) {
	spec, err := scriptgen.ReadLaunchSpec(scriptDir)
	if err != nil {
		return nil, err
	}
	return &Request{
		Context: ctx,
		Driver:  spec.Driver,
		Dir:     scriptDir,
		Timeout: spec.Timeout(),
		Env:     []string{fmt.Sprintf("NUM_THREADS=%d", spec.Threads)},
	}, nil
}

// NewRegistry creates a registry holding the native and virtual launchers.
func NewRegistry() *Registry {
	r := &Registry{launchers: make(map[Type]Launcher)}
	r.Register(TypeNative, NewNative())
	r.Register(TypeVirtual, NewVirtual())
	return r
}

// Register adds or replaces a launcher.
func (r *Registry) Register(typ Type, l Launcher) {
	r.launchers[typ] = l
}

// Get returns the launcher registered for typ.
func (r *Registry) Get(typ Type) (Launcher, error) {
	l, ok := r.launchers[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLauncher, typ)
	}
	return l, nil
}

// Available returns the registered launchers that can run on this host,
// sorted by name.
func (r *Registry) Available() []Type {
	var out []Type
	for typ, l := range r.launchers {
		if l.Available() {
			out = append(out, typ)
		}
	}
	slices.Sort(out)
	return out
}

// prepare fills request defaults and derives the timeout context. The
// returned cancel func must always be called.
func prepare(req *Request) (context.Context, context.CancelFunc, error) {
	if req.Driver == "" {
		return nil, nil, errors.New("no driver script to launch")
	}
	if _, err := os.Stat(req.Driver); err != nil {
		return nil, nil, fmt.Errorf("driver script: %w", err)
	}
	if req.Dir == "" {
		req.Dir = filepath.Dir(req.Driver)
	}
	if req.Stdout == nil {
		req.Stdout = io.Discard
	}
	if req.Stderr == nil {
		req.Stderr = io.Discard
	}
	ctx := req.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if req.Timeout > 0 {
		ctx, cancel := context.WithTimeout(ctx, req.Timeout)
		return ctx, cancel, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	return ctx, cancel, nil
}

// timeoutResult reports a driver killed by its deadline.
func timeoutResult(ctx context.Context, req *Request, code int) *Result {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Result{ExitCode: code, Error: fmt.Errorf("timed out after %s: %w", req.Timeout, context.DeadlineExceeded)}
	}
	return nil
}
