// SPDX-License-Identifier: MPL-2.0

package launcher

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Native runs driver scripts with the host shell.
type Native struct {
	// Shell overrides the default shell, bash.
	Shell string
}

// NewNative creates a native launcher.
func NewNative() *Native {
	return &Native{}
}

// Name returns the launcher name.
func (n *Native) Name() string { return string(TypeNative) }

// Available reports whether the shell is on PATH.
func (n *Native) Available() bool {
	_, err := exec.LookPath(n.shell())
	return err == nil
}

// Launch runs the driver and waits for it and every background worker. On
// timeout or cancellation the driver's whole process group is killed.
func (n *Native) Launch(req *Request) *Result {
	ctx, cancel, err := prepare(req)
	if err != nil {
		return &Result{ExitCode: 1, Error: err}
	}
	defer cancel()

	cmd := exec.CommandContext(ctx, n.shell(), req.Driver)
	cmd.Dir = req.Dir
	cmd.Env = append(os.Environ(), req.Env...)
	cmd.Stdout = req.Stdout
	cmd.Stderr = req.Stderr
	cmd.WaitDelay = 5 * time.Second
	killProcessGroup(cmd)

	err = cmd.Run()
	if err == nil {
		return &Result{}
	}
	var exitErr *exec.ExitError
	code := 1
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	if res := timeoutResult(ctx, req, code); res != nil {
		return res
	}
	if exitErr != nil && code > 0 {
		return &Result{ExitCode: code}
	}
	return &Result{ExitCode: code, Error: fmt.Errorf("run driver: %w", err)}
}

func (n *Native) shell() string {
	if n.Shell != "" {
		return n.Shell
	}
	return "bash"
}
