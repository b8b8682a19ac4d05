// SPDX-License-Identifier: MPL-2.0

//go:build windows

package launcher

import "os/exec"

// killProcessGroup keeps the default cancellation, which kills the driver
// process only.
// TODO: assign the driver to a job object so workers die with it.
func killProcessGroup(cmd *exec.Cmd) {}
