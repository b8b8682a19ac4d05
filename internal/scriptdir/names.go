// SPDX-License-Identifier: MPL-2.0

package scriptdir

import (
	"strings"

	"github.com/modflow/modflow/internal/lifecycle"
)

const (
	// DriverPrefix starts the name of the one driver script per module.
	DriverPrefix = "MAIN"
	// FailureSuffix is appended to a worker script name for the file holding
	// its captured error lines.
	FailureSuffix = ".failed"
	// SuccessSuffix is appended to a worker script name once it exits zero.
	SuccessSuffix = ".success"
	// StartedSuffix is appended to a worker script name when it begins.
	StartedSuffix = ".started"
	// LaunchFile holds the launch metadata written next to the driver.
	LaunchFile = "launch.toml"
)

// IsReserved reports whether name is a lifecycle marker, a worker status
// file, or launch metadata rather than a script.
func IsReserved(name string) bool {
	switch name {
	case lifecycle.StartedMarker, lifecycle.CompleteMarker, LaunchFile:
		return true
	}
	return strings.HasSuffix(name, FailureSuffix) ||
		strings.HasSuffix(name, SuccessSuffix) ||
		strings.HasSuffix(name, StartedSuffix)
}
