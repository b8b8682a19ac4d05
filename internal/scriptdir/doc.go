// SPDX-License-Identifier: MPL-2.0

// Package scriptdir reads a module's script directory after a launcher has
// run it: the failure report built from per-worker failure files, the driver
// script a launcher should invoke, and counts for status summaries.
//
// Everything here is read-only. Lifecycle transitions are decided by the
// caller.
package scriptdir
