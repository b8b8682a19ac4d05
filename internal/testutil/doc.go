// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers shared by the modflow test suites.
//
// The Must* helpers fail the test immediately on filesystem errors so test
// bodies can lay out module roots, script directories and marker files in a
// few lines. FakeClock drives time-dependent code such as lifecycle runtime
// reporting without sleeping.
package testutil
