// SPDX-License-Identifier: MPL-2.0

// Package lifecycle tracks the execution state of pipeline modules with
// marker files in each module root.
//
// A module is in exactly one state at any inspection point:
//
//	not started         no markers
//	started-incomplete  STARTED present, COMPLETE absent
//	complete            COMPLETE present
//
// Moving to complete creates COMPLETE and then removes STARTED. A crash
// between the two steps is read back as started-incomplete, so the module
// is simply re-run. Marker I/O failures are fatal for the whole pipeline:
// resume is only safe while the markers can be trusted.
package lifecycle
