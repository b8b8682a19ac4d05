// SPDX-License-Identifier: MPL-2.0

// Package launcher runs a module's driver script and waits for it.
//
// Two launchers are provided. The native launcher hands the driver to the
// host bash. The virtual launcher interprets the driver and every worker it
// dispatches in-process with mvdan.cc/sh, falling back to host binaries for
// external commands. Both enforce the driver's timeout from its launch
// metadata; the worker success and failure files are produced by the driver
// itself.
package launcher
