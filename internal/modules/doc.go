// SPDX-License-Identifier: MPL-2.0

// Package modules is the catalog of module types a pipeline can be built from.
//
// Each type turns its configuration into a pipeline.Module: script settings, an output
// kind and the build capability that writes the command lines of one worker script.
// The commands themselves are external tools; this package only assembles their
// invocations with safely quoted arguments.
package modules
