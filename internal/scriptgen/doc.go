// SPDX-License-Identifier: MPL-2.0

// Package scriptgen turns a module's input files into executable work: one
// worker script per batch of inputs and one driver script that dispatches
// every worker in the background and waits for them.
//
// Generated shell is parsed and pretty-printed with mvdan.cc/sh before it is
// written, so a module whose build capability emits invalid shell fails at
// generation time rather than at launch. Scripts are only written once every
// batch has been built; a build failure leaves nothing behind.
package scriptgen
