// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE validation helpers.
//
// Configuration files are validated in three steps:
//
//  1. Compile the embedded schema and look up its root definition
//  2. Compile user data and unify it with the definition
//  3. Validate and decode the unified value
//
// Errors carry the file name and a JSON-style field path (modules[0].type)
// so users can find the offending value.
package cueutil
