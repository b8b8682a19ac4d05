// SPDX-License-Identifier: MPL-2.0

// Package config loads pipeline configuration using Viper with CUE as the file format.
//
// The configuration is read from the file given with --config, or from pipeline.cue in
// the working directory. The file is validated against an embedded CUE schema
// (pipeline_schema.cue), merged into Viper over the defaults, and overlaid with
// MODFLOW_* environment variables (MODFLOW_SCRIPT_BATCH_SIZE sets script.batch_size).
//
// Problems are classified as ErrConfigMissing (a required setting is absent) or
// ErrConfigFormat (a setting is malformed). Config.Validate reports all of them at
// once so a pipeline never starts with a partial configuration.
package config
