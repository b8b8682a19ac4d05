// SPDX-License-Identifier: MPL-2.0

// Package runner executes one sequential pass over the configured pipeline.
//
// Each module is checked against its lifecycle markers, given its inputs
// (the files in the previous data-producing module's output directory, or
// the pipeline input directory for the first module), turned into worker and
// driver scripts, and handed to a launcher. Worker failures leave the module
// started-incomplete and halt the pass; a later pass resumes from it.
package runner
