// Package core defines the shared language of the rdrkit system.
//
// This package contains:
//   - Run parameters that identify a single engine run (RunParams)
//   - Enumerated options shared by configuration and computation
//   - Run history entities and the Store interface
//   - Finding severities used by validation reports
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
