// Package state records engine run history in a SQLite database under the
// scenario output directory.
package state

import (
	"github.com/leapstack-labs/rdrkit/pkg/core"
)

// Type aliases for the run history types defined in pkg/core.
type (
	// Store is an alias for core.Store.
	Store = core.Store

	// RunStatus is an alias for core.RunStatus.
	RunStatus = core.RunStatus

	// Run is an alias for core.Run.
	Run = core.Run
)

// Run status constants re-exported from pkg/core.
const (
	RunStatusRunning   = core.RunStatusRunning
	RunStatusCompleted = core.RunStatusCompleted
	RunStatusSkipped   = core.RunStatusSkipped
	RunStatusFailed    = core.RunStatusFailed
	RunStatusCancelled = core.RunStatusCancelled
)

var _ Store = (*SQLiteStore)(nil)
