package jobs

import (
	"fmt"

	"studioflow/internal/services"
)

var (
	// ErrConflict is returned when an update-with-precondition finds the job
	// in a different state than the caller loaded.
	ErrConflict = fmt.Errorf("job changed since it was loaded: %w", services.ErrConflict)
	// ErrJobNotFound is returned by conditional writes against a missing job.
	ErrJobNotFound = fmt.Errorf("job: %w", services.ErrNotFound)
	// ErrPredecessorPending is returned when a gated write finds the job's
	// predecessor not yet completed or delivered.
	ErrPredecessorPending = fmt.Errorf("predecessor has not finished: %w", services.ErrValidation)
)
