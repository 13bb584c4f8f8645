package predict

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrNoLM is returned when neither the module nor Configure set a model.
	ErrNoLM = errors.New("predict: no language model configured")

	// ErrMissingInput is returned when an input field has no value.
	ErrMissingInput = errors.New("missing input field")

	// ErrNoField is returned when reading a field a prediction does not have.
	ErrNoField = errors.New("prediction has no such field")

	// ErrCompletionCount is returned when MultiChainComparison receives the
	// wrong number of completions.
	ErrCompletionCount = errors.New("wrong number of completions")

	// ErrTooManyErrors is returned when Parallel stops early after
	// reaching its error limit.
	ErrTooManyErrors = errors.New("parallel: error limit reached")
)

// ItemError reports the failure of one Parallel task.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("task %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}
