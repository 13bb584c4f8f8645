package predict

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Defaults for Parallel.
const (
	DefaultThreads   = 4
	DefaultMaxErrors = 10
)

// Task pairs a module with the inputs to call it with.
type Task struct {
	Module Module
	Inputs Inputs
}

// Parallel runs tasks on a bounded pool of goroutines.
type Parallel struct {
	// Threads bounds the number of concurrent calls. Default: 4.
	Threads int

	// MaxErrors cancels the remaining tasks once this many have failed.
	// Default: 10.
	MaxErrors int

	// Progress, when set, is called after every finished task with the
	// number done so far and the total. Calls are serialized.
	Progress func(done, total int)

	// Logger receives per-task failures. Default: slog.Default().
	Logger *slog.Logger
}

// NewParallel returns a Parallel with threads workers (DefaultThreads
// when threads <= 0).
func NewParallel(threads int) *Parallel {
	return &Parallel{Threads: threads}
}

// Run calls every task and returns one prediction per task, in task order.
// Failed tasks leave a nil entry and contribute an *ItemError to the
// returned error. Reaching MaxErrors cancels tasks not yet started and
// adds ErrTooManyErrors.
func (p *Parallel) Run(ctx context.Context, tasks []Task) ([]*Prediction, error) {
	threads := p.Threads
	if threads <= 0 {
		threads = DefaultThreads
	}
	maxErrors := p.MaxErrors
	if maxErrors <= 0 {
		maxErrors = DefaultMaxErrors
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	results := make([]*Prediction, len(tasks))
	var (
		mu   sync.Mutex
		errs []*ItemError
		done int
	)

	g := new(errgroup.Group)
	g.SetLimit(threads)
	for i, task := range tasks {
		g.Go(func() error {
			var pred *Prediction
			err := context.Cause(ctx)
			if err == nil {
				pred, err = task.Module.Forward(ctx, task.Inputs)
			}

			mu.Lock()
			defer mu.Unlock()
			done++
			if err != nil {
				errs = append(errs, &ItemError{Index: i, Err: err})
				logger.Debug("parallel task failed", slog.Int("index", i), slog.Any("error", err))
				if len(errs) == maxErrors {
					cancel(fmt.Errorf("%w (%d)", ErrTooManyErrors, maxErrors))
				}
			} else {
				results[i] = pred
			}
			if p.Progress != nil {
				p.Progress(done, len(tasks))
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) == 0 {
		return results, nil
	}
	sort.Slice(errs, func(a, b int) bool { return errs[a].Index < errs[b].Index })
	joined := make([]error, 0, len(errs)+1)
	if len(errs) >= maxErrors {
		joined = append(joined, ErrTooManyErrors)
	}
	for _, e := range errs {
		joined = append(joined, e)
	}
	return results, errors.Join(joined...)
}

// Map runs m over every input set with a Parallel of the given width.
func Map(ctx context.Context, m Module, inputs []Inputs, threads int) ([]*Prediction, error) {
	tasks := make([]Task, len(inputs))
	for i, in := range inputs {
		tasks[i] = Task{Module: m, Inputs: in}
	}
	return NewParallel(threads).Run(ctx, tasks)
}
