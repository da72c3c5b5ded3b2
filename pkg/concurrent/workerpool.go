// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package concurrent

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Step is one named unit of work submitted to a WorkerPool.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// StepError records which step failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// WorkerPool runs steps concurrently with a bounded number of goroutines.
type WorkerPool struct {
	workerCount int
}

// NewWorkerPool creates a new worker pool with the specified number of workers
func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &WorkerPool{
		workerCount: workerCount,
	}
}

// Run executes the steps and returns the first failure. Remaining steps see a
// cancelled context once one fails.
func (wp *WorkerPool) Run(ctx context.Context, steps ...Step) error {
	if len(steps) == 0 {
		return nil
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(wp.workerCount)

	for _, step := range steps {
		g.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return &StepError{Step: step.Name, Err: err}
			}
			if err := step.Run(groupCtx); err != nil {
				return &StepError{Step: step.Name, Err: err}
			}
			return nil
		})
	}

	return g.Wait()
}

// RunAll executes every step regardless of failures in the others. The
// returned errors are in step order and only cover failed steps.
func (wp *WorkerPool) RunAll(ctx context.Context, steps ...Step) []*StepError {
	if len(steps) == 0 {
		return nil
	}

	results := make([]error, len(steps))
	g := new(errgroup.Group)
	g.SetLimit(wp.workerCount)

	for i, step := range steps {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = err
				return nil
			}
			results[i] = step.Run(ctx)
			return nil
		})
	}
	_ = g.Wait()

	var failed []*StepError
	for i, err := range results {
		if err != nil {
			failed = append(failed, &StepError{Step: steps[i].Name, Err: err})
		}
	}
	return failed
}
