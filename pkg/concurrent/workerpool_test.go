// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package concurrent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingStep(name string, counter *int64, delta int64, err error) Step {
	return Step{
		Name: name,
		Run: func(ctx context.Context) error {
			atomic.AddInt64(counter, delta)
			time.Sleep(5 * time.Millisecond)
			return err
		},
	}
}

func TestWorkerPool_Run(t *testing.T) {
	pool := NewWorkerPool(2)
	var counter int64

	err := pool.Run(context.Background(),
		countingStep("a", &counter, 1, nil),
		countingStep("b", &counter, 2, nil),
		countingStep("c", &counter, 3, nil),
	)

	require.NoError(t, err)
	assert.Equal(t, int64(6), atomic.LoadInt64(&counter))
}

func TestWorkerPool_Run_ReturnsStepError(t *testing.T) {
	pool := NewWorkerPool(1)
	var counter int64
	boom := errors.New("boom")

	err := pool.Run(context.Background(),
		countingStep("ok", &counter, 1, nil),
		countingStep("calendar", &counter, 1, boom),
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "calendar", stepErr.Step)
}

func TestWorkerPool_RunAll_ContinuesAfterFailure(t *testing.T) {
	pool := NewWorkerPool(3)
	var counter int64
	first := errors.New("first")
	third := errors.New("third")

	failed := pool.RunAll(context.Background(),
		countingStep("one", &counter, 1, first),
		countingStep("two", &counter, 1, nil),
		countingStep("three", &counter, 1, third),
	)

	assert.Equal(t, int64(3), atomic.LoadInt64(&counter), "every step runs")
	require.Len(t, failed, 2)
	assert.Equal(t, "one", failed[0].Step)
	assert.ErrorIs(t, failed[0], first)
	assert.Equal(t, "three", failed[1].Step)
	assert.Equal(t, "three: third", failed[1].Error())
}

func TestWorkerPool_RunAll_CancelledContext(t *testing.T) {
	pool := NewWorkerPool(2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var counter int64

	failed := pool.RunAll(ctx, countingStep("a", &counter, 1, nil), countingStep("b", &counter, 1, nil))

	assert.Len(t, failed, 2)
	assert.Zero(t, atomic.LoadInt64(&counter))
	assert.ErrorIs(t, failed[0], context.Canceled)
}

func TestWorkerPool_Empty(t *testing.T) {
	pool := NewWorkerPool(0)

	assert.NoError(t, pool.Run(context.Background()))
	assert.Nil(t, pool.RunAll(context.Background()))
}
