/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldt-io/vsteer/internal/faults"
)

func testWaiter() *Waiter {
	return &Waiter{
		Backoff: BackoffConfig{
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
			Multiplier:   2.0,
		},
		Log: logr.Discard(),
	}
}

func TestAwaitSucceedsAfterPolling(t *testing.T) {
	polls := 0
	p := PollerFunc(func(ctx context.Context) (Status, error) {
		polls++
		if polls < 4 {
			return Status{}, nil
		}
		return Status{Done: true, Result: "vm-102"}, nil
	})

	outcome := testWaiter().Await(context.Background(), p)

	assert.Equal(t, StateSucceeded, outcome.State)
	assert.Equal(t, "vm-102", outcome.Result)
	assert.NoError(t, outcome.Err)
	assert.Equal(t, 4, polls)
}

func TestAwaitFailurePassesThroughClassifiedError(t *testing.T) {
	taskErr := &faults.TaskFailureError{Message: "an object with the name web-01 already exists"}
	p := PollerFunc(func(ctx context.Context) (Status, error) {
		return Status{Done: true, Err: taskErr}, nil
	})

	outcome := testWaiter().Await(context.Background(), p)

	assert.Equal(t, StateFailed, outcome.State)
	require.Error(t, outcome.Err)
	assert.True(t, faults.IsTaskFailure(outcome.Err))
	assert.ErrorIs(t, outcome.Err, taskErr)
}

func TestAwaitPollErrorIsFatal(t *testing.T) {
	pollErr := errors.New("property collector unavailable")
	p := PollerFunc(func(ctx context.Context) (Status, error) {
		return Status{}, pollErr
	})

	outcome := testWaiter().Await(context.Background(), p)

	assert.Equal(t, StateFailed, outcome.State)
	assert.ErrorIs(t, outcome.Err, pollErr)
}

func TestAwaitCancellationStopsObservingOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	polls := 0
	p := PollerFunc(func(ctx context.Context) (Status, error) {
		polls++
		if polls == 2 {
			cancel()
		}
		return Status{}, nil
	})

	outcome := testWaiter().Await(ctx, p)

	assert.Equal(t, StateCancelled, outcome.State)
	assert.ErrorIs(t, outcome.Err, context.Canceled)
	// The poller was never told to cancel the backend task; the waiter just
	// stopped watching.
	assert.Equal(t, 2, polls)
}

func TestAwaitTimeout(t *testing.T) {
	w := testWaiter()
	w.Timeout = 10 * time.Millisecond

	p := PollerFunc(func(ctx context.Context) (Status, error) {
		return Status{}, nil
	})

	outcome := w.Await(context.Background(), p)

	assert.Equal(t, StateCancelled, outcome.State)
	assert.ErrorIs(t, outcome.Err, context.DeadlineExceeded)
}

func TestAwaitPollErrorAfterCancellationIsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := PollerFunc(func(ctx context.Context) (Status, error) {
		return Status{}, ctx.Err()
	})

	outcome := testWaiter().Await(ctx, p)

	assert.Equal(t, StateCancelled, outcome.State)
	assert.ErrorIs(t, outcome.Err, context.Canceled)
}

func TestCalculateBackoff(t *testing.T) {
	config := BackoffConfig{
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}

	tests := []struct {
		name    string
		attempt int
		want    time.Duration
	}{
		{"first retry uses the initial delay", 0, 500 * time.Millisecond},
		{"second retry doubles", 1, time.Second},
		{"third retry doubles again", 2, 2 * time.Second},
		{"negative attempts clamp to the initial delay", -3, 500 * time.Millisecond},
		{"large attempts cap at the max delay", 20, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateBackoff(config, tt.attempt))
		})
	}
}

func TestCalculateBackoffJitterStaysBounded(t *testing.T) {
	config := DefaultBackoffConfig()

	for attempt := 0; attempt < 10; attempt++ {
		delay := CalculateBackoff(config, attempt)
		base := CalculateBackoff(BackoffConfig{
			InitialDelay: config.InitialDelay,
			MaxDelay:     config.MaxDelay,
			Multiplier:   config.Multiplier,
		}, attempt)

		assert.GreaterOrEqual(t, delay, base)
		assert.LessOrEqual(t, delay, base+base/10)
	}
}
