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
	"math"
	"math/rand"
	"time"
)

// BackoffConfig configures the exponential backoff between task polls.
type BackoffConfig struct {
	// InitialDelay is the delay before the second poll
	InitialDelay time.Duration
	// MaxDelay caps the delay between polls
	MaxDelay time.Duration
	// Multiplier is the backoff multiplier
	Multiplier float64
	// Jitter adds randomness to prevent synchronized polling
	Jitter bool
}

// DefaultBackoffConfig returns the polling defaults. Backend tasks usually
// finish in seconds, so the cap stays low.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// CalculateBackoff calculates the poll delay for the given attempt.
func CalculateBackoff(config BackoffConfig, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := float64(config.InitialDelay) * math.Pow(config.Multiplier, float64(attempt))

	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}

	if config.Jitter {
		// up to 10% jitter
		delay += delay * 0.1 * rand.Float64()
	}

	return time.Duration(delay)
}
