// Copyright 2025-2026 The evently Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package client

import "time"

// RetryBackoff reconnect backoff state: exponential delay growth from a
// base, capped at a max, giving up once the attempt ceiling is reached.
//
// Not safe for concurrent use; the connection manager serializes access.
type RetryBackoff struct {
	base    time.Duration
	cap     time.Duration
	ceiling int
	attempt int
}

// NewRetryBackoff define backoff state with the given parameters
func NewRetryBackoff(base, cap time.Duration, ceiling int) *RetryBackoff {
	return &RetryBackoff{base: base, cap: cap, ceiling: ceiling, attempt: 0}
}

// Next record one more attempt and compute its delay as
// min(base * 2^(attempt-1), cap). Returns false once the ceiling is
// exhausted; no further attempts should be scheduled.
func (b *RetryBackoff) Next() (time.Duration, bool) {
	if b.attempt >= b.ceiling {
		return 0, false
	}
	b.attempt++
	delay := b.base
	for i := 1; i < b.attempt; i++ {
		delay *= 2
		if delay >= b.cap {
			return b.cap, true
		}
	}
	if delay > b.cap {
		delay = b.cap
	}
	return delay, true
}

// Attempts the number of attempts recorded since the last reset
func (b *RetryBackoff) Attempts() int {
	return b.attempt
}

// Reset clear the attempt counter after a successful connection open
func (b *RetryBackoff) Reset() {
	b.attempt = 0
}
