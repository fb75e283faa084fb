// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package regsearch

import (
	"errors"
	"time"

	"github.com/poiesic/regsearch/ratelimit"
)

var (
	// ErrUnknownSource indicates a requested source name is not configured.
	ErrUnknownSource = errors.New("unknown source")

	// ErrNoSources indicates a search with no sources to query.
	ErrNoSources = errors.New("no sources to query")

	// ErrAllSourcesFailed indicates that every queried source failed.
	ErrAllSourcesFailed = errors.New("all sources failed")
)

// RateLimitError is returned when admission control rejects a search
// before any work happens. It wraps the ratelimit sentinel matching the
// rejection reason.
type RateLimitError struct {
	Reason     ratelimit.Reason
	RetryAfter time.Duration
	ResetTime  time.Time

	err error
}

func (e *RateLimitError) Error() string { return e.err.Error() }

func (e *RateLimitError) Unwrap() error { return e.err }

// NewRateLimitError builds a RateLimitError from a limiter decision.
func NewRateLimitError(d ratelimit.Decision) *RateLimitError {
	return &RateLimitError{
		Reason:     d.Reason,
		RetryAfter: d.RetryAfter,
		ResetTime:  d.ResetTime,
		err:        d.Err(),
	}
}
