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


package ratelimit

import "errors"

var (
	// ErrRateLimited indicates the main window quota is exhausted.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrBurstLimited indicates the burst window quota is exhausted.
	ErrBurstLimited = errors.New("burst limit exceeded")

	// ErrCircuitOpen indicates the key's circuit breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker open")
)
