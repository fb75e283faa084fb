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


package registry

import "errors"

var (
	// ErrNameRequired indicates a client was created without a source name.
	ErrNameRequired = errors.New("source name required")

	// ErrInvalidBaseURL indicates the upstream base URL could not be parsed.
	ErrInvalidBaseURL = errors.New("invalid base URL")

	// ErrInvalidTimeout indicates a non-positive request timeout.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrClientRequired indicates a nil HTTP client was supplied.
	ErrClientRequired = errors.New("http client required")

	// ErrUpstream indicates the upstream registry failed or answered
	// with a non-200 status.
	ErrUpstream = errors.New("upstream registry error")

	// ErrBadResponse indicates the upstream answered with a body that
	// could not be decoded.
	ErrBadResponse = errors.New("undecodable upstream response")
)
