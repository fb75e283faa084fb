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


package pool

import "errors"

var (
	// ErrFactoryRequired is returned when a connection factory is not provided.
	ErrFactoryRequired = errors.New("connection factory required")

	// ErrAcquireTimeout is returned when the pool is exhausted and the
	// caller's wait in the acquisition queue timed out. It is distinct
	// from any error produced by running a command on a connection.
	ErrAcquireTimeout = errors.New("connection acquisition timed out")

	// ErrPoolClosed is returned for any operation on a closed pool.
	ErrPoolClosed = errors.New("pool is closed")

	// ErrDialFailed wraps a connection-creation failure.
	ErrDialFailed = errors.New("failed to create connection")

	// ErrKeyNotFound is returned by Conn.Get when the key is absent
	// from the backend.
	ErrKeyNotFound = errors.New("key not found")

	// ErrConnReleased is returned when a command runs on a connection
	// that has already been returned to the pool.
	ErrConnReleased = errors.New("connection already released")
)
