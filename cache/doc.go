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


// Package cache provides a TTL cache facade over the connection pool.
//
// Every value is wrapped with an expiry before it is written to the
// backend; reads treat an expired hit as a miss and delete it. When the
// pool or the backend fails, operations fall back to a local in-process
// map with the same TTL semantics, so callers see a cache miss rather
// than a backend error. Fallback use is reported on results and
// counted, never silent.
//
// The TTL applied on writes is advisory and adaptive: a per-key history
// of hits and backend errors scales the caller's base TTL within fixed
// bounds.
package cache
