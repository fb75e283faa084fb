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


// Package query fans a single search out to every requested source in
// parallel and collects one result per source.
//
// Each source call runs on a shared worker pool and carries its own
// timeout. A source that fails or times out yields a SourceResult with
// its error set; it never aborts or delays its siblings, and a result
// that arrives after the timeout is discarded. Query always waits for
// every source to settle, so callers can render a degraded response
// listing exactly which sources failed.
package query
