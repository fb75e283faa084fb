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


// Package pool provides a bounded pool of reusable connections to the
// shared cache backend.
//
// The pool keeps between a minimum and maximum number of connections
// alive. Acquire hands out an idle healthy connection when one exists,
// dials a new one while under the maximum, and otherwise queues the
// caller FIFO with a timeout. A background loop pings idle connections,
// evicts unhealthy or over-age ones, and tops the pool back up to the
// minimum.
//
// Every connection is in exactly one of the idle or active sets at any
// time. All pool state is mutex-guarded and safe for concurrent use.
package pool
